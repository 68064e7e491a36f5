package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/phazurlabs/openclaw-fortress/internal/alert"
	"github.com/phazurlabs/openclaw-fortress/internal/audit"
	"github.com/phazurlabs/openclaw-fortress/internal/gateway"
	"github.com/phazurlabs/openclaw-fortress/internal/llm"
	"github.com/phazurlabs/openclaw-fortress/internal/persist"
	"github.com/phazurlabs/openclaw-fortress/internal/pipeline"
	"github.com/phazurlabs/openclaw-fortress/internal/safety"
	"github.com/phazurlabs/openclaw-fortress/internal/session"
	"github.com/phazurlabs/openclaw-fortress/internal/tokenauth"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway",
	Long:  "Starts the message gateway: restores persisted sessions, opens the audit log, and serves the browser-chat listener until interrupted.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := audit.Open(cfg.Security.AuditLog)
	if err != nil {
		return err
	}
	defer log.Close()

	dispatcher, err := alert.NewDispatcher(cfg.Alerts)
	if err != nil {
		return err
	}
	if dispatcher != nil {
		log.SetAlertFunc(dispatcher.Dispatch)
	}

	sessions := session.NewManager()

	var store *persist.Store
	if cfg.Security.MasterKey != "" {
		store, err = persist.NewStore(cfg.SessionsDir(), cfg.Security.StateDir, cfg.Security.MasterKey)
		if err != nil {
			return err
		}
		restored, pruned, err := store.Restore(sessions)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "sessions: restored %d, pruned %d expired\n", restored, pruned)
	} else {
		fmt.Fprintf(os.Stderr, "warning: no master key set, sessions will not survive restart\n")
	}

	safetyStore, err := safety.Load(cfg.SafetyPath(), log)
	if err != nil {
		return err
	}

	client := llm.NewHTTPClient(llm.ClientConfig{
		APIURL:    cfg.LLM.APIURL,
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   60 * time.Second,
	})

	handler := pipeline.New(pipeline.Options{
		Config:   cfg,
		Log:      log,
		LLM:      client,
		Sessions: sessions,
		Store:    store,
		Safety:   safetyStore,
	})

	gw := gateway.New(cfg.Gateway.Listen, cfg.Gateway.Token, tokenauth.New(log), handler, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if reloader, err := pipeline.NewReloader(handler, log, configPath); err != nil {
		fmt.Fprintf(os.Stderr, "warning: config hot-reload disabled: %v\n", err)
	} else {
		go reloader.Run(ctx)
	}

	log.Info("gateway_started", audit.Fields{
		Details: map[string]any{"listen": cfg.Gateway.Listen},
	})

	err = gw.Run(ctx)
	log.Info("gateway_stopped", audit.Fields{})
	return err
}
