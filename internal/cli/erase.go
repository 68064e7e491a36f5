package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phazurlabs/openclaw-fortress/internal/audit"
	"github.com/phazurlabs/openclaw-fortress/internal/consent"
	"github.com/phazurlabs/openclaw-fortress/internal/persist"
	"github.com/phazurlabs/openclaw-fortress/internal/retention"
	"github.com/phazurlabs/openclaw-fortress/internal/safety"
)

func init() {
	rootCmd.AddCommand(eraseCmd)
}

var eraseCmd = &cobra.Command{
	Use:   "erase <contact-id>",
	Short: "Erase all stored state for a contact",
	Long:  "Deletes the contact's persisted sessions, safety number record, and\nconsent record, and notes the erasure in the retention archive. Run\nwhile the gateway is stopped.",
	Args:  cobra.ExactArgs(1),
	RunE:  runErase,
}

func runErase(cmd *cobra.Command, args []string) error {
	contactID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := audit.Open(cfg.Security.AuditLog)
	if err != nil {
		return err
	}
	defer log.Close()

	erased := 0
	if cfg.Security.MasterKey != "" {
		store, err := persist.NewStore(cfg.SessionsDir(), cfg.Security.StateDir, cfg.Security.MasterKey)
		if err != nil {
			return err
		}
		erased, err = store.EraseContact(contactID)
		if err != nil {
			return err
		}

		consentStore, err := consent.Load(cfg.ConsentPath(), cfg.Security.MasterKey)
		if err != nil {
			return err
		}
		if err := consentStore.Erase(contactID); err != nil {
			return err
		}
	}

	safetyStore, err := safety.Load(cfg.SafetyPath(), log)
	if err != nil {
		return err
	}
	if err := safetyStore.Erase(contactID); err != nil {
		return err
	}

	archiver, err := retention.Open(cfg.Retention.ArchiveDB)
	if err != nil {
		return err
	}
	defer archiver.Close()
	if err := archiver.RecordErasure(contactID, erased); err != nil {
		return err
	}

	log.Warn("contact_erased", audit.Fields{
		ContactID: contactID,
		Details:   map[string]any{"sessions_erased": erased},
	})

	fmt.Printf("erased %d sessions and all records for contact\n", erased)
	return nil
}
