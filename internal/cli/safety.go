package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phazurlabs/openclaw-fortress/internal/audit"
	"github.com/phazurlabs/openclaw-fortress/internal/safety"
)

func init() {
	safetyCmd.AddCommand(safetyShowCmd)
	safetyCmd.AddCommand(safetyVerifyCmd)
	safetyCmd.AddCommand(safetyClearCmd)
	rootCmd.AddCommand(safetyCmd)
}

var safetyCmd = &cobra.Command{
	Use:   "safety",
	Short: "Manage safety number records",
}

var safetyShowCmd = &cobra.Command{
	Use:   "show <contact-id>",
	Short: "Show a contact's safety number record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, log, err := openSafety()
		if err != nil {
			return err
		}
		defer log.Close()
		rec := store.Get(args[0])
		if rec == nil {
			return fmt.Errorf("unknown contact %q", args[0])
		}
		fmt.Printf("fingerprint: %s\n", rec.Fingerprint)
		fmt.Printf("verified:    %t\n", rec.Verified)
		fmt.Printf("suspended:   %t\n", rec.Suspended)
		fmt.Printf("first seen:  %d\n", rec.FirstSeen)
		fmt.Printf("last seen:   %d\n", rec.LastSeen)
		return nil
	},
}

var safetyVerifyCmd = &cobra.Command{
	Use:   "verify <contact-id>",
	Short: "Mark a contact's current fingerprint as verified",
	Long:  "Marks the stored fingerprint verified after an out-of-band safety\nnumber comparison with the contact.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, log, err := openSafety()
		if err != nil {
			return err
		}
		defer log.Close()
		if err := store.MarkVerified(args[0]); err != nil {
			return err
		}
		fmt.Println("marked verified")
		return nil
	},
}

var safetyClearCmd = &cobra.Command{
	Use:   "clear <contact-id>",
	Short: "Clear a contact's suspension after manual review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, log, err := openSafety()
		if err != nil {
			return err
		}
		defer log.Close()
		if err := store.ClearSuspension(args[0]); err != nil {
			return err
		}
		fmt.Println("suspension cleared")
		return nil
	},
}

func openSafety() (*safety.Store, *audit.Log, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := audit.Open(cfg.Security.AuditLog)
	if err != nil {
		return nil, nil, err
	}
	store, err := safety.Load(cfg.SafetyPath(), log)
	if err != nil {
		log.Close()
		return nil, nil, err
	}
	return store, log, nil
}
