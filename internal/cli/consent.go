package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phazurlabs/openclaw-fortress/internal/consent"
)

func init() {
	consentCmd.AddCommand(consentGrantCmd)
	consentCmd.AddCommand(consentRevokeCmd)
	consentCmd.AddCommand(consentStatusCmd)
	rootCmd.AddCommand(consentCmd)
}

var consentCmd = &cobra.Command{
	Use:   "consent",
	Short: "Manage contact consent records",
}

var consentGrantCmd = &cobra.Command{
	Use:   "grant <contact-id>",
	Short: "Record consent for a contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openConsent()
		if err != nil {
			return err
		}
		if err := store.Grant(args[0]); err != nil {
			return err
		}
		fmt.Println("consent recorded")
		return nil
	},
}

var consentRevokeCmd = &cobra.Command{
	Use:   "revoke <contact-id>",
	Short: "Revoke consent for a contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openConsent()
		if err != nil {
			return err
		}
		if err := store.Revoke(args[0]); err != nil {
			return err
		}
		fmt.Println("consent revoked")
		return nil
	},
}

var consentStatusCmd = &cobra.Command{
	Use:   "status <contact-id>",
	Short: "Show consent status for a contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openConsent()
		if err != nil {
			return err
		}
		if store.Has(args[0]) {
			fmt.Println("granted")
		} else {
			fmt.Println("not granted")
		}
		return nil
	},
}

func openConsent() (*consent.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Security.MasterKey == "" {
		return nil, fmt.Errorf("no master key configured, consent store is encrypted")
	}
	return consent.Load(cfg.ConsentPath(), cfg.Security.MasterKey)
}
