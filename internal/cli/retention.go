package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/phazurlabs/openclaw-fortress/internal/retention"
)

func init() {
	retentionCmd.AddCommand(retentionArchiveCmd)
	rootCmd.AddCommand(retentionCmd)
}

var retentionCmd = &cobra.Command{
	Use:   "retention",
	Short: "Apply the retention policy",
}

var retentionArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive aged audit entries into the retention database",
	Long:  "Moves audit entries older than the configured retention window into\nthe sqlite archive and rewrites the remaining log as a fresh hash\nchain. Run while the gateway is stopped.",
	RunE:  runRetentionArchive,
}

func runRetentionArchive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	archiver, err := retention.Open(cfg.Retention.ArchiveDB)
	if err != nil {
		return err
	}
	defer archiver.Close()

	cutoff := time.Now().AddDate(0, 0, -cfg.Retention.AuditMaxAgeDays)
	archived, err := archiver.ArchiveAudit(cfg.Security.AuditLog, cutoff)
	if err != nil {
		return err
	}
	fmt.Printf("archived %d audit entries older than %d days\n", archived, cfg.Retention.AuditMaxAgeDays)
	return nil
}
