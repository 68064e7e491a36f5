package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/phazurlabs/openclaw-fortress/internal/audit"
)

var (
	tailLines    int
	replayFormat string
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
	auditCmd.AddCommand(auditReplayCmd)
	auditTailCmd.Flags().IntVarP(&tailLines, "lines", "n", 10, "Number of recent entries to show")
	auditReplayCmd.Flags().StringVarP(&replayFormat, "format", "f", "text", "Output format (text|json)")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log operations",
	Long:  "Commands for verifying and inspecting the hash-chained audit log.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify hash chain integrity of the audit log",
	Long:  "Walks the JSONL audit log and validates that every entry's prev_hash\nmatches the SHA-256 of the previous entry. Exits 0 if valid, 1 if tampered.",
	RunE:  runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show recent audit log entries",
	RunE:  runAuditTail,
}

var auditReplayCmd = &cobra.Command{
	Use:   "replay <trace-or-session-id>",
	Short: "Replay one conversation's audit timeline",
	Long:  "Filters the audit log by trace ID or session ID and renders the\nmatching entries with a severity summary.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditReplay,
}

func auditPath() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.Security.AuditLog, nil
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	path, err := auditPath()
	if err != nil {
		return err
	}
	result := audit.Verify(path)
	if result.Valid {
		fmt.Printf("OK: %d entries verified\n", result.Lines)
		return nil
	}
	fmt.Fprintf(os.Stderr, "FAILED at line %d: %s\n", result.ErrorLine, result.Error)
	os.Exit(1)
	return nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	path, err := auditPath()
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	// Read all lines, keep last N
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read audit log: %w", err)
	}

	start := len(lines) - tailLines
	if start < 0 {
		start = 0
	}

	for _, line := range lines[start:] {
		var entry audit.Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			fmt.Println(line)
			continue
		}
		fmt.Printf("%s [%s] %s", entry.Timestamp, entry.Severity, entry.Event)
		if entry.ContactID != "" {
			fmt.Printf(" contact=%s", entry.ContactID)
		}
		if entry.SessionID != "" {
			fmt.Printf(" session=%s", entry.SessionID)
		}
		fmt.Println()
	}
	return nil
}

func runAuditReplay(cmd *cobra.Command, args []string) error {
	path, err := auditPath()
	if err != nil {
		return err
	}
	result, err := audit.Replay(path, args[0])
	if err != nil {
		return err
	}

	if replayFormat == "json" {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(result.Entries) == 0 {
		fmt.Printf("no entries for %q\n", args[0])
		return nil
	}
	for _, entry := range result.Entries {
		fmt.Printf("%s [%s] %s\n", entry.Timestamp, entry.Severity, entry.Event)
	}
	fmt.Println()
	fmt.Printf("%d entries (%s .. %s)", result.Summary.Entries,
		result.Summary.FirstTimestamp, result.Summary.LastTimestamp)
	fmt.Println()
	for sev, n := range result.Summary.BySeverity {
		fmt.Printf("  %s: %d\n", sev, n)
	}
	return nil
}
