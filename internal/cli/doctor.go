package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phazurlabs/openclaw-fortress/internal/doctor"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check security posture and diagnose configuration issues",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	checks := doctor.Run(cfg)
	for _, c := range checks {
		mark := "\u2713" // ✓
		if !c.OK {
			mark = "\u2717" // ✗
		}
		line := fmt.Sprintf("%s %-20s %s", mark, c.Label+":", c.Detail)
		if !c.OK && c.Fix != "" {
			line += fmt.Sprintf("  ->  %s", c.Fix)
		}
		fmt.Println(line)
	}

	if doctor.Failed(checks) {
		fmt.Println()
		fmt.Println("Some checks failed. Run the suggested commands to fix.")
		return fmt.Errorf("doctor found issues")
	}

	fmt.Println()
	fmt.Println("All checks passed.")
	return nil
}
