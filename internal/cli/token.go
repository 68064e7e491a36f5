package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phazurlabs/openclaw-fortress/internal/tokenauth"
)

var tokenBytes int

func init() {
	tokenCmd.AddCommand(tokenGenerateCmd)
	tokenGenerateCmd.Flags().IntVar(&tokenBytes, "bytes", 32, "token length in random bytes")
	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage gateway tokens",
}

var tokenGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a high-entropy token",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := tokenauth.GenerateToken(tokenBytes)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}
