package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/phazurlabs/openclaw-fortress/internal/config"
	"github.com/phazurlabs/openclaw-fortress/internal/tokenauth"
)

var initForce bool

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the state directory and a starter config",
	Long:  "Creates the state directory with safe permissions and writes a starter config.yaml with freshly generated gateway token and master key. Existing files are kept unless --force is given.",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := config.DefaultDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	content, err := defaultConfigYAML()
	if err != nil {
		return err
	}

	path := config.DefaultPath()
	wrote, err := writeIfMissing(path, content)
	if err != nil {
		return err
	}
	if !wrote {
		fmt.Printf("%s already exists; use --force to overwrite\n", path)
		return nil
	}

	fmt.Printf("wrote %s\n", path)
	fmt.Println("Review the llm section, then run: openclaw doctor")
	return nil
}

// writeIfMissing writes content to path with 0600 unless the file
// already exists and --force is off. Reports whether it wrote.
func writeIfMissing(path, content string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0600); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// defaultConfigYAML renders the starter config with fresh secrets.
func defaultConfigYAML() (string, error) {
	gwToken, err := tokenauth.GenerateToken(32)
	if err != nil {
		return "", err
	}
	masterKey, err := tokenauth.GenerateToken(32)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`# openclaw gateway configuration
# Secrets may also come from the environment:
#   OPENCLAW_GATEWAY_TOKEN, OPENCLAW_MASTER_KEY,
#   OPENCLAW_PII_HMAC_SECRET, OPENCLAW_LLM_API_KEY

gateway:
  listen: "127.0.0.1:8788"
  token: "%s"

llm:
  api_url: "https://api.openai.com/v1/chat/completions"
  api_key: ""
  model: "gpt-4o-mini"
  max_tokens: 1024
  system_prompt: "You are a helpful assistant reachable over chat."

security:
  master_key: "%s"
  session_max_age_seconds: 86400

# Channels with no section run open (any sender, default rate limit).
channels:
  messaging:
    allowed_numbers: []
    rate_limit_per_minute: 10

retention:
  audit_max_age_days: 90
`, gwToken, masterKey), nil
}
