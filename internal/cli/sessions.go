package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/phazurlabs/openclaw-fortress/internal/persist"
)

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsPruneCmd)
	rootCmd.AddCommand(sessionsCmd)
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect persisted sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted sessions",
	RunE:  runSessionsList,
}

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired session files",
	RunE:  runSessionsPrune,
}

func openPersist() (*persist.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Security.MasterKey == "" {
		return nil, fmt.Errorf("no master key configured, nothing is persisted")
	}
	return persist.NewStore(cfg.SessionsDir(), cfg.Security.StateDir, cfg.Security.MasterKey)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	store, err := openPersist()
	if err != nil {
		return err
	}

	ids, err := store.List()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("no persisted sessions")
		return nil
	}

	for _, id := range ids {
		s, err := store.Load(id)
		if err != nil {
			fmt.Printf("%s  (unreadable: %v)\n", id, err)
			continue
		}
		state := "active"
		if s.Expired(time.Now()) {
			state = "expired"
		}
		fmt.Printf("%s  channel=%s contact=%s turns=%d %s\n",
			s.ID, s.Channel, s.ContactID, len(s.History), state)
	}
	return nil
}

func runSessionsPrune(cmd *cobra.Command, args []string) error {
	store, err := openPersist()
	if err != nil {
		return err
	}
	pruned, err := store.PruneExpired(time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("pruned %d expired sessions\n", pruned)
	return nil
}
