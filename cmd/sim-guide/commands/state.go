package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turnono/sim/internal/config"
	"github.com/turnono/sim/internal/sessionstore"
	"github.com/turnono/sim/internal/storage"
	"github.com/turnono/sim/pkg/types"
)

var stateSessionID string

var stateCmd = &cobra.Command{
	Use:   "state <userID>",
	Short: "Inspect a user's stored session state",
	Long: `Print a stored session's state grouped by namespace. Without
--session the most recently updated session is shown.`,
	Args: cobra.ExactArgs(1),
	RunE: runState,
}

func init() {
	stateCmd.Flags().StringVar(&stateSessionID, "session", "", "Session ID (defaults to the most recent)")
}

func runState(cmd *cobra.Command, args []string) error {
	userID := args[0]

	cfg, err := config.Load(directory)
	if err != nil {
		return err
	}
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = config.GetPaths().StoragePath()
	}
	store := sessionstore.NewFileStore(storage.New(dataDir))

	ctx := context.Background()
	var sess *types.Session
	if stateSessionID != "" {
		sess, err = store.Get(ctx, cfg.AppID, userID, stateSessionID)
		if err != nil {
			return err
		}
	} else {
		sessions, err := store.List(ctx, cfg.AppID, userID)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			return fmt.Errorf("no sessions for user %s", userID)
		}
		sess = sessions[0]
	}

	out := map[string]any{
		"id":               sess.ID,
		"events":           len(sess.Events),
		"migrationVersion": sess.State.MigrationVersion(),
		"profile":          sess.State.Profile(),
		"system":           sess.State.System(),
		"temp":             sess.State.Temp(),
		"session":          sess.State.Local(),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
