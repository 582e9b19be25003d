// Package historycmder provides the history command for inspecting
// recorded chat sessions.
package historycmder

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/parleylabs/parley/pkg/config"
	"github.com/parleylabs/parley/pkg/dotdir"
	"github.com/parleylabs/parley/pkg/history"
	"github.com/parleylabs/parley/pkg/history/postgres"
	"github.com/parleylabs/parley/pkg/history/sqlite"
)

const historyLongDesc string = `Inspect recorded chat sessions.

Sessions are recorded by "parley chat" into the configured history store
(SQLite by default, in the .parley/ directory).

Use subcommands to list sessions or show a session transcript:
  parley history list              List all sessions
  parley history show <session>    Show a session transcript

Examples:
  parley history list
  parley history show 4f7c21aa-8a2e-4d0f-9c3b-0d8f2f1f6a21`

const historyShortDesc string = "Inspect recorded chat sessions"

// historyFlags are the registry keys bound to viper for the subcommands.
var historyFlags = []string{
	config.FlagDriver,
	config.FlagSQLite,
	config.FlagPostgres,
}

// storeSettings carries the resolved storage configuration shared by the
// list and show subcommands.
type storeSettings struct {
	driver      string
	sqlitePath  string
	postgresDSN string
	configDir   string
}

func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())

	return cmd
}

// resolveSettings loads the storage configuration for a subcommand.
func resolveSettings(cmd *cobra.Command) (*storeSettings, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, historyFlags)

	return &storeSettings{
		driver:      v.GetString("storage.driver"),
		sqlitePath:  v.GetString("storage.sqlite_path"),
		postgresDSN: v.GetString("storage.postgres_dsn"),
		configDir:   configDir,
	}, nil
}

// openStore builds the history store for the resolved settings. The
// in-memory driver is rejected here: it never holds anything a separate
// process could have recorded.
func (s *storeSettings) openStore(ctx context.Context) (history.Store, error) {
	switch s.driver {
	case "sqlite", "":
		path := s.sqlitePath
		if path == "" {
			target, err := dotdir.NewManager().Target(s.configDir)
			if err != nil {
				return nil, err
			}
			if target == "" {
				return nil, fmt.Errorf("no .parley directory found; nothing recorded yet")
			}
			path = filepath.Join(target, "history.db")
		}
		return sqlite.NewStore(path)
	case "postgres":
		if s.postgresDSN == "" {
			return nil, fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
		return postgres.NewStore(ctx, s.postgresDSN)
	case "inmemory":
		return nil, fmt.Errorf("the inmemory driver holds no history across processes; use sqlite or postgres")
	default:
		return nil, fmt.Errorf("unsupported storage driver %q (expected sqlite or postgres)", s.driver)
	}
}
