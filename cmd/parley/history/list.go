package historycmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parleylabs/parley/pkg/cliui"
	"github.com/parleylabs/parley/pkg/config"
	"github.com/parleylabs/parley/pkg/utils"
)

const listLongDesc string = `List recorded chat sessions, newest first.

Examples:
  parley history list
  parley history list --storage-driver postgres --postgres-dsn postgres://localhost/parley`

const listShortDesc string = "List recorded chat sessions"

func newListCmd() *cobra.Command {
	var driver, sqlitePath, postgresDSN string

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := resolveSettings(cmd)
			if err != nil {
				return err
			}
			return runList(settings)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagDriver, &driver)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &postgresDSN)

	return cmd
}

func runList(settings *storeSettings) error {
	ctx := context.Background()

	store, err := settings.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("No sessions recorded yet. Start one with \"parley chat\"."))
		return nil
	}

	fmt.Println()
	for _, sess := range sessions {
		fmt.Printf("  %s  %s  %s\n",
			cliui.KeyStyle.Render(utils.Truncate(sess.ID, 8)),
			cliui.DimStyle.Render(sess.CreatedAt.Local().Format("2006-01-02 15:04")),
			cliui.ValueStyle.Render(sess.Title),
		)
	}
	fmt.Println()

	return nil
}
