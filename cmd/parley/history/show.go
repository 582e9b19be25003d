package historycmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parleylabs/parley/pkg/cliui"
	"github.com/parleylabs/parley/pkg/config"
	"github.com/parleylabs/parley/pkg/history"
	"github.com/parleylabs/parley/pkg/llm"
)

const showLongDesc string = `Show the transcript of a recorded chat session.

The session may be identified by its full UUID or by a unique prefix.

Examples:
  parley history show 4f7c21aa
  parley history show 4f7c21aa-8a2e-4d0f-9c3b-0d8f2f1f6a21`

const showShortDesc string = "Show a session transcript"

func newShowCmd() *cobra.Command {
	var driver, sqlitePath, postgresDSN string

	cmd := &cobra.Command{
		Use:   "show <session>",
		Short: showShortDesc,
		Long:  showLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := resolveSettings(cmd)
			if err != nil {
				return err
			}
			return runShow(settings, args[0])
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagDriver, &driver)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &postgresDSN)

	return cmd
}

func runShow(settings *storeSettings, sessionRef string) error {
	ctx := context.Background()

	store, err := settings.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	sessionID, err := resolveSessionID(ctx, store, sessionRef)
	if err != nil {
		return err
	}

	msgs, err := store.Messages(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("loading transcript: %w", err)
	}

	fmt.Println()
	for _, msg := range msgs {
		prompt := cliui.AssistantStyle.Render("assistant> ")
		if msg.Role == llm.RoleUser {
			prompt = cliui.UserStyle.Render("you> ")
		}
		fmt.Printf("  %s%s\n\n", prompt, msg.Content)
	}

	return nil
}

// resolveSessionID expands a session reference (full UUID or unique
// prefix) into a stored session ID.
func resolveSessionID(ctx context.Context, store history.Store, ref string) (string, error) {
	sessions, err := store.Sessions(ctx)
	if err != nil {
		return "", fmt.Errorf("listing sessions: %w", err)
	}

	var matches []string
	for _, sess := range sessions {
		if sess.ID == ref {
			return sess.ID, nil
		}
		if strings.HasPrefix(sess.ID, ref) {
			matches = append(matches, sess.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no session matching %q", ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("session reference %q is ambiguous (%d matches)", ref, len(matches))
	}
}
