// Package echocmder provides the echo command, a fully offline chat loop
// backed by the echo provider. Useful for trying the chat flow without a
// running API server or an API key.
package echocmder

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parleylabs/parley/pkg/cliui"
	"github.com/parleylabs/parley/pkg/config"
	"github.com/parleylabs/parley/pkg/dotdir"
	"github.com/parleylabs/parley/pkg/history"
	"github.com/parleylabs/parley/pkg/history/inmemory"
	"github.com/parleylabs/parley/pkg/history/sqlite"
	"github.com/parleylabs/parley/pkg/llm"
	"github.com/parleylabs/parley/pkg/llm/provider/echo"
	"github.com/parleylabs/parley/pkg/logger"
	"github.com/parleylabs/parley/pkg/utils"
)

const sessionTitleLen = 48

var (
	userPrompt      = cliui.UserStyle.Render("you> ")
	assistantPrompt = cliui.AssistantStyle.Render("assistant> ")
)

const echoLongDesc string = `Start an offline echo chat session.

Every message is answered with "Echo: <message>", streamed word-by-word
the same way a real provider response would be. No server, network, or
API key involved. The conversation is still recorded in the history
store (see "parley history").

Examples:
  parley echo`

const echoShortDesc string = "Offline echo chat session"

type echoCommander struct {
	storageDriver string
	sqlitePath    string
	configDir     string
	debug         bool

	logger *slog.Logger
	store  history.Store
	sess   *history.Session
}

func NewEchoCmd() *cobra.Command {
	cmder := &echoCommander{}

	cmd := &cobra.Command{
		Use:   "echo",
		Short: echoShortDesc,
		Long:  echoLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}

			cmder.storageDriver = v.GetString("storage.driver")
			cmder.sqlitePath = v.GetString("storage.sqlite_path")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			return cmder.run()
		},
	}

	return cmd
}

func (c *echoCommander) run() error {
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithWriter(os.Stderr))

	c.store = c.openStore()
	defer c.store.Close()

	prov := echo.New()

	fmt.Println()
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Echo mode. Type your message and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		c.record(llm.RoleUser, input)

		fmt.Print(assistantPrompt)
		resp, err := prov.ChatStream(context.Background(), llm.NewPromptRequest("", input), func(delta string) error {
			fmt.Print(delta)
			return nil
		})
		if err != nil {
			fmt.Printf("\n  %s %v\n", cliui.FailMark, err)
		} else {
			c.record(llm.RoleAssistant, resp.Content)
		}
		fmt.Println()
		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// record appends a message to the history store, creating the session on
// first use. Best-effort: a storage failure never interrupts the loop.
func (c *echoCommander) record(role, content string) {
	ctx := context.Background()

	if c.sess == nil {
		sess := history.NewSession(utils.Truncate(content, sessionTitleLen))
		if err := c.store.CreateSession(ctx, sess); err != nil {
			c.logger.Warn("failed to create history session", "error", err)
			return
		}
		c.sess = sess
	}

	msg := &history.Message{
		SessionID: c.sess.ID,
		Role:      role,
		Content:   content,
	}
	if err := c.store.AppendMessage(ctx, msg); err != nil {
		c.logger.Warn("failed to record message", "role", role, "error", err)
	}
}

// openStore opens the sqlite history store at the configured path,
// falling back to an in-memory store when no location is writable. The
// postgres driver is left to "parley chat"; an offline echo session
// should not need a database server.
func (c *echoCommander) openStore() history.Store {
	if c.storageDriver != "sqlite" && c.storageDriver != "" {
		return inmemory.NewStore()
	}

	path := c.sqlitePath
	if path == "" {
		target, err := dotdir.NewManager().Target(c.configDir)
		if err != nil || target == "" {
			c.logger.Debug("no .parley directory, using in-memory store")
			return inmemory.NewStore()
		}
		path = filepath.Join(target, "history.db")
	}

	store, err := sqlite.NewStore(path)
	if err != nil {
		c.logger.Warn("failed to open history store, using in-memory store", "error", err)
		return inmemory.NewStore()
	}
	return store
}
