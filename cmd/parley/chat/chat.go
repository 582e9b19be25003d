// Package chatcmder provides the chat command for interactive sessions
// against the parley API server.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/parleylabs/parley/pkg/client"
	"github.com/parleylabs/parley/pkg/cliui"
	"github.com/parleylabs/parley/pkg/config"
	"github.com/parleylabs/parley/pkg/dotdir"
	"github.com/parleylabs/parley/pkg/history"
	"github.com/parleylabs/parley/pkg/history/inmemory"
	"github.com/parleylabs/parley/pkg/history/postgres"
	"github.com/parleylabs/parley/pkg/history/sqlite"
	"github.com/parleylabs/parley/pkg/llm"
	"github.com/parleylabs/parley/pkg/logger"
	"github.com/parleylabs/parley/pkg/utils"
)

const sessionTitleLen = 48

var (
	userPrompt      = cliui.UserStyle.Render("you> ")
	assistantPrompt = cliui.AssistantStyle.Render("assistant> ")
)

type chatCommander struct {
	apiTarget      string
	stream         bool
	tui            bool
	timeoutSeconds uint
	storageDriver  string
	sqlitePath     string
	postgresDSN    string
	debug          bool
	configDir      string

	logger *slog.Logger
	client *client.Client
	store  history.Store
	sess   *history.Session
}

const chatLongDesc string = `Start an interactive chat session against the parley API server.

Each message is sent to the server's query endpoint; with --stream the
response arrives token-by-token over SSE and is displayed as it grows.
The conversation is recorded in the history store (see "parley history").

If the stream fails mid-response, the partial text received so far is
kept and shown alongside the error - nothing streamed is thrown away.

Examples:
  parley chat
  parley chat --stream
  parley chat --tui --stream
  parley chat --api-target http://localhost:9000`

const chatShortDesc string = "Interactive chat against the parley API server"

// chatFlags are the registry keys bound to viper for this command.
var chatFlags = []string{
	config.FlagAPITarget,
	config.FlagStream,
	config.FlagDriver,
	config.FlagSQLite,
	config.FlagPostgres,
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, chatFlags)

			cmder.apiTarget = v.GetString("client.api_target")
			cmder.stream = v.GetBool("client.stream")
			cmder.timeoutSeconds = v.GetUint("client.timeout_seconds")
			cmder.storageDriver = v.GetString("storage.driver")
			cmder.sqlitePath = v.GetString("storage.sqlite_path")
			cmder.postgresDSN = v.GetString("storage.postgres_dsn")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	config.AddBoolFlag(cmd, config.Flags, config.FlagStream, &cmder.stream)
	config.AddStringFlag(cmd, config.Flags, config.FlagDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &cmder.postgresDSN)
	cmd.Flags().BoolVar(&cmder.tui, "tui", false, "Use the full-screen terminal UI")

	return cmd
}

func (c *chatCommander) run() error {
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithWriter(os.Stderr))
	c.client = client.NewClient(c.apiTarget,
		client.WithTimeout(time.Duration(c.timeoutSeconds)*time.Second),
		client.WithLogger(c.logger),
	)

	fmt.Println()
	err := cliui.Step(os.Stdout, fmt.Sprintf("checking API at %s", c.apiTarget), func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return c.client.Health(ctx)
	})
	if err != nil {
		return fmt.Errorf("API server unreachable (is \"parley serve\" running?): %w", err)
	}

	store, err := c.openStore()
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	c.store = store
	defer c.store.Close()

	interactive := term.IsTerminal(int(os.Stdin.Fd()))

	if c.tui {
		if !interactive {
			return fmt.Errorf("--tui requires an interactive terminal")
		}
		return c.runTUI()
	}

	if interactive {
		fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))
	}

	scanner := bufio.NewScanner(os.Stdin)

	for {
		if interactive {
			fmt.Print(userPrompt)
		}
		if !scanner.Scan() {
			// EOF or error
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

		var content string
		if c.stream {
			content = c.sendStreaming(input)
		} else {
			content = c.sendBlocking(input)
		}

		if content != "" {
			c.record(llm.RoleAssistant, content)
		}

		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// sendStreaming streams the response token-by-token to stdout and returns
// the assembled text. On failure the partial text is kept and returned.
func (c *chatCommander) sendStreaming(input string) string {
	fmt.Print(assistantPrompt)

	printed := 0
	outcome := c.client.QueryStream(context.Background(), input, func(text string) {
		fmt.Print(text[printed:])
		printed = len(text)
	})
	fmt.Println()

	if outcome.Err != nil {
		fmt.Printf("  %s %s\n",
			cliui.FailMark,
			cliui.ErrorStyle.Render(fmt.Sprintf("stream failed: %v (partial response kept)", outcome.Err)),
		)
	}

	return outcome.Text
}

// sendBlocking waits for the full answer and renders it as markdown.
func (c *chatCommander) sendBlocking(input string) string {
	var resp llm.ChatResponse
	err := cliui.Step(os.Stdout, "thinking", func() error {
		var qerr error
		resp, qerr = c.client.Query(context.Background(), input)
		return qerr
	})
	if err != nil {
		fmt.Printf("  %s %s\n", cliui.FailMark, cliui.ErrorStyle.Render(err.Error()))
		return ""
	}

	rendered, err := cliui.RenderMarkdown(resp.Content)
	if err != nil {
		rendered = resp.Content
	}
	fmt.Print(assistantPrompt)
	fmt.Println(strings.TrimRight(rendered, "\n"))

	return resp.Content
}

// record appends a message to the history store, creating the session on
// first use. Recording is best-effort: a storage failure never interrupts
// the conversation.
func (c *chatCommander) record(role, content string) {
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

// openStore builds the history store for the configured driver.
func (c *chatCommander) openStore() (history.Store, error) {
	switch c.storageDriver {
	case "sqlite":
		path, err := c.resolveSQLitePath()
		if err != nil {
			c.logger.Warn("no writable history location, using in-memory store", "error", err)
			return inmemory.NewStore(), nil
		}
		return sqlite.NewStore(path)
	case "postgres":
		if c.postgresDSN == "" {
			return nil, fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
		return postgres.NewStore(context.Background(), c.postgresDSN)
	case "inmemory", "":
		return inmemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q (expected inmemory, sqlite, or postgres)", c.storageDriver)
	}
}

// resolveSQLitePath returns the configured SQLite path, defaulting to
// history.db inside the resolved .parley/ directory.
func (c *chatCommander) resolveSQLitePath() (string, error) {
	if c.sqlitePath != "" {
		return c.sqlitePath, nil
	}

	target, err := dotdir.NewManager().Target(c.configDir)
	if err != nil {
		return "", err
	}
	if target == "" {
		return "", fmt.Errorf("no .parley directory available")
	}

	return filepath.Join(target, "history.db"), nil
}
