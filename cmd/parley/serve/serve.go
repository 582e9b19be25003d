// Package servecmder provides the serve command for running the parley
// API server.
package servecmder

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/parleylabs/parley/api"
	"github.com/parleylabs/parley/pkg/config"
	"github.com/parleylabs/parley/pkg/llm/provider"
	"github.com/parleylabs/parley/pkg/logger"
)

type serveCommander struct {
	listen       string
	providerName string
	upstream     string
	model        string
	debug        bool
	configDir    string

	logger *slog.Logger
}

const serveLongDesc string = `Run the parley API server.

The server exposes three endpoints:
  GET  /health          Health check
  POST /query           Full answer in one response
  POST /query/stream    Answer streamed token-by-token as SSE

The LLM backend is selected with --provider. The "echo" provider works
fully offline; "openai" forwards to any OpenAI-compatible chat
completions endpoint and reads the API key from PARLEY_API_KEY (or
OPENAI_API_KEY as a fallback).

Examples:
  parley serve
  parley serve --listen :9000 --provider openai --model gpt-4o-mini
  PARLEY_LLM_PROVIDER=openai PARLEY_API_KEY=sk-... parley serve`

const serveShortDesc string = "Run the parley API server"

// serveFlags are the registry keys bound to viper for this command.
var serveFlags = []string{
	config.FlagListen,
	config.FlagProvider,
	config.FlagUpstream,
	config.FlagModel,
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)

			cmder.listen = v.GetString("api.listen")
			cmder.providerName = v.GetString("llm.provider")
			cmder.upstream = v.GetString("llm.upstream")
			cmder.model = v.GetString("llm.model")
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

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagProvider, &cmder.providerName)
	config.AddStringFlag(cmd, config.Flags, config.FlagUpstream, &cmder.upstream)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)

	return cmd
}

func (c *serveCommander) run() error {
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithJSON(true))

	prov, err := provider.New(c.providerName, provider.Config{
		Upstream: c.upstream,
		Model:    c.model,
		APIKey:   apiKeyFromEnv(),
	})
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}

	server := api.NewServer(api.Config{ListenAddr: c.listen}, prov, c.logger)

	// Watch the config file so operators get a clear signal that a change
	// needs a restart to apply. Server settings are bound at startup.
	watcher, err := c.watchConfig()
	if err != nil {
		c.logger.Warn("config watch unavailable", "error", err)
	} else if watcher != nil {
		defer watcher.Close()
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}

// watchConfig starts an fsnotify watcher on the resolved config file.
// Returns (nil, nil) when no config file exists.
func (c *serveCommander) watchConfig() (*fsnotify.Watcher, error) {
	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return nil, err
	}

	target := cfger.GetTarget()
	if target == "" {
		return nil, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(target); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					c.logger.Info("config file changed; restart serve to apply",
						"path", event.Name,
					)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				c.logger.Warn("config watch error", "error", err)
			}
		}
	}()

	return watcher, nil
}

// apiKeyFromEnv reads the provider API key from the environment. The key
// never lives in the config file.
func apiKeyFromEnv() string {
	if key := os.Getenv("PARLEY_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("OPENAI_API_KEY")
}
