// Package parleycmder
package parleycmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/parleylabs/parley/cmd/parley/chat"
	configcmder "github.com/parleylabs/parley/cmd/parley/config"
	echocmder "github.com/parleylabs/parley/cmd/parley/echo"
	historycmder "github.com/parleylabs/parley/cmd/parley/history"
	servecmder "github.com/parleylabs/parley/cmd/parley/serve"
	versioncmder "github.com/parleylabs/parley/cmd/version"
)

const parleyLongDesc string = `Parley is a small LLM chat stack: an API server that forwards prompts
to a provider, and a terminal client that talks to it.

Run services and sessions using:
  parley serve     Run the API server
  parley chat      Chat against a running API server
  parley echo      Offline echo chat (no server needed)
  parley history   Inspect recorded chat sessions
  parley config    Manage persistent configuration`

const parleyShortDesc string = "Parley - chat with an LLM through your own API server"

func NewParleyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parley",
		Short: parleyShortDesc,
		Long:  parleyLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory containing the .parley config (default: local, then home)")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(echocmder.NewEchoCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
