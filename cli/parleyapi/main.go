package main

import (
	"os"

	servecmder "github.com/parleylabs/parley/cmd/parley/serve"
)

func main() {
	cmd := servecmder.NewServeCmd()
	cmd.Use = "parleyapi"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory containing the .parley config (default: local, then home)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
