package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/lingo/cmd/lingo/cliconfig"
	modelscmder "github.com/papercomputeco/lingo/cmd/lingo/models"
	servecmder "github.com/papercomputeco/lingo/cmd/lingo/serve"
)

const rootLongDesc string = `lingo relays translation requests from the web app to an LLM backend.

A local Ollama server is relayed as is; Gemini is translated into the same
Ollama NDJSON streaming format. Running lingo without a subcommand starts
the server.`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "lingo",
		Short:        "Ollama-compatible relay for translation clients",
		Long:         rootLongDesc,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return servecmder.Run(cmd)
		},
	}

	cmd.PersistentFlags().String(cliconfig.ConfigFlag, "", "Path to a TOML config file (default ./lingo.toml if present)")
	cmd.PersistentFlags().Bool(cliconfig.DebugFlag, false, "Enable debug logging")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(modelscmder.NewModelsCmd())

	return cmd
}

func main() {
	// Seed the environment from .env; a missing file is fine.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
