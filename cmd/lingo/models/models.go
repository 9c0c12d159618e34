package modelscmder

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/lingo/adapter"
	"github.com/papercomputeco/lingo/cmd/lingo/cliconfig"
	"github.com/papercomputeco/lingo/pkg/config"
	"github.com/papercomputeco/lingo/pkg/llm"
)

const modelsLongDesc string = `List the models offered by the configured backend.

Uses the same configuration as "lingo serve" and prints what /api/tags would
return: each model's name, family and parameter size. With --quiet only the
names are printed, one per line.

Examples:
  lingo models
  lingo models --quiet
  LLM_PROVIDER=gemini GEMINI_API_KEY=... lingo models`

const modelsShortDesc string = "List backend models"

type modelsCommander struct {
	provider string
	quiet    bool
}

func NewModelsCmd() *cobra.Command {
	cmder := &modelsCommander{}

	cmd := &cobra.Command{
		Use:   "models",
		Short: modelsShortDesc,
		Long:  modelsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cliconfig.Resolve(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("provider") {
				cfg.Provider = cmder.provider
			}
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}

	cmd.Flags().StringVarP(&cmder.provider, "provider", "p", "", "Backend provider: ollama or gemini")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Print model names only")

	return cmd
}

func (c *modelsCommander) run(ctx context.Context, out io.Writer, cfg *config.Config) error {
	logger := cliconfig.Logger(cfg)
	defer func() { _ = logger.Sync() }()

	a, err := adapter.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("could not create adapter: %w", err)
	}

	list, err := a.ListModels(ctx)
	if err != nil {
		logger.Debug("list models failed", zap.Error(err))
		return fmt.Errorf("could not list models from %s: %w", a.Kind().DisplayName(), err)
	}

	if c.quiet {
		for _, name := range list.Names() {
			fmt.Fprintln(out, name)
		}
		return nil
	}
	printModels(out, a.Kind(), list)
	return nil
}

func printModels(out io.Writer, kind adapter.Kind, list *llm.ModelList) {
	cyan := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)

	if len(list.Models) == 0 {
		dim.Fprintf(out, "No models available from %s.\n", kind.DisplayName())
		return
	}

	cyan.Fprintf(out, "%s models (%d)\n", kind.DisplayName(), len(list.Models))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFAMILY\tSIZE")
	for _, m := range list.Models {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Name, orDash(m.Details.Family), orDash(m.Details.ParameterSize))
	}
	_ = tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
