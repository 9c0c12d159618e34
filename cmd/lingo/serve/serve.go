package servecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/lingo/adapter"
	"github.com/papercomputeco/lingo/cmd/lingo/cliconfig"
	"github.com/papercomputeco/lingo/pkg/config"
	"github.com/papercomputeco/lingo/server"
)

const serveLongDesc string = `Run the lingo relay server.

Serves the Ollama-compatible API (/api/tags, /api/chat, /api/generate) on top
of the configured backend, plus the translation app from the static directory.
Configuration comes from lingo.toml (or --config), the environment, and flags,
in increasing order of precedence.

Examples:
  lingo serve
  lingo serve --provider gemini --listen 127.0.0.1:3000
  lingo serve --test-mode`

const serveShortDesc string = "Run the relay server"

const shutdownTimeout = 10 * time.Second

type serveCommander struct {
	listen      string
	provider    string
	staticDir   string
	testMode    bool
	passthrough bool
}

func NewServeCmd() *cobra.Command {
	return newServeCmd(&serveCommander{})
}

func newServeCmd(cmder *serveCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address to listen on (default HOST:PORT)")
	cmd.Flags().StringVarP(&cmder.provider, "provider", "p", "", "Backend provider: ollama or gemini")
	cmd.Flags().StringVar(&cmder.staticDir, "static", "", "Directory of the built web app")
	cmd.Flags().BoolVar(&cmder.testMode, "test-mode", false, "Intercept and log API requests instead of calling the backend")
	cmd.Flags().BoolVar(&cmder.passthrough, "passthrough", false, "Forward other /api/* calls to Ollama")

	return cmd
}

// Run is the serve action, exposed so the root command can default to it.
func Run(cmd *cobra.Command) error {
	return (&serveCommander{}).run(cmd)
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	cfg, err := cliconfig.Resolve(cmd)
	if err != nil {
		return err
	}
	listenAddr := c.apply(cmd, cfg)

	logger := cliconfig.Logger(cfg)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := adapter.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to create adapter", zap.Error(err))
	}

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", listenAddr, err)
	}

	srv := server.New(server.Config{
		ListenAddr:  listenAddr,
		StaticDir:   cfg.StaticDir,
		TestMode:    cfg.TestMode,
		Passthrough: cfg.Passthrough,
	}, a, logger)

	printBanner(cmd.OutOrStdout(), ln.Addr().String(), a.Kind(), cfg)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown did not complete", zap.Error(err))
		}
	}()

	if err := srv.RunWithListener(ln); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// apply lays explicitly set flags over cfg and returns the listen address.
func (c *serveCommander) apply(cmd *cobra.Command, cfg *config.Config) string {
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Provider = c.provider
	}
	if flags.Changed("static") {
		cfg.StaticDir = c.staticDir
	}
	if flags.Changed("test-mode") {
		cfg.TestMode = c.testMode
	}
	if flags.Changed("passthrough") {
		cfg.Passthrough = c.passthrough
	}
	if flags.Changed("listen") {
		return c.listen
	}
	return cfg.ListenAddr()
}

func printBanner(w io.Writer, addr string, kind adapter.Kind, cfg *config.Config) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow, color.Bold)
	dim := color.New(color.FgHiBlack)

	fmt.Fprintln(w)
	cyan.Fprintln(w, "  lingo relay server")
	fmt.Fprintf(w, "  %s  %s\n", dim.Sprint("listening"), green.Sprint("http://"+addr))
	fmt.Fprintf(w, "  %s   %s\n", dim.Sprint("provider"), green.Sprint(kind.DisplayName()))
	switch kind {
	case adapter.KindGemini:
		fmt.Fprintf(w, "  %s      %s\n", dim.Sprint("model"), cfg.Gemini.Model)
	default:
		fmt.Fprintf(w, "  %s   %s\n", dim.Sprint("upstream"), cfg.Ollama.BaseURL())
	}
	fmt.Fprintf(w, "  %s     %s\n", dim.Sprint("static"), cfg.StaticDir)
	if cfg.TestMode {
		yellow.Fprintln(w, "  TEST MODE: API requests are intercepted and answered with 500")
	}
	fmt.Fprintln(w)
}
