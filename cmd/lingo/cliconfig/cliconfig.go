// Package cliconfig resolves configuration and logging for lingo commands from
// the persistent root flags, the config file and the environment.
package cliconfig

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/lingo/pkg/config"
	"github.com/papercomputeco/lingo/pkg/logger"
)

const (
	// ConfigFlag names the persistent flag holding the config file path.
	ConfigFlag = "config"
	// DebugFlag names the persistent flag enabling debug logging.
	DebugFlag = "debug"

	// DefaultConfigFile is read when present and no --config is given.
	DefaultConfigFile = "lingo.toml"
)

// Resolve loads the configuration for cmd. Flags win over the environment,
// which wins over the config file.
func Resolve(cmd *cobra.Command) (*config.Config, error) {
	var path string
	if f := cmd.Flags().Lookup(ConfigFlag); f != nil {
		path = f.Value.String()
	}
	if path == "" {
		if _, statErr := os.Stat(DefaultConfigFile); statErr == nil {
			path = DefaultConfigFile
		}
	}

	cfg, err := config.Load(path, os.LookupEnv)
	if err != nil {
		return nil, fmt.Errorf("could not load configuration: %w", err)
	}

	if f := cmd.Flags().Lookup(DebugFlag); f != nil && f.Changed {
		cfg.Debug, _ = cmd.Flags().GetBool(DebugFlag)
	}

	return cfg, nil
}

// Logger builds the process logger for cfg.
func Logger(cfg *config.Config) *zap.Logger {
	return logger.New(logger.Options{
		Debug:  cfg.Debug,
		Format: cfg.LogFormat,
	})
}
