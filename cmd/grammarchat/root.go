package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/grammarchat-server/internal/config"
	applog "github.com/vovakirdan/grammarchat-server/internal/log"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// environment is everything a subcommand needs from configuration.
type environment struct {
	cfg     config.Config
	secrets config.Secrets
	log     *zerolog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "grammarchat",
		Short:         "Grammar correction chat server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.yaml")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	serve := newServeCmd(opts)
	cmd.AddCommand(serve, newHistoryCmd(opts), newChatCmd())

	// Running without a subcommand serves, like the old single-purpose binary.
	cmd.RunE = serve.RunE
	cmd.Flags().AddFlagSet(serve.Flags())

	return cmd
}

// loadEnvironment reads config and secrets. Logs go to logOut so commands
// that print data keep stdout clean.
func loadEnvironment(opts *rootOptions, logOut io.Writer) (*environment, error) {
	bootstrap := applog.NewWithWriter(logOut, "info", "console")

	cfg, path, err := config.Load(bootstrap, opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.UpdateFrom(config.Config{LogLevel: opts.logLevel})

	secrets, err := config.LoadSecrets()
	if err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}

	logger := applog.NewWithWriter(logOut, cfg.LogLevel, cfg.LogFormat)
	logger.Debug().Str("config", path).Msg("configuration loaded")

	return &environment{cfg: cfg, secrets: secrets, log: logger}, nil
}
