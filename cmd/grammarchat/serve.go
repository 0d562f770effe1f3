package main

import (
	"github.com/spf13/cobra"

	"github.com/vovakirdan/grammarchat-server/internal/app"
	"github.com/vovakirdan/grammarchat-server/internal/config"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := loadEnvironment(root, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			env.cfg.UpdateFrom(config.Config{Addr: addr})

			ctx := cmd.Context()
			application, err := app.New(ctx, &env.cfg, env.secrets, env.log)
			if err != nil {
				return err
			}

			env.log.Info().
				Str("addr", env.cfg.Addr).
				Str("provider", env.cfg.Completion.Provider).
				Str("model", env.cfg.Completion.Model).
				Msg("starting grammarchat server")
			if err := application.Run(ctx); err != nil {
				env.log.Error().Err(err).Msg("server exited with error")
				return err
			}
			env.log.Info().Msg("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")

	return cmd
}
