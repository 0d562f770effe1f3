package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/grammarchat-server/internal/app"
	"github.com/vovakirdan/grammarchat-server/internal/core"
	"github.com/vovakirdan/grammarchat-server/internal/export"
)

// withStore opens the configured store, loads the log and hands it to fn.
// It is meant for use while the server is stopped.
func withStore(cmd *cobra.Command, root *rootOptions, fn func(ctx context.Context, st *core.MessageStore) error) error {
	env, err := loadEnvironment(root, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	kv, err := app.OpenStore(ctx, &env.cfg, env.secrets)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			env.log.Warn().Err(err).Msg("failed to close store")
		}
	}()

	st := core.NewMessageStore(kv, env.cfg.Storage.Key, nil, env.log)
	st.Load(ctx)
	return fn(ctx, st)
}

func newHistoryCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or edit the saved conversation",
	}
	cmd.AddCommand(
		newHistoryListCmd(root),
		newHistoryDeleteCmd(root),
		newHistoryClearCmd(root),
		newHistoryExportCmd(root),
	)
	return cmd
}

func newHistoryListCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every message, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, root, func(_ context.Context, st *core.MessageStore) error {
				return printHistory(cmd.OutOrStdout(), st.List())
			})
		},
	}
}

func printHistory(w io.Writer, msgs []core.Message) error {
	if len(msgs) == 0 {
		_, err := fmt.Fprintln(w, renderNote("No history yet."))
		return err
	}
	for _, m := range msgs {
		if _, err := fmt.Fprintf(w, "%s\n\n", renderMessage(m)); err != nil {
			return err
		}
	}
	return nil
}

func newHistoryDeleteCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove one message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid message id %q", args[0])
			}
			return withStore(cmd, root, func(ctx context.Context, st *core.MessageStore) error {
				if !st.Remove(ctx, id) {
					return fmt.Errorf("message %d: %w", id, core.ErrNotFound)
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted message %d\n", id)
				return err
			})
		},
	}
}

func newHistoryClearCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the whole conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, root, func(ctx context.Context, st *core.MessageStore) error {
				n := st.Len()
				st.Clear(ctx)
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "cleared %d messages\n", n)
				return err
			})
		},
	}
}

func newHistoryExportCmd(root *rootOptions) *cobra.Command {
	var (
		format string
		output string
		noTime bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the conversation as Markdown or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := export.DefaultOptions()
			opts.IncludeTimestamps = !noTime
			exporter, err := export.ForFormat(format, opts)
			if err != nil {
				return err
			}

			return withStore(cmd, root, func(_ context.Context, st *core.MessageStore) error {
				data, err := exporter.Export(st.List())
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				if output == "" || output == "-" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				_, err = fmt.Fprintf(cmd.ErrOrStderr(), "exported %d messages to %s\n", st.Len(), output)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", export.FormatMarkdown, "output format (md or json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&noTime, "no-timestamps", false, "omit message timestamps")

	return cmd
}
