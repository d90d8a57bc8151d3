package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const checkDBTimeout = 15 * time.Second

func newCheckDBCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-db",
		Short: "Verify the attendance database connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			a, err := newApp(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.openSource(); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Database connection failed: %v\n", err)
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), checkDBTimeout)
			defer cancel()

			if err := a.source.PingContext(ctx); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Database connection failed: %v\n", err)
				return err
			}

			a.logger.Info("database connection verified", "driver", cfg.Source.Driver)
			fmt.Fprintln(cmd.OutOrStdout(), "Database connection successful.")
			return nil
		},
	}
}
