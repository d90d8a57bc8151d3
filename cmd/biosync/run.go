package main

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/livinlefevreloca/biosync/internal/orchestrator"
)

var errRunFailed = errors.New("sync run failed")

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one sync now and print the result",
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

			if err := a.buildEngine(cmd.Context()); err != nil {
				a.logger.Error("cannot start sync", "error", err)
				return err
			}

			result := a.engine.RunOnce(cmd.Context(), orchestrator.TriggerManual)

			out, err := json.Marshal(result)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if !result.Success {
				return fmt.Errorf("%w: %s", errRunFailed, result.Message)
			}
			return nil
		},
	}
}
