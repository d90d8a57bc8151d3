package main

import (
	"github.com/spf13/cobra"

	"github.com/livinlefevreloca/biosync/internal/config"
)

// rootOptions are the flags shared by every subcommand
type rootOptions struct {
	configFile string
	envFile    string
	logLevel   string
}

// load reads the config file, the env overlay and the flag overrides
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configFile, o.envFile)
	if err != nil {
		return nil, err
	}

	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "biosync",
		Short: "Sync biometric punch records to the attendance API",
		Long: `biosync reads unsynced biometric punches from the attendance database,
posts them to the remote punch API and marks the accepted transactions as synced.

Examples:
  biosync run --config biosync.toml
  biosync serve --config biosync.toml --env config/.env
  biosync check-db`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "path to configuration file (TOML)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env", "", "path to .env file (default: "+config.DefaultEnvFile+" if present)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newCheckDBCmd(opts))

	return cmd
}
