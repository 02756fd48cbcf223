// Package cli provides the command-line interface for taskward.
package cli

import (
	"github.com/spf13/cobra"

	"taskward/internal/app"
	"taskward/internal/config"
	"taskward/internal/logging"
)

type options struct {
	envFile string
}

// NewRootCommand creates the root command with the serve, sweep and migrate
// subcommands.
func NewRootCommand(version string) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "taskward",
		Short: "Recurring tasks with points and rewards",
		Long: `taskward schedules recurring tasks, awards points for completed
occurrences and lets users redeem the points for rewards.
The Telegram bot is started with "serve"; overdue occurrences are expired by
the periodic sweep or on demand with "sweep".`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(
		newServeCommand(opts),
		newSweepCommand(opts),
		newMigrateCommand(opts),
	)
	return root
}

// bootstrap loads the configuration and builds the application. Logs go to
// the command's stderr.
func bootstrap(cmd *cobra.Command, opts *options) (*app.App, error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	return app.New(cfg, log)
}
