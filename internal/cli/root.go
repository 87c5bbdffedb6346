// Package cli holds the gymplanner commands. The root command runs the
// terminal UI. plan, history and status are one-shot commands that open the
// runtime, wait for the remote document, act and flush before exiting; logs
// only reads the log file.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/makstermee/Gym-planner/internal/app"
)

type rootOptions struct {
	base        app.Options
	configPath  string
	prefsPath   string
	envFile     string
	identity    string
	logToStderr bool
}

func (o *rootOptions) appOptions() app.Options {
	opts := o.base
	if o.configPath != "" {
		opts.ConfigPath = o.configPath
	}
	if o.prefsPath != "" {
		opts.PrefsPath = o.prefsPath
	}
	if o.envFile != "" {
		opts.EnvFile = o.envFile
	}
	if o.identity != "" {
		opts.Identity = o.identity
	}
	opts.LogToStderr = opts.LogToStderr || o.logToStderr
	return opts
}

// NewRootCommand builds the command tree. Flags are applied on top of base.
func NewRootCommand(base app.Options) *cobra.Command {
	o := &rootOptions{base: base}

	root := &cobra.Command{
		Use:           "gymplanner",
		Short:         "Weekly training plans and workout logging, synced across devices",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), o.appOptions())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&o.configPath, "config", "", "config file (default ~/.config/gymplanner/config.toml)")
	flags.StringVar(&o.prefsPath, "prefs", "", "preferences file (default ~/.config/gymplanner/prefs.toml)")
	flags.StringVar(&o.envFile, "env-file", "", "dotenv file with overrides (default ./.env)")
	flags.StringVarP(&o.identity, "identity", "i", "", "user identity, overrides the config")
	flags.BoolVar(&o.logToStderr, "log-stderr", false, "write logs to stderr instead of the log file")

	root.AddCommand(
		newPlanCommand(o),
		newHistoryCommand(o),
		newStatusCommand(o),
		newLogsCommand(o),
	)
	return root
}

// Execute runs the command line with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand(app.Options{}).ExecuteContext(ctx)
}
