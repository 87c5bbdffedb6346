package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/makstermee/Gym-planner/internal/config"
	"github.com/makstermee/Gym-planner/internal/logtail"
)

var errLogFileDisabled = errors.New("logging to a file is disabled (log_file is empty)")

func newLogsCommand(o *rootOptions) *cobra.Command {
	var (
		lines int
		level string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the end of the gymplanner log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, err := logrus.ParseLevel(level)
			if err != nil {
				return err
			}
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			if cfg.LogFile == "" {
				return errLogFileDisabled
			}
			path := cfg.LogFile
			if !strings.HasSuffix(path, ".log") {
				path += ".log"
			}
			tail, err := logtail.Tail(path, lines)
			if err != nil {
				return err
			}
			printLogLines(cmd.OutOrStdout(), logtail.Filter(tail, threshold))
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of lines to read from the end (0 reads all)")
	cmd.Flags().StringVarP(&level, "level", "l", "trace", "lowest level to show")
	return cmd
}

// loadConfig resolves the configuration the same way app.Open does, without
// building a runtime.
func (o *rootOptions) loadConfig() (config.Config, error) {
	opts := o.appOptions()
	if opts.Config != nil {
		return *opts.Config, nil
	}
	if err := config.LoadEnvFile(opts.EnvFile); err != nil {
		return config.Config{}, err
	}
	return config.Load(opts.ConfigPath)
}

var levelColors = map[logrus.Level]*color.Color{
	logrus.PanicLevel: color.New(color.FgRed, color.Bold),
	logrus.FatalLevel: color.New(color.FgRed, color.Bold),
	logrus.ErrorLevel: color.New(color.FgRed),
	logrus.WarnLevel:  color.New(color.FgYellow),
	logrus.DebugLevel: color.New(color.FgCyan),
	logrus.TraceLevel: color.New(color.Faint),
}

func printLogLines(w io.Writer, lines []string) {
	var current *color.Color
	for _, line := range lines {
		if lvl, ok := logtail.Level(line); ok {
			current = levelColors[lvl]
		}
		if current == nil {
			fmt.Fprintln(w, line)
			continue
		}
		current.Fprintln(w, line)
	}
}
