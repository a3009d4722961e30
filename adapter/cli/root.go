package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/felixgeelhaar/cadence/pkg/observability"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	cfgFile string
	verbose bool
	logger  *slog.Logger
)

type commandContextKey struct{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cadence",
	Short: "Cadence - recurring events and scheduling",
	Long: `Cadence keeps a calendar of single and recurring events and
answers scheduling questions about it: conflicts, free slots,
working patterns and suggestions.

Recurring events are stored once and expanded on read, so edits
can target one occurrence, the whole series, or an occurrence and
everything after it.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if logger == nil {
			logger = slog.Default()
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx = observability.WithCorrelationID(ctx, "")
		ctx = context.WithValue(ctx, commandContextKey{}, time.Now())
		cmd.SetContext(ctx)
		logger.Debug("command start",
			"command", cmd.CommandPath(),
			"correlation_id", observability.CorrelationIDFromContext(ctx),
		)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger == nil {
			logger = slog.Default()
		}
		startedAt, ok := cmd.Context().Value(commandContextKey{}).(time.Time)
		if !ok {
			return
		}
		logger.Debug("command end",
			"command", cmd.CommandPath(),
			"correlation_id", observability.CorrelationIDFromContext(cmd.Context()),
			"duration_ms", time.Since(startedAt).Milliseconds(),
		)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "profile file path (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// ConfigFile returns the --config flag value.
func ConfigFile() string {
	return cfgFile
}

// PeekConfigFile reads --config from args before the command tree runs, so
// the container can be built with the selected profile. Other flags are
// ignored.
func PeekConfigFile(args []string) string {
	fs := pflag.NewFlagSet("peek", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	var path string
	fs.StringVarP(&path, "config", "c", "", "")
	_ = fs.Parse(args)
	return path
}

// Verbose reports whether --verbose was set.
func Verbose() bool {
	return verbose
}

// AddCommand adds a command to the root command.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

// SetLogger sets the CLI logger.
func SetLogger(l *slog.Logger) {
	logger = l
}
