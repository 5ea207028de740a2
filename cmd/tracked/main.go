// Command tracked serves and demonstrates a reactive tracked store.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vango-dev/tracked/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		logLevel string
		logJSON  bool
	)

	rootCmd := &cobra.Command{
		Use:   "tracked",
		Short: "Reactive property tracking for Go values",
		Long: `Tracked wraps a plain value so that reads inside a tracking pass
are recorded and writes re-run every reaction that read the field.

  • serve   exposes one tracked store over HTTP and WebSocket
  • demo    runs a small counter in the terminal`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("log-level") || logJSON {
				level, err := parseLogLevel(logLevel)
				if err != nil {
					return err
				}
				slog.SetDefault(newLogger(cmd.ErrOrStderr(), level, logJSON))
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON")

	rootCmd.AddCommand(
		serveCmd(),
		demoCmd(),
		versionCmd(),
	)

	return rootCmd
}

// newLogger builds the process logger.
func newLogger(w io.Writer, level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, errors.New("E106").
			WithDetail(fmt.Sprintf("Unknown log level %q", s))
	}
	return level, nil
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
