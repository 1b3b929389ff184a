package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vango-dev/reactor/internal/config"
	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/pkg/reactive"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reactor",
		Short: "Run and inspect reactive state scenarios",
		Long: `Reactor runs YAML scenarios against a reactive state container.

A scenario declares atoms, derived values and effects, then applies a
list of writes, transactions and undo steps while checking expectations.

  • run    executes a scenario and prints its event log
  • serve  keeps a scenario live behind the devtools inspector`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		runCmd(),
		serveCmd(),
		versionCmd(),
	)
	return root
}

// loadConfig reads reactor.json from the working directory.
func loadConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the slog logger described by cfg.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newUniverse builds a universe tuned by cfg. Metrics are registered with
// reg when enabled and reg is not nil.
func newUniverse(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) *reactive.Universe {
	opts := []reactive.UniverseOption{
		reactive.WithLogger(logger),
		reactive.WithRetrackEvery(cfg.Engine.RetrackEvery),
		reactive.WithMaxEffectReruns(cfg.Engine.MaxEffectReruns),
	}
	if cfg.Engine.GoroutineCheck {
		opts = append(opts, reactive.WithGoroutineCheck())
	}
	if cfg.Metrics.Enabled && reg != nil {
		opts = append(opts,
			reactive.WithPrometheus(reg),
			reactive.WithMetricsNamespace(cfg.Metrics.Namespace),
		)
	}
	return reactive.New(opts...)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
