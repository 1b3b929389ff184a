package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactor/pkg/scenario"
)

func runCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario",
		Long: `Run a scenario file and print its event log.

The command fails on the first expectation that does not hold.
Engine settings come from reactor.json in the working directory
and REACTOR_* environment variables.

Examples:
  reactor run cart.yaml
  reactor run --quiet cart.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runScenario(ctx, cmd, args[0], quiet)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the summary")

	return cmd
}

func runScenario(ctx context.Context, cmd *cobra.Command, file string, quiet bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sc, err := scenario.Load(file)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	u := newUniverse(cfg, newLogger(cfg, cmd.ErrOrStderr()), nil)
	log := out
	if quiet {
		log = nil
	}
	res, err := scenario.Run(ctx, sc, u, log, scenario.WithHistoryLimit(cfg.History.Limit))
	if err != nil {
		return err
	}

	success(out, "%s passed", sc.Name)
	info(out, "%d steps, %d expectations", res.Steps, res.Expectations)
	return nil
}
