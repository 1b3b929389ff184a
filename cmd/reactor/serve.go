package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vango-dev/reactor/pkg/devtools"
	"github.com/vango-dev/reactor/pkg/scenario"
)

func serveCmd() *cobra.Command {
	var (
		addr     string
		allAtoms bool
	)

	cmd := &cobra.Command{
		Use:   "serve [scenario.yaml]",
		Short: "Start the devtools inspector",
		Long: `Start the devtools inspector, optionally after running a scenario.

The scenario's atoms, derived values and effects stay live while the
server runs, so clients can list them and follow their changes.

Endpoints:
  GET /atoms        mirrored atoms
  GET /atoms/{id}   one atom with its value
  GET /ws           live change stream
  GET /metrics      Prometheus metrics

Examples:
  reactor serve
  reactor serve cart.yaml
  reactor serve --addr=0.0.0.0:7070 --all cart.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			file := ""
			if len(args) == 1 {
				file = args[0]
			}
			return runServe(ctx, cmd, file, addr, allAtoms)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (default from reactor.json)")
	cmd.Flags().BoolVar(&allAtoms, "all", false, "Mirror every atom, not only devtools ones")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, file, addr string, allAtoms bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Devtools.Addr = addr
	}
	if allAtoms {
		cfg.Devtools.AllAtoms = true
	}

	out := cmd.OutOrStdout()
	logger := newLogger(cfg, cmd.ErrOrStderr())
	reg := prometheus.NewRegistry()
	u := newUniverse(cfg, logger, reg)

	opts := []devtools.Option{devtools.WithLogger(logger), devtools.WithGatherer(reg)}
	if cfg.Devtools.AllAtoms {
		opts = append(opts, devtools.WithAllAtoms())
	}
	srv := devtools.NewServer(u, opts...)
	defer srv.Close()

	if file != "" {
		sc, err := scenario.Load(file)
		if err != nil {
			return err
		}
		env, res, err := scenario.Start(ctx, sc, u, out, scenario.WithHistoryLimit(cfg.History.Limit))
		if env != nil {
			defer env.Close()
		}
		if err != nil {
			return err
		}
		success(out, "%s passed", sc.Name)
		info(out, "%d steps, %d expectations", res.Steps, res.Expectations)
	}

	success(out, "devtools listening on http://%s", cfg.Devtools.Addr)
	info(out, "%d atoms mirrored", len(srv.Atoms()))
	return srv.ListenAndServe(ctx, cfg.Devtools.Addr)
}
