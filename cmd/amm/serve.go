package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityPool/internal/api"
	"liquidityPool/internal/pool"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pool HTTP API",
		RunE:  runServe,
	}
	cmd.Flags().String("listen", ":8080", "HTTP listen address")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	rt, err := openRuntime(ctx, cmd, pool.NewMetrics(reg))
	if err != nil {
		return err
	}
	defer rt.close()

	handler := api.NewHandler(rt.engine, api.Options{
		Logger:   rt.logger,
		Gatherer: reg,
		OnCommit: rt.save,
	})

	rt.logger.Info("serve start",
		zap.String("listen", rt.cfg.Listen),
		zap.String("pg_dsn", redactDSN(rt.cfg.PGDSN)),
		zap.Int("pools", len(rt.engine.Pools())),
	)
	if err := api.Serve(ctx, rt.cfg.Listen, api.NewRouter(handler), rt.logger); err != nil {
		return err
	}
	return rt.save(context.Background())
}
