package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/zeu5/tablesim-decider/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func ServeCommand() *cobra.Command {
	var addr string
	var reportEvery time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve select_action and query_status over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), reportEvery)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides server.addr")
	cmd.Flags().DurationVar(&reportEvery, "report-every", time.Minute, "Interval between episode count log lines")
	return cmd
}

func serve(ctx context.Context, reportEvery time.Duration) error {
	if reportEvery <= 0 {
		return fmt.Errorf("report-every must be positive, got %s", reportEvery)
	}
	engine, err := loadEngine(cfg, logger)
	if err != nil {
		return err
	}

	var client *redis.Client
	if cfg.Monitor.Store == "redis" {
		client = redis.NewClient(&redis.Options{
			Addr: cfg.Monitor.RedisAddr,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connecting to redis at %s: %w", cfg.Monitor.RedisAddr, err)
		}
	}

	registry := server.NewRegistry(historyFactory(cfg, client), cfg.Monitor.RepeatThreshold, cfg.Features.HistoryBuffer, logger)
	srv := server.NewServer(cfg.Server.Addr, engine, registry, logger)
	srv.SetShutdownTimeout(cfg.Server.ShutdownTimeout)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(reportEvery)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				logger.Info("serving episodes", zap.Int("episodes", registry.Len()))
			}
		}
	})
	return g.Wait()
}
