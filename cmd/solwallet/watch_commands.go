package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/solwallet/service/db"
	"github.com/brojonat/solwallet/service/metrics"
	natspkg "github.com/brojonat/solwallet/service/nats"
	"github.com/brojonat/solwallet/service/watch"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Poll a wallet, classify new transactions and publish them",
		ArgsUsage: "ADDRESS",
		Description: `Polls the wallet's history every --interval. New transactions are classified,
archived to Postgres when --database-url is set, and published to NATS JetStream
on the subject wallet.txns.{ADDRESS} when --nats-url is set.

Example:
  solwallet watch DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK --nats-url nats://localhost:4222 --json`,
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Value:   30 * time.Second,
				Usage:   "How often to poll for new transactions (e.g., 30s, 1m)",
				EnvVars: []string{"WATCH_INTERVAL"},
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Value:   100,
				Usage:   "Maximum number of signatures fetched per poll",
			},
			&cli.StringFlag{
				Name:  "symbol",
				Usage: "Token symbol used to label the watched address",
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL; events are not published when empty",
				EnvVars: []string{"NATS_URL"},
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Postgres URL for the transaction archive; disabled when empty",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "Address for the Prometheus /metrics endpoint; disabled when empty",
				EnvVars: []string{"METRICS_ADDR"},
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}
			address := c.Args().Get(0)

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// nil uses the default registry served by promhttp.Handler
			metricsCollector := metrics.NewMetrics(nil)

			d, err := newDeps(c, metricsCollector)
			if err != nil {
				return err
			}
			logger := d.logger
			interval := d.cfg.WatchInterval
			if interval == 0 {
				return fmt.Errorf("interval must be at least 1 second")
			}

			watchCfg := watch.Config{
				Wallet:          address,
				MyAccountSymbol: c.String("symbol"),
				Limit:           c.Int("limit"),
				Client:          d.history,
				Metrics:         metricsCollector,
				Logger:          logger,
			}

			if addr := d.cfg.MetricsAddr; addr != "" {
				shutdown := serveMetrics(addr, logger)
				defer shutdown()
			}

			if dbURL := d.cfg.DatabaseURL; dbURL != "" {
				pool, err := db.Connect(ctx, dbURL)
				if err != nil {
					return err
				}
				defer pool.Close()

				store := db.NewStore(pool, metricsCollector)
				if err := store.EnsureSchema(ctx); err != nil {
					return err
				}
				watchCfg.Store = store
				logger.Info("connected to database")
			}

			if natsURL := d.cfg.NATSURL; natsURL != "" {
				publisher, err := natspkg.NewPublisher(ctx, natsURL, metricsCollector, logger)
				if err != nil {
					return err
				}
				defer publisher.Close()
				watchCfg.Publisher = publisher
			}

			watcher, err := watch.NewWatcher(watchCfg)
			if err != nil {
				return err
			}

			logger.Info("watching wallet", "address", address, "interval", interval)
			return watcher.Run(ctx, interval, func(result *watch.PollResult) {
				for _, txn := range result.Transactions {
					if wantJSON(c) {
						if err := printJSON(c, txn); err != nil {
							logger.Error("failed to print transaction", "error", err)
						}
						continue
					}
					printTransaction(txn)
				}
			})
		},
	}
}

// serveMetrics starts the Prometheus endpoint and returns its shutdown func.
func serveMetrics(addr string, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Info("starting metrics HTTP server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", "error", err)
		}
	}
}
