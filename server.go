package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/fzft/go-mini-redis/config"
	"github.com/fzft/go-mini-redis/db"
	"github.com/fzft/go-mini-redis/log"
	"github.com/fzft/go-mini-redis/metrics"
	"github.com/fzft/go-mini-redis/node"
)

const shutdownTimeout = 10 * time.Second

var serveFlags = []cli.Flag{
	&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to a YAML config file"},
	&cli.StringFlag{Name: "addr", Usage: "listen address (server.address)"},
	&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error (log.level)"},
	&cli.StringFlag{Name: "log-format", Usage: "console or json (log.format)"},
	&cli.StringFlag{Name: "metrics-addr", Usage: "serve prometheus metrics on this address (metrics.address)"},
	&cli.IntFlag{Name: "shards", Usage: "store shards, a power of two (store.shards)"},
	&cli.IntFlag{Name: "rate-limit", Usage: "commands per second per connection, 0 for none (server.rate_limit)"},
	&cli.BoolFlag{Name: "nil-on-miss", Usage: "reply $-1 instead of an error to GET on a missing key (server.nil_on_miss)"},
}

// flagKeys maps serve flags to config keys.
var flagKeys = map[string]string{
	"addr":         "server.address",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"metrics-addr": "metrics.address",
	"shards":       "store.shards",
	"rate-limit":   "server.rate_limit",
	"nil-on-miss":  "server.nil_on_miss",
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	loader := config.NewLoader()
	if err := loader.Load(c.String("config")); err != nil {
		return nil, err
	}
	for flag, key := range flagKeys {
		if c.IsSet(flag) {
			if err := loader.Set(key, c.Value(flag)); err != nil {
				return nil, err
			}
		}
	}
	return loader.Config()
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := log.InitLogger(cfg.LogConfig()); err != nil {
		return err
	}
	defer log.Logger.Sync()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store := db.New(cfg.Store.Shards)
	handler := node.NewHandler(store,
		node.WithLimits(cfg.Limits()),
		node.WithNilOnMiss(cfg.Server.NilOnMiss),
		node.WithRateLimit(cfg.Server.RateLimit),
		node.WithMetrics(m),
	)
	srv := node.NewServer(cfg.Server.Address, handler, node.WithServerMetrics(m))

	var metricsSrv *http.Server
	if cfg.Metrics.Address != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		metricsSrv = &http.Server{Addr: cfg.Metrics.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Logger.Info("serving metrics", zap.String("addr", cfg.Metrics.Address))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Logger.Error("metrics server", zap.Error(err))
			}
		}()
	}

	ctx, cancel := context.WithCancelCause(c.Context)
	defer cancel(nil)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(signals)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	select {
	case err := <-errCh:
		return err
	case sig := <-signals:
		log.Logger.Info("received signal", zap.String("signal", sig.String()))
		cancel(ErrSignalStopped)
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()

	err = srv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		err = multierr.Append(err, metricsSrv.Shutdown(shutdownCtx))
	}
	if serveErr := <-errCh; !errors.Is(serveErr, node.ErrServerClosed) {
		err = multierr.Append(err, serveErr)
	}
	log.Logger.Info("server stopped", zap.NamedError("cause", context.Cause(ctx)))
	return err
}
