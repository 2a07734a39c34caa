package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/amqp"
	"expensetracker/internal/backend"
	"expensetracker/internal/cache"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	apphttp "expensetracker/internal/http"
	"expensetracker/internal/log"
	"expensetracker/internal/metrics"
	"expensetracker/internal/session"
)

const (
	shutdownTimeout = 30 * time.Second
	sweepInterval   = time.Minute
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp, (*config.Config).Validate)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	m := metrics.New()

	bc, err := backend.ForWeb(cfg, m.ObserveRemote)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).Create(bc)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err.Error())
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	opts := []session.Option{
		session.WithTTL(cfg.SessionTTL),
		session.WithMaxSessions(cfg.SessionMax),
		session.WithActiveObserver(m.SetActiveSessions),
	}

	// Activity events are optional; the page works without a broker.
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, activity events disabled", log.FieldError, err.Error())
		} else {
			defer client.Close()
			pub := amqp.NewPublisher(client, logger, m.ObserveEvent)
			opts = append(opts, session.WithEventSink(pub))
			g.Go(func() error {
				pub.Run(gctx)
				return nil
			})
		}
	}

	sessions := session.NewStore(res.API, opts...)

	caches := cache.NewManager(logger)
	caches.Register(sessions.Cleaner())
	g.Go(func() error {
		caches.Run(gctx, sweepInterval)
		return nil
	})

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		Sessions:           sessions,
		Backend:            res.API,
		Metrics:            m,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})
	if err != nil {
		return err
	}

	g.Go(func() error {
		srv.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting expense tracker", "port", cfg.Port, "backend", bc.Type.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
