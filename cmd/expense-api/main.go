// Command expense-api serves the expense REST API for local development.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/api"
	"expensetracker/internal/backend"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/remote"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentAPI, (*config.Config).ValidateAPIServer)

	if err := run(cfg, logger); err != nil {
		logger.Error("API server error", log.FieldError, err.Error(), "port", cfg.APIPort)
		os.Exit(1)
	}
	logger.Info("API server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	bc, err := backend.ForAPIServer(cfg)
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

	srv := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           newHandler(res.API, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting expense API", "port", cfg.APIPort, "backend", bc.Type.String())
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

// newHandler mounts the API and a health probe behind request tracing.
func newHandler(store remote.ExpenseAPI, logger *log.Logger) http.Handler {
	mux := http.NewServeMux()
	api.NewServer(store, logger).Routes(mux)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	detector := security.NewDetector()
	return trace.NewMiddleware(logger.WithComponent(log.ComponentAPI), detector.ExtractClientIP, nil).Middleware(mux)
}
