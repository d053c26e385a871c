package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	httpadapter "github.com/kirillkom/groundedqa/internal/adapters/http"
	"github.com/kirillkom/groundedqa/internal/bootstrap"
	"github.com/kirillkom/groundedqa/internal/config"
	"github.com/kirillkom/groundedqa/internal/observability/logging"
	"github.com/kirillkom/groundedqa/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewLogger(os.Stdout, "api", cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg)
	stop()
	if err != nil {
		slog.Error("api_failed", "error", err)
		os.Exit(1)
	}
}

// run owns every resource it opens; it returns instead of exiting so the
// deferred closes always run.
func run(ctx context.Context, cfg config.Config) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app.QueryUC.WithObserver(httpMetrics.Pipeline())

	handler, err := httpadapter.NewRouter(cfg, app.QueryUC, httpMetrics).Handler()
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	writeTimeout := 60 * time.Second
	if cfg.APIRequestTimeout > 0 {
		writeTimeout = cfg.APIRequestTimeout + 5*time.Second
	}
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", server.Addr, err)
	}
	if cfg.APIMaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxConnections)
	}

	go func() {
		slog.Info("api_listening",
			"addr", server.Addr,
			"chunks", app.Corpus.Len(),
			"dense_backend", cfg.DenseBackend,
			"generator", cfg.GeneratorProvider,
		)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cancel(fmt.Errorf("serve: %w", err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("api_shutdown_failed", "error", err)
	}

	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}
