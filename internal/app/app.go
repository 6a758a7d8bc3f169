// Package app wires configuration, storage, the invoice service and the HTTP
// server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/order-invoice/internal/domain/invoice"
	"github.com/xenking/order-invoice/internal/handler"
	"github.com/xenking/order-invoice/internal/storage"
	"github.com/xenking/order-invoice/pkg/health"
	"github.com/xenking/order-invoice/pkg/httpmiddleware"
)

// Run opens storage, starts the HTTP server and blocks until ctx is done and
// the server has drained.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Driver),
	)

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer store.Close()

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("storage", cfg.Health.StorageTimeout, health.PingCheck(cfg.Storage.Driver, store.Ping))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(cfg.Health.MaxGoroutines))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.Start(ctx, cfg.Health.Interval)
	defer healthSvc.Stop()

	invoices, err := invoice.NewService(store.Orders, m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create invoice service")
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           NewHTTPHandler(lg, handler.NewHandler(invoices), healthSvc, m.MeterProvider(), m.TracerProvider()),
	}
	healthSvc.SetReady(true)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()

		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// NewHTTPHandler mounts the health probes and API routes on one mux and wraps
// it with the middleware stack and otelhttp instrumentation.
func NewHTTPHandler(
	lg *zap.Logger,
	api *handler.Handler,
	healthSvc *health.Health,
	mp metric.MeterProvider,
	tp trace.TracerProvider,
) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/", api.Routes())

	wrapped := httpmiddleware.Wrap(mux,
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.RequestID(),
		httpmiddleware.LogRequests(),
		httpmiddleware.Recovery(http.HandlerFunc(handler.InternalError)),
	)
	return otelhttp.NewHandler(wrapped, "invoice-api",
		otelhttp.WithMeterProvider(mp),
		otelhttp.WithTracerProvider(tp),
	)
}
