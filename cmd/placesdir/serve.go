package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"placesdir/internal/adapters/directory"
	"placesdir/internal/config"
	"placesdir/internal/core"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the directory over HTTP",
		Long: `Serve exposes the directory as a JSON API under /api/v1, a liveness probe
at /healthz and, when metrics are enabled, Prometheus metrics at /metrics and
expvar counters at /debug/vars. Mutating requests are rate limited.`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}
	cmd.Flags().String("addr", "", "Listen address (default "+config.DefaultHTTPAddr+")")
	cmd.Flags().Float64("rate-limit", 0, "Mutating requests per second")
	cmd.Flags().Int("burst", 0, "Burst size for mutating requests")
	cmd.Flags().Bool("metrics", true, "Expose /metrics and /debug/vars")
	return cmd
}

// serveOverrides applies serve flags that were set explicitly.
func serveOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.HTTP.Addr, _ = flags.GetString("addr")
	}
	if flags.Changed("rate-limit") {
		cfg.HTTP.RateLimit, _ = flags.GetFloat64("rate-limit")
	}
	if flags.Changed("burst") {
		cfg.HTTP.Burst, _ = flags.GetInt("burst")
	}
	if flags.Changed("metrics") {
		cfg.Metrics.Enabled, _ = flags.GetBool("metrics")
	}
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	var registry *prometheus.Registry
	a, err := openApp(cmd, func(cfg *config.Config) ([]core.Option, error) {
		serveOverrides(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if !cfg.Metrics.Enabled {
			return nil, nil
		}
		registry = prometheus.NewRegistry()
		rec, err := newMetrics(registry)
		if err != nil {
			return nil, err
		}
		return []core.Option{core.WithMetricsRecorder(rec)}, nil
	})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if _, err := a.store.LoadAll(ctx); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}

	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           newServeMux(a, registry),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	return serve(ctx, a, srv)
}

// newMetrics registers runtime collectors and the store recorders.
func newMetrics(reg *prometheus.Registry) (core.MetricsRecorder, error) {
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}
	prom, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		return nil, err
	}
	return core.MultiMetricsRecorder{prom, core.NewExpvarMetricsRecorder("")}, nil
}

// newServeMux mounts the API and, when registry is set, the metrics endpoints.
func newServeMux(a *app, registry *prometheus.Registry) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(a.cfg.HTTP.RateLimit), a.cfg.HTTP.Burst)
	mux := http.NewServeMux()
	mux.Handle("/", directory.NewHandler(a.store, limiter, a.logger))
	if registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
		mux.Handle("/debug/vars", expvar.Handler())
	}
	return mux
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, a *app, srv *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("listening", "addr", srv.Addr, "driver", a.cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
