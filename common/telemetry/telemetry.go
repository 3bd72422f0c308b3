package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/qldp/registry/common/config"
	"github.com/qldp/registry/common/logger"
	"github.com/qldp/registry/common/metrics"
)

// Telemetry holds observability components
type Telemetry struct {
	Metrics *metrics.Metrics

	log     *logger.Logger
	servers []*http.Server
}

// New creates telemetry components. Endpoints are only served after Start.
func New(cfg config.TelemetryConfig, log *logger.Logger) *Telemetry {
	t := &Telemetry{
		Metrics: metrics.New(),
		log:     log,
	}

	if cfg.EnablePprof {
		mux := http.NewServeMux()
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		t.servers = append(t.servers, &http.Server{
			Addr:    fmt.Sprintf("localhost:%d", cfg.PprofPort),
			Handler: mux,
		})
	}

	if cfg.EnableMetrics {
		mux := http.NewServeMux()
		mux.Handle("/metrics", t.Metrics.Handler())
		t.servers = append(t.servers, &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	return t
}

// Start starts telemetry endpoints in the background
func (t *Telemetry) Start(ctx context.Context) error {
	for _, srv := range t.servers {
		go func(srv *http.Server) {
			t.log.Info("telemetry server starting", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				t.log.Error("telemetry server error", "addr", srv.Addr, "error", err)
			}
		}(srv)
	}
	return nil
}

// Shutdown stops telemetry endpoints
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, srv := range t.servers {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordDuration records operation duration
func (t *Telemetry) RecordDuration(operation string, start time.Time) {
	duration := time.Since(start)
	t.log.Debug("operation completed",
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
	)
}
