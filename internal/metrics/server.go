package metrics

import (
	"log/slog"
	"time"

	"github.com/valyala/fasthttp"
)

// StartServer runs m's /metrics endpoint on listen until the process exits.
// Returns nil if listen is empty (metrics disabled). Grounded on
// EdgeComet-engine's metricsserver.StartMetricsServer, adapted to the
// single Metrics collector here and to log/slog instead of zap.
func StartServer(listen, path string, m *Metrics, log *slog.Logger) *fasthttp.Server {
	if listen == "" {
		return nil
	}
	if path == "" {
		path = "/metrics"
	}

	srv := &fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			if string(ctx.Path()) != path {
				ctx.SetStatusCode(fasthttp.StatusNotFound)
				return
			}
			m.ServeHTTP(ctx)
		},
		Name:         "automod-metrics",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(listen); err != nil && log != nil {
			log.Error("metrics server stopped", "error", err)
		}
	}()

	return srv
}
