package cli

import (
	"context"
	"io"

	"github.com/turtacn/molgnn/internal/gnn"
	"github.com/turtacn/molgnn/internal/infrastructure/monitoring/logging"
	prom "github.com/turtacn/molgnn/internal/infrastructure/monitoring/prometheus"
)

// setupMetrics returns the metrics collector when exposition is enabled,
// starting the HTTP endpoint in the background. Returns nil when disabled.
func setupMetrics(cliCtx *CLIContext) *prom.Metrics {
	if !cliCtx.Config.Metrics.Enabled {
		return nil
	}
	m := prom.New()
	go func() {
		if err := prom.Serve(cliCtx.Config.Metrics.Addr, cliCtx.Config.Metrics.Path, m); err != nil {
			cliCtx.Logger.Warn("metrics server stopped", logging.Err(err))
		}
	}()
	return m
}

// observedFetcher counts checkpoint fetch outcomes on the way through.
type observedFetcher struct {
	inner   gnn.CheckpointFetcher
	metrics *prom.Metrics
}

func (f *observedFetcher) Fetch(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := f.inner.Fetch(ctx, name)
	f.metrics.ObserveCheckpointFetch(err == nil)
	return rc, err
}

// instrumentFetcher wraps a fetcher with outcome counting when metrics are
// enabled.
func instrumentFetcher(f gnn.CheckpointFetcher, m *prom.Metrics) gnn.CheckpointFetcher {
	if m == nil {
		return f
	}
	return &observedFetcher{inner: f, metrics: m}
}
