package export

import (
	"context"

	"github.com/vanderheijden86/chipview/pkg/api"
	"github.com/vanderheijden86/chipview/pkg/debug"
	"github.com/vanderheijden86/chipview/pkg/metrics"
	"github.com/vanderheijden86/chipview/pkg/model"
)

// SizeEstimator produces a pre-flight {count, bytes} estimate for a config.
// Streaming configs hit the backend's estimate endpoints (short timeout, set
// on the API client); client-side configs inspect the resident data. The
// config is never mutated.
type SizeEstimator struct {
	client *api.Client
}

// NewSizeEstimator creates an estimator backed by client. A nil client is
// valid for purely client-side use.
func NewSizeEstimator(client *api.Client) *SizeEstimator {
	return &SizeEstimator{client: client}
}

// Estimate returns the size estimate for cfg. Failures are returned as
// *EstimationError; count is authoritative for rank validation, bytes is
// only ever an approximation.
func (e *SizeEstimator) Estimate(ctx context.Context, cfg *Config) (model.Estimate, error) {
	defer metrics.Timer(metrics.EstimateLatency)()

	if err := cfg.Validate(); err != nil {
		return model.Estimate{}, &EstimationError{Err: err}
	}

	switch cfg.Strategy {
	case StrategyClientSide:
		count := int64(cfg.Rows.Len())
		est := model.Estimate{
			Count: count,
			Bytes: count * int64(cfg.BytesPerRow),
		}
		debug.Log("client-side estimate for %s: %d rows, ~%d bytes", cfg.DataSource, est.Count, est.Bytes)
		return est, nil

	case StrategyStreaming:
		if e.client == nil {
			return model.Estimate{}, &EstimationError{Err: &ValidationError{Msg: "no API client configured"}}
		}
		var (
			est model.Estimate
			err error
		)
		if cfg.Dimension != "" {
			est, err = e.client.EstimateAggregatedExport(ctx, cfg.Filters, cfg.Dimension)
		} else {
			est, err = e.client.EstimateExport(ctx, cfg.Filters)
		}
		if err != nil {
			return model.Estimate{}, &EstimationError{Err: err}
		}
		if est.Count < 0 || est.Bytes < 0 {
			return model.Estimate{}, &EstimationError{Err: &ValidationError{Msg: "server returned a negative estimate"}}
		}
		debug.Log("streaming estimate for %s: %d rows, ~%d bytes", cfg.DataSource, est.Count, est.Bytes)
		return est, nil
	}

	return model.Estimate{}, &EstimationError{Err: &ValidationError{Msg: "unknown strategy"}}
}
