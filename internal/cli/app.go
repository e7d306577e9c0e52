package cli

import (
	"context"

	"go.uber.org/zap"

	"penguindash/internal/config"
	"penguindash/internal/core"
	"penguindash/internal/dashboard"
	"penguindash/internal/dataset"
	"penguindash/internal/logging"
	"penguindash/pkg/domain"
)

// loadDataset reads the configured source. Failure is fatal for every
// command that needs data and maps to ExitUnavailable.
func loadDataset(ctx context.Context, cfg *config.Config) (*domain.Dataset, error) {
	logger := logging.FromContext(ctx)
	ds, err := dataset.Load(ctx, cfg.Dataset)
	if err != nil {
		logger.Error("dataset unavailable", zap.Error(err))
		return nil, &ExitError{Code: ExitUnavailable, Err: err}
	}
	logger.Info("dataset loaded", zap.String("source", ds.Source()), zap.Int("records", ds.Len()))
	return ds, nil
}

func newHub(cfg *config.Config, ds *domain.Dataset, logger *zap.Logger, observer core.Observer) *dashboard.Hub {
	return dashboard.NewHub(ds, dashboard.Options{
		Bins:     cfg.Chart.Bins,
		TTL:      cfg.Dashboard.SessionTTL,
		Observer: observer,
		Logger:   logger.Named("dashboard"),
	})
}
