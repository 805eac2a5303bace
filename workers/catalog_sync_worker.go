// workers/catalog_sync_worker.go
package workers

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Refresher is a catalog that can reload itself from its source.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type CatalogSyncWorker struct {
	catalog  Refresher
	interval time.Duration
	logger   *zap.Logger
}

func NewCatalogSyncWorker(catalog Refresher, interval time.Duration, logger *zap.Logger) *CatalogSyncWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CatalogSyncWorker{catalog: catalog, interval: interval, logger: logger.Named("catalog-sync")}
}

// Start refreshes once, then every interval until ctx is done.
func (w *CatalogSyncWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *CatalogSyncWorker) run(ctx context.Context) {
	w.syncOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("catalog sync stopped")
			return
		case <-ticker.C:
			w.syncOnce(ctx)
		}
	}
}

func (w *CatalogSyncWorker) syncOnce(ctx context.Context) {
	if err := w.catalog.Refresh(ctx); err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("⚠️ catalog refresh failed", zap.Error(err))
		}
		return
	}
	w.logger.Debug("📥 catalog refreshed")
}
