// workers/stats_sync_worker.go
package workers

import (
	"context"
	"net/http"
	"strings"

	"challenge-reward-system/models"
	"challenge-reward-system/utils"

	"go.uber.org/zap"
)

// TokenSource supplies the signed-in user's bearer token.
type TokenSource interface {
	Token() string
}

// StatsSyncWorker reports locally computed stats to the backend whenever
// they change. The backend keeps the streak and recomputes the rest.
type StatsSyncWorker struct {
	BaseURL string
	Client  *http.Client
	Tokens  TokenSource
	logger  *zap.Logger
}

func NewStatsSyncWorker(baseURL string, client *http.Client, tokens TokenSource, logger *zap.Logger) *StatsSyncWorker {
	return &StatsSyncWorker{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
		Tokens:  tokens,
		logger:  logger.Named("stats-sync"),
	}
}

// Run pushes every value received on updates until ctx is done or updates
// is closed.
func (w *StatsSyncWorker) Run(ctx context.Context, updates <-chan models.UserStats) {
	var last *models.UserStats
	for {
		select {
		case <-ctx.Done():
			return
		case stats, ok := <-updates:
			if !ok {
				return
			}
			if last != nil && *last == stats {
				continue
			}
			if err := w.Push(ctx, stats); err != nil {
				w.logger.Warn("⚠️ stats push failed", zap.Error(err))
				continue
			}
			last = &stats
		}
	}
}

// Push sends one stats snapshot. Without a signed-in user it does nothing.
func (w *StatsSyncWorker) Push(ctx context.Context, stats models.UserStats) error {
	token := w.Tokens.Token()
	if token == "" {
		return nil
	}
	var echoed models.UserStats
	if err := utils.DoJSON(ctx, w.Client, http.MethodPut, w.BaseURL+"/api/users/me/stats", token, stats, &echoed); err != nil {
		return err
	}
	w.logger.Debug("📤 stats pushed", zap.Int("completed", echoed.CompletedChallenges))
	return nil
}
