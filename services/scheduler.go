// services/scheduler.go
package services

import (
	"context"
	"time"

	"challenge-reward-system/models"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ChallengeScheduler closes challenges whose deadline has passed and purges
// revoked tokens that have expired on their own.
type ChallengeScheduler struct {
	DB       *gorm.DB
	Logger   *zap.Logger
	Interval time.Duration
	Now      func() time.Time

	sched gocron.Scheduler
}

func NewChallengeScheduler(db *gorm.DB, logger *zap.Logger, interval time.Duration) *ChallengeScheduler {
	return &ChallengeScheduler{DB: db, Logger: logger.Named("scheduler"), Interval: interval, Now: time.Now}
}

func (s *ChallengeScheduler) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(s.Interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.Interval)
			defer cancel()
			if _, err := s.CloseExpired(ctx); err != nil {
				s.Logger.Error("[Scheduler] failed to close expired challenges", zap.Error(err))
			}
			if _, err := s.PurgeRevokedTokens(ctx); err != nil {
				s.Logger.Error("[Scheduler] failed to purge revoked tokens", zap.Error(err))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return err
	}

	sched.Start()
	s.sched = sched
	return nil
}

func (s *ChallengeScheduler) Shutdown() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}

// CloseExpired marks open challenges past their deadline as closed.
func (s *ChallengeScheduler) CloseExpired(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Challenge{}).
		Where("status = ? AND deadline IS NOT NULL AND deadline <= ?", models.ChallengeOpen, s.Now().UTC()).
		Update("status", models.ChallengeClosed)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.Logger.Info("✅ closed expired challenges", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

func (s *ChallengeScheduler) PurgeRevokedTokens(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Where("expires_at <= ?", s.Now().UTC()).Delete(&models.RevokedToken{})
	return res.RowsAffected, res.Error
}
