// services/user_service.go
package services

import (
	"context"
	"strings"
	"time"

	"challenge-reward-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type UserService struct {
	DB     *gorm.DB
	Logger *zap.Logger
	Now    func() time.Time
}

func NewUserService(db *gorm.DB, logger *zap.Logger) *UserService {
	return &UserService{DB: db, Logger: logger.Named("users"), Now: time.Now}
}

// ServerStats derives a user's stats from their proofs. A challenge with a
// verified proof is completed; one with only pending or rejected proofs is
// in progress.
func ServerStats(ctx context.Context, db *gorm.DB, uid string, now time.Time) (models.UserStats, error) {
	var proofs []models.Proof
	if err := db.WithContext(ctx).Where("user_id = ?", uid).Order("submitted_at ASC").Find(&proofs).Error; err != nil {
		return models.UserStats{}, err
	}

	byChallenge := map[string]*models.ChallengeProgress{}
	var order []string
	for _, p := range proofs {
		rec, seen := byChallenge[p.ChallengeID]
		if !seen {
			rec = &models.ChallengeProgress{ChallengeID: p.ChallengeID, Status: models.StatusInProgress}
			byChallenge[p.ChallengeID] = rec
			order = append(order, p.ChallengeID)
		}
		if p.Status == models.ProofVerified && rec.Status != models.StatusCompleted {
			rec.Status = models.StatusCompleted
			rec.Progress = 100
			rec.CompletedAt = p.VerifiedAt
			rec.ProofSubmitted = true
			rec.ProofHash = p.ProofHash
		}
	}

	var challenges []models.Challenge
	if len(order) > 0 {
		if err := db.WithContext(ctx).Where("id IN ?", order).Find(&challenges).Error; err != nil {
			return models.UserStats{}, err
		}
	}
	for _, ch := range challenges {
		byChallenge[ch.ID].Reward = ch.Reward
	}

	records := make([]models.ChallengeProgress, 0, len(order))
	for _, id := range order {
		records = append(records, *byChallenge[id])
	}
	return models.ComputeStats(records, now)
}

func statsColumns(s models.UserStats) map[string]any {
	return map[string]any{
		"stats_completed_challenges": s.CompletedChallenges,
		"stats_total_challenges":     s.TotalChallenges,
		"stats_total_rewards_amount": s.TotalRewards.Amount,
		"stats_total_rewards_unit":   s.TotalRewards.Unit,
		"stats_current_streak":       s.CurrentStreak,
		"stats_rank":                 s.Rank,
	}
}

func saveStats(ctx context.Context, db *gorm.DB, uid string, stats models.UserStats) error {
	return db.WithContext(ctx).Model(&models.User{}).Where("id = ?", uid).Updates(statsColumns(stats)).Error
}

func (s *UserService) current(c *fiber.Ctx) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(c.UserContext()).First(&user, "id = ?", userID(c)).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) GetProfile(c *fiber.Ctx) error {
	user, err := s.current(c)
	if err != nil {
		if notFound(err) {
			return fail(c, fiber.StatusNotFound, "user not found")
		}
		return fail(c, fiber.StatusInternalServerError, "failed to load user")
	}
	return ok(c, fiber.StatusOK, user)
}

// UpdateProfile changes name and profile fields. Empty fields are left as is.
func (s *UserService) UpdateProfile(c *fiber.Ctx) error {
	var input struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Bio      string `json:"bio"`
		Location string `json:"location"`
		Avatar   string `json:"avatar"`
	}
	if err := c.BodyParser(&input); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	user, err := s.current(c)
	if err != nil {
		return fail(c, fiber.StatusNotFound, "user not found")
	}

	if v := strings.TrimSpace(input.Name); v != "" {
		user.Name = v
	}
	if v := strings.TrimSpace(input.Username); v != "" {
		if !slug.IsSlug(v) {
			return fail(c, fiber.StatusBadRequest, "username may only contain lowercase letters, digits and dashes")
		}
		user.Profile.Username = v
	}
	if input.Bio != "" {
		user.Profile.Bio = input.Bio
	}
	if input.Location != "" {
		user.Profile.Location = input.Location
	}
	if input.Avatar != "" {
		user.Profile.Avatar = input.Avatar
	}

	if err := s.DB.Save(user).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to update profile")
	}
	return ok(c, fiber.StatusOK, user)
}

// GetStats recomputes stats from proofs and stores the result.
func (s *UserService) GetStats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	uid := userID(c)
	stats, err := ServerStats(ctx, s.DB, uid, s.Now())
	if err != nil {
		s.Logger.Error("failed to compute stats", zap.String("user_id", uid), zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "failed to compute stats")
	}
	if err := saveStats(ctx, s.DB, uid, stats); err != nil {
		s.Logger.Warn("failed to save stats", zap.String("user_id", uid), zap.Error(err))
	}
	return ok(c, fiber.StatusOK, stats)
}

// UpdateStats accepts the client's view of its stats. Only the streak is
// kept; everything else is derived from proofs.
func (s *UserService) UpdateStats(c *fiber.Ctx) error {
	var input models.UserStats
	if err := c.BodyParser(&input); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if input.CurrentStreak < 0 {
		return fail(c, fiber.StatusBadRequest, "current_streak cannot be negative")
	}
	ctx := c.UserContext()
	uid := userID(c)
	stats, err := ServerStats(ctx, s.DB, uid, s.Now())
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to compute stats")
	}
	if input.CurrentStreak > stats.CurrentStreak {
		stats.CurrentStreak = input.CurrentStreak
	}
	if err := saveStats(ctx, s.DB, uid, stats); err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to save stats")
	}
	return ok(c, fiber.StatusOK, stats)
}

// DeleteAccount removes the user, their proofs and the presented token.
func (s *UserService) DeleteAccount(c *fiber.Ctx) error {
	uid := userID(c)
	tokenID, _ := c.Locals("token_id").(string)
	expires, _ := c.Locals("token_expires_at").(time.Time)

	err := s.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", uid).Delete(&models.Proof{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", uid).Delete(&models.User{}).Error; err != nil {
			return err
		}
		if tokenID == "" {
			return nil
		}
		return tx.Create(&models.RevokedToken{TokenID: tokenID, UserID: uid, ExpiresAt: expires}).Error
	})
	if err != nil {
		s.Logger.Error("failed to delete account", zap.String("user_id", uid), zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "failed to delete account")
	}
	s.Logger.Info("🗑️ account deleted", zap.String("user_id", uid))
	return ok(c, fiber.StatusOK, fiber.Map{"deleted": uid})
}
