// services/challenge_service.go
package services

import (
	"strings"
	"time"

	"challenge-reward-system/catalog"
	"challenge-reward-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ChallengeService struct {
	DB     *gorm.DB
	Logger *zap.Logger
	Now    func() time.Time
}

func NewChallengeService(db *gorm.DB, logger *zap.Logger) *ChallengeService {
	return &ChallengeService{DB: db, Logger: logger.Named("challenges"), Now: time.Now}
}

// ChallengeInput is the body of create and update.
type ChallengeInput struct {
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Category     string            `json:"category"`
	Difficulty   models.Difficulty `json:"difficulty"`
	Reward       models.Reward     `json:"reward"`
	Deadline     *time.Time        `json:"deadline"`
	Image        string            `json:"image"`
	Requirements []string          `json:"requirements"`
	Tags         []string          `json:"tags"`
}

func (in *ChallengeInput) validate(now time.Time) string {
	in.Title = strings.TrimSpace(in.Title)
	if in.Reward.Unit == "" {
		in.Reward.Unit = models.DefaultRewardUnit
	}
	in.Reward.Unit = strings.ToUpper(in.Reward.Unit)
	if in.Deadline != nil {
		utc := in.Deadline.UTC()
		in.Deadline = &utc
	}
	switch {
	case in.Title == "":
		return "title is required"
	case strings.TrimSpace(in.Description) == "":
		return "description is required"
	case !models.ValidCategory(in.Category):
		return "category must be one of " + strings.Join(models.ChallengeCategories, ", ")
	case !in.Difficulty.Valid():
		return "difficulty must be Easy, Medium or Hard"
	case in.Reward.Amount <= 0:
		return "reward amount must be positive"
	case in.Reward.Unit != models.DefaultRewardUnit:
		return "rewards are paid in " + models.DefaultRewardUnit
	case in.Deadline != nil && !in.Deadline.After(now):
		return "deadline must be in the future"
	}
	return ""
}

func filterFromQuery(c *fiber.Ctx) catalog.Filter {
	return catalog.Filter{
		Query:      c.Query("search"),
		Category:   c.Query("category"),
		Difficulty: models.Difficulty(c.Query("difficulty")),
	}
}

func (s *ChallengeService) list(c *fiber.Ctx, openOnly bool) error {
	var challenges []models.Challenge
	db := s.DB.WithContext(c.UserContext()).Order("created_at ASC, id ASC")
	if openOnly {
		db = db.Where("status = ?", models.ChallengeOpen)
	} else if status := c.Query("status"); status != "" {
		db = db.Where("status = ?", status)
	}
	if !openOnly && c.Query("mine") == "true" {
		db = db.Where("created_by = ?", userID(c))
	}
	if err := db.Find(&challenges).Error; err != nil {
		s.Logger.Error("failed to list challenges", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "failed to list challenges")
	}
	// Search folds accents, which SQL LIKE cannot do portably.
	return okList(c, catalog.Apply(challenges, filterFromQuery(c)))
}

// ListPublic lists open challenges. Filters: search, category, difficulty.
func (s *ChallengeService) ListPublic(c *fiber.Ctx) error {
	return s.list(c, true)
}

// List includes closed challenges and accepts status and mine filters.
func (s *ChallengeService) List(c *fiber.Ctx) error {
	return s.list(c, false)
}

// Get looks a challenge up by id or slug.
func (s *ChallengeService) Get(c *fiber.Ctx) error {
	challenge, err := s.find(c, c.Params("id"))
	if err != nil {
		if notFound(err) {
			return fail(c, fiber.StatusNotFound, "challenge not found")
		}
		return fail(c, fiber.StatusInternalServerError, "failed to load challenge")
	}
	return ok(c, fiber.StatusOK, challenge)
}

func (s *ChallengeService) find(c *fiber.Ctx, key string) (*models.Challenge, error) {
	var challenge models.Challenge
	err := s.DB.WithContext(c.UserContext()).Where("id = ? OR slug = ?", key, key).First(&challenge).Error
	if err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (s *ChallengeService) uniqueSlug(title, exceptID string) string {
	base := slug.Make(title)
	var count int64
	s.DB.Model(&models.Challenge{}).Where("slug = ? AND id <> ?", base, exceptID).Count(&count)
	if count == 0 {
		return base
	}
	return base + "-" + uuid.NewString()[:8]
}

func (s *ChallengeService) Create(c *fiber.Ctx) error {
	var input ChallengeInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if msg := input.validate(s.Now()); msg != "" {
		return fail(c, fiber.StatusBadRequest, msg)
	}

	challenge := models.Challenge{
		ID:           uuid.NewString(),
		Slug:         s.uniqueSlug(input.Title, ""),
		Title:        input.Title,
		Description:  input.Description,
		Category:     input.Category,
		Difficulty:   input.Difficulty,
		Reward:       input.Reward,
		Deadline:     input.Deadline,
		Status:       models.ChallengeOpen,
		Image:        input.Image,
		Requirements: input.Requirements,
		Tags:         input.Tags,
		CreatedBy:    userID(c),
	}
	if err := s.DB.Create(&challenge).Error; err != nil {
		s.Logger.Error("failed to create challenge", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "failed to create challenge")
	}
	s.Logger.Info("✅ challenge created", zap.String("id", challenge.ID), zap.String("slug", challenge.Slug))
	return ok(c, fiber.StatusCreated, challenge)
}

// Update replaces the editable fields. Only the creator may edit.
func (s *ChallengeService) Update(c *fiber.Ctx) error {
	challenge, status, msg := s.owned(c)
	if msg != "" {
		return fail(c, status, msg)
	}
	var input ChallengeInput
	if err := c.BodyParser(&input); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if msg := input.validate(s.Now()); msg != "" {
		return fail(c, fiber.StatusBadRequest, msg)
	}

	if input.Title != challenge.Title {
		challenge.Slug = s.uniqueSlug(input.Title, challenge.ID)
	}
	challenge.Title = input.Title
	challenge.Description = input.Description
	challenge.Category = input.Category
	challenge.Difficulty = input.Difficulty
	challenge.Reward = input.Reward
	challenge.Deadline = input.Deadline
	challenge.Image = input.Image
	challenge.Requirements = input.Requirements
	challenge.Tags = input.Tags
	challenge.Status = models.ChallengeOpen

	if err := s.DB.Save(challenge).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to update challenge")
	}
	return ok(c, fiber.StatusOK, challenge)
}

// Delete removes a challenge and its proofs.
func (s *ChallengeService) Delete(c *fiber.Ctx) error {
	challenge, status, msg := s.owned(c)
	if msg != "" {
		return fail(c, status, msg)
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("challenge_id = ?", challenge.ID).Delete(&models.Proof{}).Error; err != nil {
			return err
		}
		return tx.Delete(challenge).Error
	})
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to delete challenge")
	}
	s.Logger.Info("🗑️ challenge deleted", zap.String("id", challenge.ID))
	return ok(c, fiber.StatusOK, fiber.Map{"deleted": challenge.ID})
}

// owned loads :id and checks the caller created it.
func (s *ChallengeService) owned(c *fiber.Ctx) (*models.Challenge, int, string) {
	challenge, err := s.find(c, c.Params("id"))
	if err != nil {
		if notFound(err) {
			return nil, fiber.StatusNotFound, "challenge not found"
		}
		return nil, fiber.StatusInternalServerError, "failed to load challenge"
	}
	if challenge.CreatedBy != userID(c) {
		return nil, fiber.StatusForbidden, "only the creator can change this challenge"
	}
	return challenge, 0, ""
}
