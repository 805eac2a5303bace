// services/proof_service.go
package services

import (
	"context"
	"strings"
	"time"

	"challenge-reward-system/models"
	"challenge-reward-system/verifiers"

	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProofService takes proof submissions. With a Reviewer set, proofs are
// decided on submission; otherwise they wait for the challenge creator.
type ProofService struct {
	DB       *gorm.DB
	Reviewer verifiers.Verifier
	Logger   *zap.Logger
	Now      func() time.Time
}

func NewProofService(db *gorm.DB, reviewer verifiers.Verifier, logger *zap.Logger) *ProofService {
	return &ProofService{DB: db, Reviewer: reviewer, Logger: logger.Named("proofs"), Now: time.Now}
}

// AutoReviewer accepts any proof that carries data, hashing it with the
// submitting user as salt.
func AutoReviewer() verifiers.Verifier {
	return verifiers.Func(func(ctx context.Context, proof verifiers.ProofData) (*verifiers.Result, error) {
		if strings.TrimSpace(proof.ArtifactRef) == "" {
			return verifiers.Rejected("proof has no content"), nil
		}
		return verifiers.Accepted(""), nil
	})
}

func proofData(p *models.Proof) verifiers.ProofData {
	return verifiers.ProofData{ChallengeID: p.ChallengeID, ArtifactRef: p.Data, Metadata: p.Metadata}
}

func (s *ProofService) Submit(c *fiber.Ctx) error {
	var input struct {
		ChallengeID string            `json:"challenge_id"`
		Type        models.ProofType  `json:"type"`
		Data        string            `json:"data"`
		Metadata    map[string]string `json:"metadata"`
	}
	if err := c.BodyParser(&input); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if input.ChallengeID == "" {
		return fail(c, fiber.StatusBadRequest, "challenge_id is required")
	}
	if !input.Type.Valid() {
		return fail(c, fiber.StatusBadRequest, "type must be image, video, document or link")
	}
	if strings.TrimSpace(input.Data) == "" {
		return fail(c, fiber.StatusBadRequest, "data is required")
	}

	ctx := c.UserContext()
	uid := userID(c)
	var challenge models.Challenge
	if err := s.DB.WithContext(ctx).First(&challenge, "id = ?", input.ChallengeID).Error; err != nil {
		if notFound(err) {
			return fail(c, fiber.StatusNotFound, "challenge not found")
		}
		return fail(c, fiber.StatusInternalServerError, "failed to load challenge")
	}
	now := s.Now()
	if challenge.Status != models.ChallengeOpen || challenge.Expired(now) {
		return fail(c, fiber.StatusConflict, "challenge is closed")
	}

	// A challenge already verified for this user answers with the same proof.
	var existing models.Proof
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND challenge_id = ? AND status = ?", uid, challenge.ID, models.ProofVerified).
		First(&existing).Error
	if err == nil {
		return ok(c, fiber.StatusOK, existing)
	}
	if !notFound(err) {
		return fail(c, fiber.StatusInternalServerError, "failed to load proofs")
	}

	proof := models.Proof{
		ID:          ulid.Make().String(),
		UserID:      uid,
		ChallengeID: challenge.ID,
		Type:        input.Type,
		Data:        input.Data,
		Metadata:    input.Metadata,
		Status:      models.ProofPending,
		SubmittedAt: now.UTC(),
	}
	if s.Reviewer != nil {
		s.review(ctx, &proof)
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prior int64
		if err := tx.Model(&models.Proof{}).Where("user_id = ? AND challenge_id = ?", uid, challenge.ID).Count(&prior).Error; err != nil {
			return err
		}
		if err := tx.Create(&proof).Error; err != nil {
			return err
		}
		if prior == 0 {
			return tx.Model(&models.Challenge{}).Where("id = ?", challenge.ID).
				UpdateColumn("participants", gorm.Expr("participants + 1")).Error
		}
		return nil
	})
	if err != nil {
		s.Logger.Error("failed to save proof", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "failed to save proof")
	}
	if proof.Status == models.ProofVerified {
		s.refreshStats(ctx, uid)
	}
	s.Logger.Info("📨 proof submitted",
		zap.String("proof_id", proof.ID),
		zap.String("challenge_id", challenge.ID),
		zap.String("status", string(proof.Status)))
	return ok(c, fiber.StatusCreated, proof)
}

func (s *ProofService) review(ctx context.Context, proof *models.Proof) {
	data := proofData(proof)
	res, err := s.Reviewer.Verify(ctx, data)
	if err != nil {
		s.Logger.Warn("review failed, proof left pending", zap.Error(err))
		return
	}
	s.decide(proof, res.Success, res.ProofHash, res.Reason)
}

func (s *ProofService) decide(proof *models.Proof, accepted bool, hash, feedback string) {
	now := s.Now().UTC()
	proof.VerifiedAt = &now
	proof.Feedback = feedback
	if !accepted {
		proof.Status = models.ProofRejected
		proof.ProofHash = ""
		return
	}
	if hash == "" {
		hash = verifiers.HashProof(proofData(proof), proof.UserID)
	}
	proof.Status = models.ProofVerified
	proof.ProofHash = hash
}

func (s *ProofService) refreshStats(ctx context.Context, uid string) {
	stats, err := ServerStats(ctx, s.DB, uid, s.Now())
	if err != nil {
		s.Logger.Warn("failed to recompute stats", zap.String("user_id", uid), zap.Error(err))
		return
	}
	if err := saveStats(ctx, s.DB, uid, stats); err != nil {
		s.Logger.Warn("failed to save stats", zap.String("user_id", uid), zap.Error(err))
	}
}

// List returns the caller's proofs. Filters: challenge_id, status.
func (s *ProofService) List(c *fiber.Ctx) error {
	db := s.DB.WithContext(c.UserContext()).Where("user_id = ?", userID(c)).Order("submitted_at DESC")
	if id := c.Query("challenge_id"); id != "" {
		db = db.Where("challenge_id = ?", id)
	}
	if status := c.Query("status"); status != "" {
		db = db.Where("status = ?", status)
	}
	var proofs []models.Proof
	if err := db.Find(&proofs).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to list proofs")
	}
	return okList(c, proofs)
}

// Get is open to the submitter and the challenge creator.
func (s *ProofService) Get(c *fiber.Ctx) error {
	proof, challenge, err := s.load(c.UserContext(), c.Params("id"))
	if err != nil {
		if notFound(err) {
			return fail(c, fiber.StatusNotFound, "proof not found")
		}
		return fail(c, fiber.StatusInternalServerError, "failed to load proof")
	}
	if uid := userID(c); proof.UserID != uid && challenge.CreatedBy != uid {
		return fail(c, fiber.StatusNotFound, "proof not found")
	}
	return ok(c, fiber.StatusOK, proof)
}

func (s *ProofService) load(ctx context.Context, id string) (*models.Proof, *models.Challenge, error) {
	var proof models.Proof
	if err := s.DB.WithContext(ctx).First(&proof, "id = ?", id).Error; err != nil {
		return nil, nil, err
	}
	var challenge models.Challenge
	if err := s.DB.WithContext(ctx).First(&challenge, "id = ?", proof.ChallengeID).Error; err != nil {
		return nil, nil, err
	}
	return &proof, &challenge, nil
}

// Verify records the challenge creator's decision on a pending proof.
func (s *ProofService) Verify(c *fiber.Ctx) error {
	var input struct {
		Status   models.ProofStatus `json:"status"`
		Feedback string             `json:"feedback"`
	}
	if err := c.BodyParser(&input); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if input.Status != models.ProofVerified && input.Status != models.ProofRejected {
		return fail(c, fiber.StatusBadRequest, "status must be verified or rejected")
	}

	ctx := c.UserContext()
	proof, challenge, err := s.load(ctx, c.Params("id"))
	if err != nil {
		if notFound(err) {
			return fail(c, fiber.StatusNotFound, "proof not found")
		}
		return fail(c, fiber.StatusInternalServerError, "failed to load proof")
	}
	if challenge.CreatedBy != userID(c) {
		return fail(c, fiber.StatusForbidden, "only the challenge creator can verify proofs")
	}
	if proof.Status != models.ProofPending {
		return fail(c, fiber.StatusConflict, "proof has already been "+string(proof.Status))
	}

	s.decide(proof, input.Status == models.ProofVerified, "", input.Feedback)
	if err := s.DB.WithContext(ctx).Save(proof).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to save proof")
	}
	if proof.Status == models.ProofVerified {
		s.refreshStats(ctx, proof.UserID)
	}
	s.Logger.Info("✅ proof reviewed", zap.String("proof_id", proof.ID), zap.String("status", string(proof.Status)))
	return ok(c, fiber.StatusOK, proof)
}

// Delete withdraws a pending proof.
func (s *ProofService) Delete(c *fiber.Ctx) error {
	proof, _, err := s.load(c.UserContext(), c.Params("id"))
	if err != nil || proof.UserID != userID(c) {
		if err == nil || notFound(err) {
			return fail(c, fiber.StatusNotFound, "proof not found")
		}
		return fail(c, fiber.StatusInternalServerError, "failed to load proof")
	}
	if proof.Status != models.ProofPending {
		return fail(c, fiber.StatusConflict, "only pending proofs can be withdrawn")
	}
	if err := s.DB.Delete(proof).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to delete proof")
	}
	return ok(c, fiber.StatusOK, fiber.Map{"deleted": proof.ID})
}
