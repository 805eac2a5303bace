package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"challenge-reward-system/catalog"
	"challenge-reward-system/models"
	"challenge-reward-system/persistence"
	"challenge-reward-system/verifiers"

	"go.uber.org/zap"
)

// ProgressKey and StatsKey scope persisted progress to one identity.
func ProgressKey(userID string) string { return "progress:" + userID }
func StatsKey(userID string) string    { return "stats:" + userID }

// Proof is what the user hands in to complete a challenge.
type Proof struct {
	ArtifactRef string
	Metadata    map[string]string
}

// ProgressStore owns the bound user's challenge progress and derived stats.
// Operations on the same challenge run one at a time; different challenges
// proceed in parallel. Writes are optimistic: if persisting fails the
// in-memory change stays and ErrPersistenceFailed is returned.
type ProgressStore struct {
	persist  persistence.Persistence
	catalog  catalog.Catalog
	verifier verifiers.Verifier
	logger   *zap.Logger

	Now func() time.Time

	locks *keyedMutex

	mu      sync.RWMutex
	userID  string
	records map[string]*models.ChallengeProgress
	order   []string
	stats   models.UserStats
	seq     uint64

	saveMu  sync.Mutex
	savedAt map[string]uint64

	progress *Observable[[]models.ChallengeProgress]
	statsObs *Observable[models.UserStats]
}

func NewProgressStore(persist persistence.Persistence, cat catalog.Catalog, verifier verifiers.Verifier, logger *zap.Logger) *ProgressStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressStore{
		persist:  persist,
		catalog:  cat,
		verifier: verifier,
		logger:   logger.Named("progress"),
		Now:      time.Now,
		locks:    newKeyedMutex(),
		records:  make(map[string]*models.ChallengeProgress),
		stats:    models.NewUserStats(),
		savedAt:  make(map[string]uint64),
		progress: NewObservable[[]models.ChallengeProgress](nil),
		statsObs: NewObservable(models.NewUserStats()),
	}
}

// Bind loads userID's progress. Unreadable data is logged and treated as
// empty. Binding the already bound user is a no-op.
func (p *ProgressStore) Bind(ctx context.Context, userID string) {
	p.mu.RLock()
	same := p.userID == userID
	p.mu.RUnlock()
	if same || userID == "" {
		return
	}

	records := p.loadRecords(ctx, userID)
	stats, err := models.ComputeStats(records, p.Now())
	if err != nil {
		p.logger.Warn("stored progress mixes reward units", zap.String("user_id", userID), zap.Error(err))
	}
	p.checkStoredStats(ctx, userID, stats)

	p.mu.Lock()
	p.userID = userID
	p.records = make(map[string]*models.ChallengeProgress, len(records))
	p.order = p.order[:0]
	for i := range records {
		rec := records[i]
		if _, dup := p.records[rec.ChallengeID]; dup {
			continue
		}
		p.records[rec.ChallengeID] = &rec
		p.order = append(p.order, rec.ChallengeID)
	}
	p.stats = stats
	p.publishLocked()
	p.mu.Unlock()

	p.logger.Info("📂 progress loaded", zap.String("user_id", userID), zap.Int("records", len(records)))
}

func (p *ProgressStore) loadRecords(ctx context.Context, userID string) []models.ChallengeProgress {
	raw, err := p.persist.Get(ctx, ProgressKey(userID))
	if errors.Is(err, persistence.ErrNotFound) {
		return nil
	}
	if err != nil {
		p.logger.Warn("⚠️ stored progress unreadable", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	var records []models.ChallengeProgress
	if err := json.Unmarshal(raw, &records); err != nil {
		p.logger.Warn("⚠️ stored progress corrupt", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	valid := records[:0]
	for _, rec := range records {
		if rec.ChallengeID == "" || !rec.Consistent() {
			p.logger.Warn("dropping inconsistent progress record", zap.String("challenge_id", rec.ChallengeID))
			continue
		}
		valid = append(valid, rec)
	}
	return valid
}

// checkStoredStats only reports drift; stats are always recomputed from records.
func (p *ProgressStore) checkStoredStats(ctx context.Context, userID string, computed models.UserStats) {
	raw, err := p.persist.Get(ctx, StatsKey(userID))
	if err != nil {
		return
	}
	var stored models.UserStats
	if err := json.Unmarshal(raw, &stored); err != nil {
		p.logger.Debug("stored stats corrupt", zap.Error(err))
		return
	}
	if stored.CompletedChallenges != computed.CompletedChallenges || stored.TotalRewards != computed.TotalRewards {
		p.logger.Debug("stored stats out of date, using recomputed values", zap.String("user_id", userID))
	}
}

// Unbind forgets the current user's data in memory.
func (p *ProgressStore) Unbind() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.userID == "" {
		return
	}
	p.userID = ""
	p.records = make(map[string]*models.ChallengeProgress)
	p.order = nil
	p.stats = models.NewUserStats()
	p.publishLocked()
}

// UserID is the bound identity, or "".
func (p *ProgressStore) UserID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.userID
}

func (p *ProgressStore) boundUser() (string, error) {
	uid := p.UserID()
	if uid == "" {
		return "", ErrNotAuthenticated
	}
	return uid, nil
}

// GetChallenges lists catalog challenges matching filter.
func (p *ProgressStore) GetChallenges(ctx context.Context, filter catalog.Filter) ([]models.Challenge, error) {
	list, err := p.catalog.List(ctx, filter)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Warn("catalog list failed", zap.Error(err))
		return nil, ErrCatalogUnavailable
	}
	return list, nil
}

// StartChallenge creates an in-progress record. Starting again is reported
// as StartAlreadyStarted and changes nothing.
func (p *ProgressStore) StartChallenge(ctx context.Context, challengeID string) (StartOutcome, error) {
	if strings.TrimSpace(challengeID) == "" {
		return StartCreated, fmt.Errorf("%w: challenge id is required", ErrInvalidInput)
	}
	uid, err := p.boundUser()
	if err != nil {
		return StartCreated, err
	}
	unlock, err := p.locks.Lock(ctx, challengeID)
	if err != nil {
		return StartCreated, err
	}
	defer unlock()

	p.mu.Lock()
	if p.userID != uid {
		p.mu.Unlock()
		return StartCreated, ErrNotAuthenticated
	}
	if _, ok := p.records[challengeID]; ok {
		p.mu.Unlock()
		return StartAlreadyStarted, nil
	}
	now := p.Now()
	p.records[challengeID] = &models.ChallengeProgress{
		ChallengeID: challengeID,
		Status:      models.StatusInProgress,
		StartedAt:   &now,
	}
	p.order = append(p.order, challengeID)
	snap := p.commitLocked()
	p.mu.Unlock()

	p.logger.Info("🚀 challenge started", zap.String("challenge_id", challengeID))
	return StartCreated, p.save(ctx, challengeID, snap)
}

// UpdateProgress raises the percent (clamped to 0..100). A lower value than
// the stored one is ignored. Status never changes and a completed record
// keeps 100.
func (p *ProgressStore) UpdateProgress(ctx context.Context, challengeID string, percent int) (*models.ChallengeProgress, error) {
	uid, err := p.boundUser()
	if err != nil {
		return nil, err
	}
	unlock, err := p.locks.Lock(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p.mu.Lock()
	if p.userID != uid {
		p.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	rec, ok := p.records[challengeID]
	if !ok {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: challenge %s has not been started", ErrNotFound, challengeID)
	}
	if rec.Status == models.StatusCompleted {
		out := *rec
		p.mu.Unlock()
		return &out, nil
	}
	rec.Progress = max(rec.Progress, models.ClampPercent(percent))
	out := *rec
	snap := p.commitLocked()
	p.mu.Unlock()

	return &out, p.save(ctx, challengeID, snap)
}

// CompleteChallenge verifies proof and, on success, marks the challenge
// completed. A rejected proof or a cancelled context leaves the record as it was.
func (p *ProgressStore) CompleteChallenge(ctx context.Context, challengeID string, proof Proof) (*models.ChallengeProgress, error) {
	uid, err := p.boundUser()
	if err != nil {
		return nil, err
	}
	unlock, err := p.locks.Lock(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	log := p.logger.With(zap.String("challenge_id", challengeID))

	p.mu.RLock()
	_, started := p.records[challengeID]
	total := p.stats.TotalRewards
	p.mu.RUnlock()
	if !started {
		return nil, fmt.Errorf("%w: challenge %s has not been started", ErrNotFound, challengeID)
	}

	challenge, err := p.catalog.Get(ctx, challengeID)
	switch {
	case errors.Is(err, catalog.ErrChallengeNotFound):
		return nil, fmt.Errorf("%w: challenge %s is not in the catalog", ErrNotFound, challengeID)
	case err != nil:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("catalog lookup failed", zap.Error(err))
		return nil, ErrCatalogUnavailable
	}
	if !total.CompatibleWith(challenge.Reward) {
		return nil, fmt.Errorf("%w: challenge pays %s but rewards so far are in %s",
			ErrRewardUnitMismatch, challenge.Reward.Unit, total.Unit)
	}

	result, err := p.verifier.Verify(ctx, verifiers.ProofData{
		ChallengeID: challengeID,
		ArtifactRef: proof.ArtifactRef,
		Metadata:    proof.Metadata,
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		log.Warn("verifier unavailable", zap.Error(err))
		return nil, &VerificationError{ChallengeID: challengeID, Reason: "the verifier could not be reached"}
	}
	if !result.Success || result.ProofHash == "" {
		reason := result.Reason
		if result.Success {
			reason = "the verifier returned no proof hash"
		}
		log.Info("proof rejected", zap.String("reason", reason))
		return nil, &VerificationError{ChallengeID: challengeID, Reason: reason}
	}

	p.mu.Lock()
	if p.userID != uid {
		p.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	rec := p.records[challengeID]
	now := p.Now()
	next := *rec
	next.Status = models.StatusCompleted
	next.Progress = 100
	next.CompletedAt = &now
	next.ProofSubmitted = true
	next.ProofHash = result.ProofHash
	next.Reward = challenge.Reward

	candidate := p.snapshotLocked()
	for i := range candidate {
		if candidate[i].ChallengeID == challengeID {
			candidate[i] = next
		}
	}
	if _, err := models.ComputeStats(candidate, now); err != nil {
		// a completion in another unit landed while we were verifying
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrRewardUnitMismatch, err)
	}
	*rec = next
	snap := p.commitLocked()
	p.mu.Unlock()

	log.Info("🏆 challenge completed", zap.String("proof_hash", result.ProofHash), zap.Stringer("reward", challenge.Reward))
	return &next, p.save(ctx, challengeID, snap)
}

// GetUserStats returns the cached stats.
func (p *ProgressStore) GetUserStats() models.UserStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

// GetUserProgress returns every record in start order.
func (p *ProgressStore) GetUserProgress() []models.ChallengeProgress {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

// GetChallengeProgress returns one record.
func (p *ProgressStore) GetChallengeProgress(challengeID string) (models.ChallengeProgress, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.records[challengeID]
	if !ok {
		return models.ChallengeProgress{}, false
	}
	return *rec, true
}

// Progress exposes progress-list changes.
func (p *ProgressStore) Progress() *Observable[[]models.ChallengeProgress] { return p.progress }

// Stats exposes stats changes.
func (p *ProgressStore) Stats() *Observable[models.UserStats] { return p.statsObs }

func (p *ProgressStore) snapshotLocked() []models.ChallengeProgress {
	out := make([]models.ChallengeProgress, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, *p.records[id])
	}
	return out
}

type snapshot struct {
	userID  string
	seq     uint64
	records []models.ChallengeProgress
	stats   models.UserStats
}

// commitLocked recomputes stats, notifies subscribers and returns what to persist.
func (p *ProgressStore) commitLocked() snapshot {
	records := p.snapshotLocked()
	p.stats, _ = models.ComputeStats(records, p.Now())
	p.seq++
	p.progress.publish(records)
	p.statsObs.publish(p.stats)
	return snapshot{userID: p.userID, seq: p.seq, records: records, stats: p.stats}
}

func (p *ProgressStore) publishLocked() {
	p.progress.publish(p.snapshotLocked())
	p.statsObs.publish(p.stats)
}

// save writes snap unless a newer snapshot for the same user is already on
// disk. The write is not cancelled with ctx: the change is already visible.
func (p *ProgressStore) save(ctx context.Context, challengeID string, snap snapshot) error {
	p.saveMu.Lock()
	defer p.saveMu.Unlock()
	if snap.seq <= p.savedAt[snap.userID] {
		return nil
	}

	ctx = context.WithoutCancel(ctx)
	err := p.write(ctx, ProgressKey(snap.userID), snap.records)
	if err == nil {
		err = p.write(ctx, StatsKey(snap.userID), snap.stats)
	}
	if err != nil {
		p.logger.Error("failed to persist progress",
			zap.String("user_id", snap.userID), zap.String("challenge_id", challengeID), zap.Error(err))
		return fmt.Errorf("%w: progress on %s is kept for now but was not stored", ErrPersistenceFailed, challengeID)
	}
	p.savedAt[snap.userID] = snap.seq
	return nil
}

func (p *ProgressStore) write(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.persist.Set(ctx, key, raw)
}
