package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"challenge-reward-system/catalog"
	"challenge-reward-system/connectors"
	"challenge-reward-system/models"
	"challenge-reward-system/verifiers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testHash = "0xdead00000000000000000000000000000000000000000000000000000000beef"

func acceptAll(hash string) verifiers.Func {
	return func(ctx context.Context, proof verifiers.ProofData) (*verifiers.Result, error) {
		return verifiers.Accepted(hash), nil
	}
}

func testCatalog(n int) *catalog.Static {
	items := make([]models.Challenge, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, models.Challenge{
			ID:     fmt.Sprintf("c%d", i),
			Title:  fmt.Sprintf("Challenge %d", i),
			Reward: models.Reward{Amount: 10, Unit: "XION"},
		})
	}
	return catalog.NewStatic(items)
}

type progressFixture struct {
	ctx     context.Context
	persist *flakyStore
	store   *ProgressStore
}

func newProgressFixture(t *testing.T, cat catalog.Catalog, v verifiers.Verifier) *progressFixture {
	t.Helper()
	f := &progressFixture{ctx: context.Background(), persist: newFlakyStore()}
	f.store = NewProgressStore(f.persist, cat, v, zap.NewNop())
	f.store.Bind(f.ctx, "user-1")
	return f
}

func TestWalletScenario(t *testing.T) {
	ctx := context.Background()
	persist := newFlakyStore()
	session := NewSessionStore(persist, &connectors.MockConnector{WalletAddress: testWallet}, nil)
	progress := NewProgressStore(persist, testCatalog(1), acceptAll(testHash), nil)

	identity, err := session.ConnectWallet(ctx)
	require.NoError(t, err)
	Sync(ctx, session.AuthState().Get(), progress)
	require.Equal(t, identity.ID, progress.UserID())

	outcome, err := progress.StartChallenge(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, StartCreated, outcome)

	rec, err := progress.CompleteChallenge(ctx, "c1", Proof{ArtifactRef: "proofs/c1.png"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, rec.Status)
	assert.Equal(t, 100, rec.Progress)
	assert.Equal(t, testHash, rec.ProofHash)
	assert.True(t, rec.ProofSubmitted)
	require.NotNil(t, rec.CompletedAt)

	stats := progress.GetUserStats()
	assert.Equal(t, 1, stats.CompletedChallenges)
	assert.Equal(t, 1, stats.TotalChallenges)
	assert.Equal(t, models.Reward{Amount: 10, Unit: "XION"}, stats.TotalRewards)
	assert.Equal(t, models.RankBeginner, stats.Rank)
	assert.Equal(t, 1, stats.CurrentStreak)

	raw, err := persist.Get(ctx, ProgressKey(testWallet))
	require.NoError(t, err)
	var stored []models.ChallengeProgress
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.Len(t, stored, 1)
	assert.Equal(t, testHash, stored[0].ProofHash)
}

func TestStartChallengeIsIdempotent(t *testing.T) {
	f := newProgressFixture(t, testCatalog(1), acceptAll(testHash))

	outcome, err := f.store.StartChallenge(f.ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, StartCreated, outcome)
	first, _ := f.store.GetChallengeProgress("c1")

	f.store.Now = func() time.Time { return time.Now().Add(time.Hour) }
	outcome, err = f.store.StartChallenge(f.ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, StartAlreadyStarted, outcome)

	again, _ := f.store.GetChallengeProgress("c1")
	assert.Equal(t, first, again)
	assert.Len(t, f.store.GetUserProgress(), 1)
}

func TestUpdateProgressClamps(t *testing.T) {
	f := newProgressFixture(t, testCatalog(1), acceptAll(testHash))
	_, err := f.store.StartChallenge(f.ctx, "c1")
	require.NoError(t, err)

	cases := []struct {
		in, want int
	}{
		{-5, 0},
		{0, 0},
		{42, 42},
		{100, 100},
		{150, 100},
	}
	for _, tc := range cases {
		rec, err := f.store.UpdateProgress(f.ctx, "c1", tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, rec.Progress, "input %d", tc.in)
		assert.Equal(t, models.StatusInProgress, rec.Status)
	}

	// progress never moves backwards
	f2 := newProgressFixture(t, testCatalog(1), acceptAll(testHash))
	_, err = f2.store.StartChallenge(f2.ctx, "c1")
	require.NoError(t, err)
	for _, tc := range []struct {
		in, want int
	}{
		{60, 60},
		{20, 60},
		{-10, 60},
		{75, 75},
	} {
		rec, err := f2.store.UpdateProgress(f2.ctx, "c1", tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, rec.Progress, "input %d", tc.in)
		assert.Equal(t, models.StatusInProgress, rec.Status)
	}
	got, ok := f2.store.GetChallengeProgress("c1")
	require.True(t, ok)
	assert.Equal(t, 75, got.Progress)
}

func TestUpdateProgressUnknownChallenge(t *testing.T) {
	f := newProgressFixture(t, testCatalog(1), acceptAll(testHash))
	_, err := f.store.UpdateProgress(f.ctx, "c9", 50)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProgressKeepsCompletedAtHundred(t *testing.T) {
	f := newProgressFixture(t, testCatalog(1), acceptAll(testHash))
	_, err := f.store.StartChallenge(f.ctx, "c1")
	require.NoError(t, err)
	_, err = f.store.CompleteChallenge(f.ctx, "c1", Proof{ArtifactRef: "a"})
	require.NoError(t, err)

	rec, err := f.store.UpdateProgress(f.ctx, "c1", 10)
	require.NoError(t, err)
	assert.Equal(t, 100, rec.Progress)
	assert.Equal(t, models.StatusCompleted, rec.Status)
}

func TestCompleteChallengeRejectedProofChangesNothing(t *testing.T) {
	reject := verifiers.Func(func(ctx context.Context, proof verifiers.ProofData) (*verifiers.Result, error) {
		return verifiers.Rejected("blurry photo"), nil
	})
	f := newProgressFixture(t, testCatalog(1), reject)
	_, err := f.store.StartChallenge(f.ctx, "c1")
	require.NoError(t, err)
	_, err = f.store.UpdateProgress(f.ctx, "c1", 60)
	require.NoError(t, err)
	before, _ := f.store.GetChallengeProgress("c1")
	statsBefore := f.store.GetUserStats()

	_, err = f.store.CompleteChallenge(f.ctx, "c1", Proof{ArtifactRef: "a"})
	require.ErrorIs(t, err, ErrVerificationFailed)
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "blurry photo", verr.Reason)

	after, _ := f.store.GetChallengeProgress("c1")
	assert.Equal(t, before, after)
	assert.Equal(t, statsBefore, f.store.GetUserStats())
}

func TestCompleteChallengeVerifierUnavailable(t *testing.T) {
	broken := verifiers.Func(func(ctx context.Context, proof verifiers.ProofData) (*verifiers.Result, error) {
		return nil, assert.AnError
	})
	f := newProgressFixture(t, testCatalog(1), broken)
	_, err := f.store.StartChallenge(f.ctx, "c1")
	require.NoError(t, err)

	_, err = f.store.CompleteChallenge(f.ctx, "c1", Proof{ArtifactRef: "a"})
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.NotContains(t, err.Error(), assert.AnError.Error())
}

func TestCompleteChallengeRequiresRecordAndCatalogEntry(t *testing.T) {
	f := newProgressFixture(t, testCatalog(1), acceptAll(testHash))

	_, err := f.store.CompleteChallenge(f.ctx, "c1", Proof{ArtifactRef: "a"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.store.StartChallenge(f.ctx, "ghost")
	require.NoError(t, err)
	_, err = f.store.CompleteChallenge(f.ctx, "ghost", Proof{ArtifactRef: "a"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRankThresholdsThroughCompletions(t *testing.T) {
	cases := []struct {
		completed int
		want      models.Rank
	}{
		{0, models.RankBeginner},
		{4, models.RankBeginner},
		{5, models.RankIntermediate},
		{9, models.RankIntermediate},
		{10, models.RankAdvanced},
		{19, models.RankAdvanced},
		{20, models.RankExpert},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.completed), func(t *testing.T) {
			f := newProgressFixture(t, testCatalog(20), acceptAll(testHash))
			for i := 1; i <= tc.completed; i++ {
				id := fmt.Sprintf("c%d", i)
				_, err := f.store.StartChallenge(f.ctx, id)
				require.NoError(t, err)
				_, err = f.store.CompleteChallenge(f.ctx, id, Proof{ArtifactRef: id})
				require.NoError(t, err)
			}
			stats := f.store.GetUserStats()
			assert.Equal(t, tc.completed, stats.CompletedChallenges)
			assert.Equal(t, int64(10*tc.completed), stats.TotalRewards.Amount)
			assert.Equal(t, tc.want, stats.Rank)
		})
	}
}

func TestRecompletionDoesNotDoubleCount(t *testing.T) {
	calls := 0
	v := verifiers.Func(func(ctx context.Context, proof verifiers.ProofData) (*verifiers.Result, error) {
		calls++
		return verifiers.Accepted(fmt.Sprintf("0x%d", calls)), nil
	})
	f := newProgressFixture(t, testCatalog(1), v)
	_, err := f.store.StartChallenge(f.ctx, "c1")
	require.NoError(t, err)

	_, err = f.store.CompleteChallenge(f.ctx, "c1", Proof{ArtifactRef: "a"})
	require.NoError(t, err)
	rec, err := f.store.CompleteChallenge(f.ctx, "c1", Proof{ArtifactRef: "b"})
	require.NoError(t, err)

	assert.Equal(t, "0x2", rec.ProofHash)
	assert.Equal(t, 1, f.store.GetUserStats().CompletedChallenges)
	assert.Equal(t, int64(10), f.store.GetUserStats().TotalRewards.Amount)
}

func TestRewardUnitsNeverMix(t *testing.T) {
	var called atomic.Int32
	v := verifiers.Func(func(ctx context.Context, proof verifiers.ProofData) (*verifiers.Result, error) {
		called.Add(1)
		return verifiers.Accepted(testHash), nil
	})
	cat := catalog.NewStatic([]models.Challenge{
		{ID: "c1", Reward: models.Reward{Amount: 50, Unit: "XION"}},
		{ID: "c2", Reward: models.Reward{Amount: 5, Unit: "ETH"}},
	})
	f := newProgressFixture(t, cat, v)
	for _, id := range []string{"c1", "c2"} {
		_, err := f.store.StartChallenge(f.ctx, id)
		require.NoError(t, err)
	}
	_, err := f.store.CompleteChallenge(f.ctx, "c1", Proof{ArtifactRef: "a"})
	require.NoError(t, err)

	_, err = f.store.CompleteChallenge(f.ctx, "c2", Proof{ArtifactRef: "b"})
	assert.ErrorIs(t, err, ErrRewardUnitMismatch)
	assert.Equal(t, int32(1), called.Load())
	rec, _ := f.store.GetChallengeProgress("c2")
	assert.Equal(t, models.StatusInProgress, rec.Status)
}

func TestPersistenceFailureKeepsUpdate(t *testing.T) {
	f := newProgressFixture(t, testCatalog(1), acceptAll(testHash))
	f.persist.failSet.Store(true)

	outcome, err := f.store.StartChallenge(f.ctx, "c1")
	assert.ErrorIs(t, err, ErrPersistenceFailed)
	assert.Equal(t, StartCreated, outcome)

	rec, ok := f.store.GetChallengeProgress("c1")
	require.True(t, ok)
	assert.Equal(t, models.StatusInProgress, rec.Status)
	assert.Equal(t, 1, f.store.GetUserStats().TotalChallenges)

	// next successful write carries the earlier change too
	f.persist.failSet.Store(false)
	_, err = f.store.UpdateProgress(f.ctx, "c1", 30)
	require.NoError(t, err)

	reloaded := NewProgressStore(f.persist, testCatalog(1), acceptAll(testHash), nil)
	reloaded.Bind(f.ctx, "user-1")
	got, ok := reloaded.GetChallengeProgress("c1")
	require.True(t, ok)
	assert.Equal(t, 30, got.Progress)
}

func TestConcurrentStartsCreateOneRecord(t *testing.T) {
	f := newProgressFixture(t, testCatalog(1), acceptAll(testHash))

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := f.store.StartChallenge(f.ctx, "c1")
			if err == nil && outcome == StartCreated {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Len(t, f.store.GetUserProgress(), 1)
	assert.Zero(t, f.store.locks.size())
}

func TestDifferentChallengesVerifyInParallel(t *testing.T) {
	var arrived sync.WaitGroup
	arrived.Add(2)
	both := make(chan struct{})
	go func() {
		arrived.Wait()
		close(both)
	}()
	v := verifiers.Func(func(ctx context.Context, proof verifiers.ProofData) (*verifiers.Result, error) {
		arrived.Done()
		select {
		case <-both:
			return verifiers.Accepted("0x" + proof.ChallengeID), nil
		case <-time.After(2 * time.Second):
			return verifiers.Rejected("serialized"), nil
		}
	})
	f := newProgressFixture(t, testCatalog(2), v)
	for _, id := range []string{"c1", "c2"} {
		_, err := f.store.StartChallenge(f.ctx, id)
		require.NoError(t, err)
	}

	errs := make(chan error, 2)
	for _, id := range []string{"c1", "c2"} {
		go func(id string) {
			_, err := f.store.CompleteChallenge(f.ctx, id, Proof{ArtifactRef: id})
			errs <- err
		}(id)
	}
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	assert.Equal(t, 2, f.store.GetUserStats().CompletedChallenges)
}

func TestCancelledCompletionLeavesRecord(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	v := verifiers.Func(func(vctx context.Context, proof verifiers.ProofData) (*verifiers.Result, error) {
		cancel()
		<-vctx.Done()
		return nil, vctx.Err()
	})
	f := newProgressFixture(t, testCatalog(1), v)
	_, err := f.store.StartChallenge(f.ctx, "c1")
	require.NoError(t, err)
	before, _ := f.store.GetChallengeProgress("c1")

	_, err = f.store.CompleteChallenge(ctx, "c1", Proof{ArtifactRef: "a"})
	assert.ErrorIs(t, err, context.Canceled)
	after, _ := f.store.GetChallengeProgress("c1")
	assert.Equal(t, before, after)
}

func TestProgressIsScopedByIdentity(t *testing.T) {
	f := newProgressFixture(t, testCatalog(1), acceptAll(testHash))
	_, err := f.store.StartChallenge(f.ctx, "c1")
	require.NoError(t, err)

	f.store.Unbind()
	f.store.Bind(f.ctx, "user-2")
	assert.Empty(t, f.store.GetUserProgress())
	assert.Equal(t, models.NewUserStats(), f.store.GetUserStats())

	f.store.Unbind()
	f.store.Bind(f.ctx, "user-1")
	assert.Len(t, f.store.GetUserProgress(), 1)
}

func TestMutationsRequireBinding(t *testing.T) {
	store := NewProgressStore(newFlakyStore(), testCatalog(1), acceptAll(testHash), nil)
	ctx := context.Background()

	_, err := store.StartChallenge(ctx, "c1")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = store.UpdateProgress(ctx, "c1", 5)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = store.CompleteChallenge(ctx, "c1", Proof{})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestBindIgnoresCorruptProgress(t *testing.T) {
	persist := newFlakyStore()
	ctx := context.Background()
	require.NoError(t, persist.Set(ctx, ProgressKey("user-1"), []byte("[{")))

	store := NewProgressStore(persist, testCatalog(1), acceptAll(testHash), nil)
	store.Bind(ctx, "user-1")
	assert.Equal(t, "user-1", store.UserID())
	assert.Empty(t, store.GetUserProgress())
}

func TestBindDropsUnfinishedRecordWithCompletion(t *testing.T) {
	persist := newFlakyStore()
	ctx := context.Background()
	raw := `[
		{"challenge_id":"c1","status":"in-progress","progress":40,"completed_at":"2026-01-02T00:00:00Z"},
		{"challenge_id":"c2","status":"in-progress","progress":10}
	]`
	require.NoError(t, persist.Set(ctx, ProgressKey("user-1"), []byte(raw)))

	store := NewProgressStore(persist, testCatalog(2), acceptAll(testHash), nil)
	store.Bind(ctx, "user-1")

	_, ok := store.GetChallengeProgress("c1")
	assert.False(t, ok)
	rec, ok := store.GetChallengeProgress("c2")
	require.True(t, ok)
	assert.Equal(t, 10, rec.Progress)
	assert.Equal(t, 1, store.GetUserStats().TotalChallenges)
}

func TestStatsObservable(t *testing.T) {
	f := newProgressFixture(t, testCatalog(1), acceptAll(testHash))
	updates, cancel := f.store.Stats().Subscribe()
	defer cancel()
	<-updates

	_, err := f.store.StartChallenge(f.ctx, "c1")
	require.NoError(t, err)
	_, err = f.store.CompleteChallenge(f.ctx, "c1", Proof{ArtifactRef: "a"})
	require.NoError(t, err)

	select {
	case stats := <-updates:
		assert.Equal(t, 1, stats.CompletedChallenges)
	case <-time.After(time.Second):
		t.Fatal("no stats update")
	}
}

func TestGetChallengesFilters(t *testing.T) {
	f := newProgressFixture(t, catalog.NewSeeded(), acceptAll(testHash))

	list, err := f.store.GetChallenges(f.ctx, catalog.Filter{Query: "EDUCATION"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = f.store.GetChallenges(f.ctx, catalog.Filter{Query: "solidity"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "4", list[0].ID)
}
