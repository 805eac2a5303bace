package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetermineRank(t *testing.T) {
	cases := map[int]Rank{
		0: RankBeginner, 4: RankBeginner,
		5: RankIntermediate, 9: RankIntermediate,
		10: RankAdvanced, 19: RankAdvanced,
		20: RankExpert, 250: RankExpert,
	}
	for completed, want := range cases {
		assert.Equal(t, want, DetermineRank(completed), "completed=%d", completed)
	}
}

func TestRewardAdd(t *testing.T) {
	var total Reward
	total, err := total.Add(Reward{Amount: 50, Unit: "XION"})
	require.NoError(t, err)
	total, err = total.Add(Reward{Amount: 25, Unit: "XION"})
	require.NoError(t, err)
	assert.Equal(t, Reward{Amount: 75, Unit: "XION"}, total)

	_, err = total.Add(Reward{Amount: 1, Unit: "ETH"})
	assert.ErrorIs(t, err, ErrRewardUnitMismatch)
	assert.True(t, Reward{}.CompatibleWith(Reward{Amount: 1, Unit: "ETH"}))
}

func TestParseReward(t *testing.T) {
	r, err := ParseReward("100 XION")
	require.NoError(t, err)
	assert.Equal(t, Reward{Amount: 100, Unit: "XION"}, r)
	assert.Equal(t, "100 XION", r.String())

	for _, bad := range []string{"", "XION", "ten XION", "10"} {
		_, err := ParseReward(bad)
		assert.Error(t, err, bad)
	}
}

func TestStreak(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	day := func(offset int) time.Time { return now.AddDate(0, 0, -offset) }

	assert.Equal(t, 0, Streak(nil, now))
	assert.Equal(t, 1, Streak([]time.Time{day(0)}, now))
	assert.Equal(t, 3, Streak([]time.Time{day(0), day(1), day(2), day(4)}, now))
	// ending yesterday still counts
	assert.Equal(t, 2, Streak([]time.Time{day(1), day(2)}, now))
	assert.Equal(t, 0, Streak([]time.Time{day(2)}, now))
	// two completions on one day count once
	assert.Equal(t, 1, Streak([]time.Time{day(0), day(0).Add(-time.Hour)}, now))
}

func TestComputeStats(t *testing.T) {
	now := time.Now()
	records := []ChallengeProgress{
		{ChallengeID: "1", Status: StatusInProgress, Progress: 40},
		{ChallengeID: "2", Status: StatusCompleted, Progress: 100, ProofHash: "0x1", CompletedAt: &now, Reward: Reward{50, "XION"}},
		{ChallengeID: "3", Status: StatusCompleted, Progress: 100, ProofHash: "0x2", CompletedAt: &now, Reward: Reward{25, "XION"}},
		{ChallengeID: "4", Status: StatusNotStarted},
	}
	stats, err := ComputeStats(records, now)
	require.NoError(t, err)
	assert.Equal(t, UserStats{
		CompletedChallenges: 2,
		TotalChallenges:     3,
		TotalRewards:        Reward{75, "XION"},
		CurrentStreak:       1,
		Rank:                RankBeginner,
	}, stats)

	records = append(records, ChallengeProgress{ChallengeID: "5", Status: StatusCompleted, Progress: 100, ProofHash: "0x3", CompletedAt: &now, Reward: Reward{1, "ETH"}})
	stats, err = ComputeStats(records, now)
	assert.ErrorIs(t, err, ErrRewardUnitMismatch)
	assert.Equal(t, 3, stats.CompletedChallenges)
	assert.Equal(t, Reward{75, "XION"}, stats.TotalRewards)
}

func TestChallengeProgressConsistent(t *testing.T) {
	now := time.Now()
	assert.True(t, ChallengeProgress{Status: StatusNotStarted}.Consistent())
	assert.False(t, ChallengeProgress{Status: StatusNotStarted, Progress: 3}.Consistent())
	assert.False(t, ChallengeProgress{Status: StatusCompleted, Progress: 100}.Consistent())
	assert.True(t, ChallengeProgress{Status: StatusCompleted, Progress: 100, ProofHash: "0x", CompletedAt: &now}.Consistent())
	assert.True(t, ChallengeProgress{Status: StatusInProgress, Progress: 40, StartedAt: &now}.Consistent())
	assert.False(t, ChallengeProgress{Status: StatusInProgress, Progress: 40, CompletedAt: &now}.Consistent())
	assert.False(t, ChallengeProgress{Status: StatusInProgress, Progress: 40, ProofHash: "0x1"}.Consistent())
	assert.False(t, ChallengeProgress{Status: StatusNotStarted, CompletedAt: &now}.Consistent())
	assert.False(t, ChallengeProgress{Status: StatusInProgress, Progress: 101}.Consistent())
	assert.Equal(t, 0, ClampPercent(-1))
	assert.Equal(t, 100, ClampPercent(101))
}

func TestIdentityValidate(t *testing.T) {
	cases := []struct {
		name string
		id   Identity
		ok   bool
	}{
		{"wallet", Identity{ID: "0x1", Method: WalletMethod(), Address: "0x1"}, true},
		{"wallet with email", Identity{ID: "0x1", Method: WalletMethod(), Address: "0x1", Email: "a@b.c"}, false},
		{"email", Identity{ID: "u", Method: EmailMethod(), Email: "a@b.c"}, true},
		{"email with address", Identity{ID: "u", Method: EmailMethod(), Email: "a@b.c", Address: "0x1"}, false},
		{"social", Identity{ID: "u", Method: SocialMethod(ProviderGoogle), Email: "a@b.c"}, true},
		{"social unknown provider", Identity{ID: "u", Method: SocialMethod("myspace"), Email: "a@b.c"}, false},
		{"no id", Identity{Method: EmailMethod(), Email: "a@b.c"}, false},
		{"no kind", Identity{ID: "u", Email: "a@b.c"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.id.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidIdentity)
			}
		})
	}
}

func TestIdentityHandles(t *testing.T) {
	wallet := Identity{ID: "0x1", Method: WalletMethod(), Address: "0xabc"}
	assert.Equal(t, "0xabc", wallet.DisplayHandle())
	assert.Equal(t, "0xabc", wallet.Identifier())

	social := Identity{ID: "u", Method: SocialMethod(ProviderFacebook), Email: "user@facebook.com"}
	assert.Equal(t, "Facebook", social.DisplayHandle())
	assert.Equal(t, "user@facebook.com", social.Identifier())
}

func TestLoginMethodJSON(t *testing.T) {
	raw, err := json.Marshal(SocialMethod(ProviderApple))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"social","provider":"apple"}`, string(raw))

	raw, err = json.Marshal(WalletMethod())
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"wallet"}`, string(raw))
}

func TestParseSocialProvider(t *testing.T) {
	p, err := ParseSocialProvider(" Google ")
	require.NoError(t, err)
	assert.Equal(t, ProviderGoogle, p)
	_, err = ParseSocialProvider("twitter")
	assert.Error(t, err)
}

func TestSeedChallenges(t *testing.T) {
	seed := SeedChallenges()
	require.Len(t, seed, 8)
	for _, c := range seed {
		assert.True(t, ValidCategory(c.Category), c.Category)
		assert.True(t, c.Difficulty.Valid())
		assert.Equal(t, DefaultRewardUnit, c.Reward.Unit)
		assert.Equal(t, ChallengeOpen, c.Status)
	}
	seed[0].Title = "changed"
	assert.NotEqual(t, "changed", SeedChallenges()[0].Title)
}
