package models

import (
	"time"
)

type Rank string

const (
	RankBeginner     Rank = "Beginner"
	RankIntermediate Rank = "Intermediate"
	RankAdvanced     Rank = "Advanced"
	RankExpert       Rank = "Expert"
)

// RankThresholds: completed challenges needed for each rank, highest first.
var RankThresholds = []struct {
	Rank      Rank
	Completed int
}{
	{RankExpert, 20},
	{RankAdvanced, 10},
	{RankIntermediate, 5},
	{RankBeginner, 0},
}

// DetermineRank maps a completed-challenge count to a rank.
func DetermineRank(completed int) Rank {
	for _, t := range RankThresholds {
		if completed >= t.Completed {
			return t.Rank
		}
	}
	return RankBeginner
}

// UserStats is derived from the user's ChallengeProgress records.
type UserStats struct {
	CompletedChallenges int    `json:"completed_challenges"`
	TotalChallenges     int    `json:"total_challenges"`
	TotalRewards        Reward `json:"total_rewards" gorm:"embedded;embeddedPrefix:total_rewards_"`
	CurrentStreak       int    `json:"current_streak"`
	Rank                Rank   `json:"rank"`
}

// NewUserStats is the zero state for a user with no records.
func NewUserStats() UserStats {
	return UserStats{Rank: RankBeginner}
}

// ComputeStats derives stats from progress records. Completions whose reward
// unit disagrees with the first completed unit are counted but not summed,
// and ErrRewardUnitMismatch is returned alongside the stats.
func ComputeStats(records []ChallengeProgress, now time.Time) (UserStats, error) {
	stats := NewUserStats()
	var days []time.Time
	var mismatch error
	for _, rec := range records {
		if rec.Status == StatusNotStarted {
			continue
		}
		stats.TotalChallenges++
		if rec.Status != StatusCompleted {
			continue
		}
		stats.CompletedChallenges++
		if total, err := stats.TotalRewards.Add(rec.Reward); err != nil {
			mismatch = err
		} else {
			stats.TotalRewards = total
		}
		if rec.CompletedAt != nil {
			days = append(days, *rec.CompletedAt)
		}
	}
	stats.CurrentStreak = Streak(days, now)
	stats.Rank = DetermineRank(stats.CompletedChallenges)
	return stats, mismatch
}

// Streak counts consecutive calendar days with a completion, ending today or
// yesterday (in now's location).
func Streak(completions []time.Time, now time.Time) int {
	loc := now.Location()
	seen := make(map[string]bool, len(completions))
	for _, t := range completions {
		seen[t.In(loc).Format(time.DateOnly)] = true
	}

	day := now
	if !seen[day.Format(time.DateOnly)] {
		day = day.AddDate(0, 0, -1)
	}
	streak := 0
	for seen[day.Format(time.DateOnly)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}
