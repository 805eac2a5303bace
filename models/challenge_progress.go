package models

import (
	"time"
)

// ProgressStatus is where a user is with a single challenge.
type ProgressStatus string

const (
	StatusNotStarted ProgressStatus = "not-started"
	StatusInProgress ProgressStatus = "in-progress"
	StatusCompleted  ProgressStatus = "completed"
)

// ChallengeProgress tracks one user's work on one challenge.
// Completed records always carry progress 100 and a proof hash. CompletedAt
// and ProofHash are only ever set by the transition to completed.
type ChallengeProgress struct {
	ChallengeID    string         `json:"challenge_id"`
	Status         ProgressStatus `json:"status"`
	Progress       int            `json:"progress"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	ProofSubmitted bool           `json:"proof_submitted"`
	ProofHash      string         `json:"proof_hash,omitempty"`
	Reward         Reward         `json:"reward"`
}

// ClampPercent bounds a progress value to [0,100].
func ClampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// Consistent reports whether the record satisfies the status invariants.
func (p ChallengeProgress) Consistent() bool {
	switch p.Status {
	case StatusCompleted:
		return p.Progress == 100 && p.ProofHash != "" && p.CompletedAt != nil
	case StatusNotStarted:
		return p.Progress == 0 && p.unfinished()
	case StatusInProgress:
		return p.Progress >= 0 && p.Progress <= 100 && p.unfinished()
	}
	return false
}

func (p ChallengeProgress) unfinished() bool {
	return p.CompletedAt == nil && p.ProofHash == ""
}
