package models

import (
	"time"
)

type ProofType string

const (
	ProofImage    ProofType = "image"
	ProofVideo    ProofType = "video"
	ProofDocument ProofType = "document"
	ProofLink     ProofType = "link"
)

func (t ProofType) Valid() bool {
	switch t {
	case ProofImage, ProofVideo, ProofDocument, ProofLink:
		return true
	}
	return false
}

type ProofStatus string

const (
	ProofPending  ProofStatus = "pending"
	ProofVerified ProofStatus = "verified"
	ProofRejected ProofStatus = "rejected"
)

// Proof is a submission stored by the backend.
type Proof struct {
	ID          string            `gorm:"primaryKey;size:26" json:"id"`
	UserID      string            `gorm:"index;not null" json:"user_id"`
	ChallengeID string            `gorm:"index;not null" json:"challenge_id"`
	Type        ProofType         `gorm:"not null" json:"type"`
	Data        string            `gorm:"type:text;not null" json:"data"`
	Metadata    map[string]string `gorm:"serializer:json" json:"metadata,omitempty"`
	Status      ProofStatus       `gorm:"index;not null;default:'pending'" json:"status"`
	ProofHash   string            `json:"proof_hash,omitempty"`
	Feedback    string            `gorm:"type:text" json:"feedback,omitempty"`
	SubmittedAt time.Time         `gorm:"autoCreateTime" json:"submitted_at"`
	VerifiedAt  *time.Time        `json:"verified_at,omitempty"`
}
