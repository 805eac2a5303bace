// Package verifiers checks proof submissions before a challenge counts as completed.
package verifiers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// ProofData is what the user submits for a challenge.
type ProofData struct {
	ChallengeID string            `json:"challenge_id"`
	ArtifactRef string            `json:"artifact_ref"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Result is the verifier's decision. ProofHash is set on success, Reason on failure.
type Result struct {
	Success   bool
	ProofHash string
	Reason    string
}

func Accepted(hash string) *Result  { return &Result{Success: true, ProofHash: hash} }
func Rejected(reason string) *Result { return &Result{Reason: reason} }

// Verifier returns an error only when it could not reach a decision.
type Verifier interface {
	Verify(ctx context.Context, proof ProofData) (*Result, error)
}

// Func adapts a function to Verifier.
type Func func(ctx context.Context, proof ProofData) (*Result, error)

func (f Func) Verify(ctx context.Context, proof ProofData) (*Result, error) {
	return f(ctx, proof)
}

// HashProof is a stable digest of a proof and a salt, 0x-prefixed.
func HashProof(proof ProofData, salt string) string {
	h := sha256.New()
	h.Write([]byte(proof.ChallengeID))
	h.Write([]byte{0})
	h.Write([]byte(proof.ArtifactRef))
	keys := make([]string, 0, len(proof.Metadata))
	for k := range proof.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k + "=" + proof.Metadata[k]))
	}
	h.Write([]byte{0})
	h.Write([]byte(salt))
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
