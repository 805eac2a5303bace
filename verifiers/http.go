package verifiers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"challenge-reward-system/models"
	"challenge-reward-system/utils"
)

// TokenSource supplies the bearer token of the signed-in user.
type TokenSource interface {
	Token() string
}

// HTTPVerifier submits proofs to the backend's /api/proofs route.
type HTTPVerifier struct {
	BaseURL string
	Client  *http.Client
	Tokens  TokenSource
}

func NewHTTPVerifier(baseURL string, client *http.Client, tokens TokenSource) *HTTPVerifier {
	return &HTTPVerifier{BaseURL: strings.TrimRight(baseURL, "/"), Client: client, Tokens: tokens}
}

// ProofTypeFor reads the artifact type from metadata["type"], falling back
// to link for URLs and document otherwise.
func ProofTypeFor(proof ProofData) models.ProofType {
	if t := models.ProofType(proof.Metadata["type"]); t.Valid() {
		return t
	}
	if strings.HasPrefix(proof.ArtifactRef, "http://") || strings.HasPrefix(proof.ArtifactRef, "https://") {
		return models.ProofLink
	}
	return models.ProofDocument
}

func (h *HTTPVerifier) Verify(ctx context.Context, proof ProofData) (*Result, error) {
	body := map[string]any{
		"challenge_id": proof.ChallengeID,
		"type":         ProofTypeFor(proof),
		"data":         proof.ArtifactRef,
		"metadata":     proof.Metadata,
	}

	var submitted models.Proof
	err := utils.DoJSON(ctx, h.Client, http.MethodPost, h.BaseURL+"/api/proofs", h.Tokens.Token(), body, &submitted)
	if err != nil {
		var apiErr *utils.APIError
		if errors.As(err, &apiErr) && rejectedStatus(apiErr.Status) {
			return Rejected(apiErr.Message), nil
		}
		return nil, fmt.Errorf("proof submission failed: %w", err)
	}

	switch submitted.Status {
	case models.ProofVerified:
		return Accepted(submitted.ProofHash), nil
	case models.ProofRejected:
		return Rejected(submitted.Feedback), nil
	default:
		return Rejected("proof is pending manual review"), nil
	}
}

// rejectedStatus marks answers that are a decision about the proof rather
// than a failure to reach the backend.
func rejectedStatus(status int) bool {
	switch status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity:
		return true
	}
	return false
}
