package verifiers

import (
	"context"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"
)

// DefaultSuccessRate matches the demo network's acceptance odds.
const DefaultSuccessRate = 0.8

// MockVerifier accepts proofs at random with SuccessRate.
type MockVerifier struct {
	SuccessRate float64
	Delay       time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func NewMockVerifier(successRate float64, delay time.Duration, seed uint64) *MockVerifier {
	return &MockVerifier{
		SuccessRate: successRate,
		Delay:       delay,
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (m *MockVerifier) Verify(ctx context.Context, proof ProofData) (*Result, error) {
	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if blank(proof.ChallengeID) || blank(proof.ArtifactRef) {
		return Rejected("proof is missing a challenge or artifact"), nil
	}

	m.mu.Lock()
	roll := m.rng.Float64()
	m.mu.Unlock()
	if roll >= m.SuccessRate {
		return Rejected("proof could not be verified on chain"), nil
	}
	return Accepted(HashProof(proof, strconv.FormatInt(time.Now().UnixNano(), 10))), nil
}
