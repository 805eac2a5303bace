package stores

import (
	"errors"
	"fmt"

	"challenge-reward-system/models"
)

// Every error returned by the stores is one of these (possibly wrapped with a
// message meant for the user). Collaborator errors are logged, not returned.
var (
	ErrConnectionFailed     = errors.New("connection failed")
	ErrBusy                 = errors.New("a sign-in is already in progress")
	ErrInvalidInput         = errors.New("invalid input")
	ErrAlreadyAuthenticated = errors.New("already signed in")
	ErrNotAuthenticated     = errors.New("not signed in")
	ErrNotFound             = errors.New("not found")
	ErrVerificationFailed   = errors.New("proof verification failed")
	ErrPersistenceFailed    = errors.New("changes could not be saved")
	ErrCatalogUnavailable   = errors.New("challenges are unavailable")
	ErrRewardUnitMismatch   = models.ErrRewardUnitMismatch
)

// VerificationError is a rejected proof. errors.Is(err, ErrVerificationFailed) holds.
type VerificationError struct {
	ChallengeID string
	Reason      string
}

func (e *VerificationError) Error() string {
	if e.Reason == "" {
		return ErrVerificationFailed.Error()
	}
	return fmt.Sprintf("%s: %s", ErrVerificationFailed, e.Reason)
}

func (e *VerificationError) Is(target error) bool {
	return target == ErrVerificationFailed
}

// StartOutcome tells a fresh start apart from a repeat one. A repeat start is
// not an error.
type StartOutcome int

const (
	StartCreated StartOutcome = iota
	StartAlreadyStarted
)

func (o StartOutcome) String() string {
	if o == StartAlreadyStarted {
		return "already-started"
	}
	return "started"
}
