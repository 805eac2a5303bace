package models

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultRewardUnit is the token every seeded challenge pays out in.
const DefaultRewardUnit = "XION"

var ErrRewardUnitMismatch = errors.New("reward units differ")

// Reward is a token amount. Amounts of different units never mix.
type Reward struct {
	Amount int64  `json:"amount"`
	Unit   string `json:"unit"`
}

// IsZero reports whether nothing has been accumulated yet.
func (r Reward) IsZero() bool { return r.Amount == 0 }

// Add sums two rewards. A zero reward adopts the other's unit.
func (r Reward) Add(o Reward) (Reward, error) {
	switch {
	case o.IsZero() && o.Unit == "":
		return r, nil
	case r.IsZero() && r.Unit == "":
		return o, nil
	case r.Unit != o.Unit:
		return r, fmt.Errorf("%w: %s and %s", ErrRewardUnitMismatch, r.Unit, o.Unit)
	}
	return Reward{Amount: r.Amount + o.Amount, Unit: r.Unit}, nil
}

// CompatibleWith reports whether o can be added to r.
func (r Reward) CompatibleWith(o Reward) bool {
	_, err := r.Add(o)
	return err == nil
}

func (r Reward) String() string {
	return fmt.Sprintf("%d %s", r.Amount, r.Unit)
}

var rewardPattern = regexp.MustCompile(`^(\d+)\s+([A-Za-z]+)$`)

// ParseReward reads the display form "50 XION".
func ParseReward(s string) (Reward, error) {
	m := rewardPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Reward{}, fmt.Errorf("invalid reward %q", s)
	}
	amount, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Reward{}, fmt.Errorf("invalid reward amount %q: %w", m[1], err)
	}
	return Reward{Amount: amount, Unit: strings.ToUpper(m[2])}, nil
}
