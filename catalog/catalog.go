// Package catalog reads the challenge catalog.
package catalog

import (
	"context"
	"errors"
	"strings"

	"challenge-reward-system/models"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/cases"
)

var ErrChallengeNotFound = errors.New("challenge not found")

// Filter narrows a listing. Query matches title, category and tags as a
// case- and accent-insensitive substring. Empty fields match everything.
type Filter struct {
	Query      string            `json:"query,omitempty"`
	Category   string            `json:"category,omitempty"`
	Difficulty models.Difficulty `json:"difficulty,omitempty"`
}

type Catalog interface {
	List(ctx context.Context, filter Filter) ([]models.Challenge, error)
	Get(ctx context.Context, id string) (*models.Challenge, error)
}

// Normalize folds case and strips accents.
func Normalize(s string) string {
	return cases.Fold().String(unidecode.Unidecode(strings.TrimSpace(s)))
}

// Matches reports whether c passes f.
func Matches(c models.Challenge, f Filter) bool {
	if f.Category != "" && Normalize(c.Category) != Normalize(f.Category) {
		return false
	}
	if f.Difficulty != "" && !strings.EqualFold(string(c.Difficulty), string(f.Difficulty)) {
		return false
	}
	q := Normalize(f.Query)
	if q == "" {
		return true
	}
	if strings.Contains(Normalize(c.Title), q) || strings.Contains(Normalize(c.Category), q) {
		return true
	}
	for _, tag := range c.Tags {
		if strings.Contains(Normalize(tag), q) {
			return true
		}
	}
	return false
}

// Apply returns the challenges in list that pass f, keeping order.
func Apply(list []models.Challenge, f Filter) []models.Challenge {
	out := make([]models.Challenge, 0, len(list))
	for _, c := range list {
		if Matches(c, f) {
			out = append(out, c)
		}
	}
	return out
}
