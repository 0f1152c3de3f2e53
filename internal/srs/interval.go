package srs

import (
	"math"

	"github.com/conorfennell/lexideck/internal/domain"
)

const (
	// DefaultBaseHours is used when a card has never been graded.
	DefaultBaseHours = 8.0
	// MinIntervalHours and MaxIntervalHours bound every computed interval (1 hour to 45 days).
	MinIntervalHours = 1.0
	MaxIntervalHours = 24 * 45.0
)

// Params holds the parameters of the interval function.
type Params struct {
	BaseHours   float64                  // interval assumed for a card with no history
	MinHours    float64                  // lower clamp
	MaxHours    float64                  // upper clamp
	Multipliers map[domain.Grade]float64 // growth factor per grade
}

// DefaultParams provides the multipliers the deck is tuned for.
func DefaultParams() *Params {
	return &Params{
		BaseHours: DefaultBaseHours,
		MinHours:  MinIntervalHours,
		MaxHours:  MaxIntervalHours,
		Multipliers: map[domain.Grade]float64{
			domain.Again: 0.35,
			domain.Hard:  0.8,
			domain.Good:  1.25,
			domain.Easy:  1.8,
		},
	}
}

// NextIntervalHours maps the previous interval and a grade to the next interval.
// A previous interval <= 0 means "absent" and falls back to the base interval.
// Unknown grades are treated as Good.
func (p *Params) NextIntervalHours(previousHours float64, grade domain.Grade) float64 {
	base := previousHours
	if base <= 0 {
		base = p.BaseHours
	}
	base = math.Max(base, 1)

	multiplier, ok := p.Multipliers[grade]
	if !ok {
		multiplier = p.Multipliers[domain.Good]
	}

	next := math.Round(base * multiplier)
	return math.Min(math.Max(next, p.MinHours), p.MaxHours)
}

// NextIntervalHours applies the default parameters.
func NextIntervalHours(previousHours float64, grade domain.Grade) float64 {
	return defaultParams.NextIntervalHours(previousHours, grade)
}

var defaultParams = DefaultParams()

// previousHours unwraps an optional interval.
func previousHours(h *float64) float64 {
	if h == nil {
		return 0
	}
	return *h
}
