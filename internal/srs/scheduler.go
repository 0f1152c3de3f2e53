package srs

import (
	"errors"
	"time"

	"github.com/conorfennell/lexideck/internal/domain"
)

// ErrInvalidGrade is returned when a review is submitted with an unknown grade.
var ErrInvalidGrade = errors.New("srs: invalid grade")

// Scheduler decides when a card becomes due again.
// The clock is injectable so callers and tests control "now".
type Scheduler struct {
	params *Params
	now    func() time.Time
}

// NewScheduler creates a Scheduler. Nil arguments fall back to DefaultParams and time.Now.
func NewScheduler(params *Params, now func() time.Time) *Scheduler {
	if params == nil {
		params = DefaultParams()
	}
	if now == nil {
		now = time.Now
	}
	return &Scheduler{params: params, now: now}
}

// Now returns the scheduler's current time.
func (s *Scheduler) Now() time.Time {
	return s.now()
}

// ComputeNextReviewAt returns the next due time measured from lastReviewAt, or from now
// when the card was never reviewed.
func (s *Scheduler) ComputeNextReviewAt(lastReviewAt *time.Time, previous *float64, grade domain.Grade) time.Time {
	from := s.now()
	if lastReviewAt != nil {
		from = *lastReviewAt
	}
	return nextReviewAt(from, s.params.NextIntervalHours(previousHours(previous), grade))
}

// Review grades a card at the current time and returns the updated copy.
// Only the scheduling fields change.
func (s *Scheduler) Review(card domain.Card, grade domain.Grade) (domain.Card, error) {
	if !grade.Valid() {
		return card, ErrInvalidGrade
	}

	now := s.now()
	hours := s.params.NextIntervalHours(previousHours(card.IntervalHours), grade)
	next := nextReviewAt(now, hours)

	card.LastReviewAt = &now
	card.IntervalHours = &hours
	card.NextReviewAt = &next
	return card, nil
}

// IsDue reports whether the card is due at the scheduler's current time.
func (s *Scheduler) IsDue(card domain.Card) bool {
	return IsDueAt(card, s.now())
}

// DueCards filters cards to the due ones at the scheduler's current time.
func (s *Scheduler) DueCards(cards []domain.Card) []domain.Card {
	return DueCardsAt(cards, s.now())
}

// IsDueAt reports whether the card is due at now. A card that was never scheduled is always due.
func IsDueAt(card domain.Card, now time.Time) bool {
	if card.NextReviewAt == nil {
		return true
	}
	return !card.NextReviewAt.After(now)
}

// DueCardsAt returns the due cards in their original order.
// The result is a fresh slice on every call.
func DueCardsAt(cards []domain.Card, now time.Time) []domain.Card {
	due := make([]domain.Card, 0, len(cards))
	for _, c := range cards {
		if IsDueAt(c, now) {
			due = append(due, c)
		}
	}
	return due
}

func nextReviewAt(from time.Time, hours float64) time.Time {
	return from.Add(time.Duration(hours * float64(time.Hour)))
}
