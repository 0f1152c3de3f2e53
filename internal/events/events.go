// Package events carries discrete notifications about deck and quiz state changes
// to observers such as analytics or the review log.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event names emitted by the core.
const (
	DeckLoaded    = "deck_loaded"
	CardAdded     = "card_added"
	CardRemoved   = "card_removed"
	CardEnriched  = "card_enriched"
	ReviewGraded  = "review_graded"
	QuizStarted   = "quiz_started"
	QuizCompleted = "quiz_completed"
	LessonRated   = "lesson_rated"
)

// Event is a single named notification with a small JSON payload.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// New creates an Event with the payload serialized as JSON.
func New(eventType string, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   raw,
		CreatedAt: time.Now(),
	}, nil
}

// UnmarshalPayload decodes the event payload into v.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Handler processes events.
type Handler interface {
	HandleEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Emitter publishes events without knowing who handles them.
type Emitter interface {
	Emit(ctx context.Context, event *Event) error
}

// Payloads.

// DeckPayload describes the deck after a load or a card change.
type DeckPayload struct {
	LessonID string `json:"lessonId"`
	Word     string `json:"word,omitempty"`
	Count    int    `json:"count"`
}

// ReviewPayload describes a graded card.
type ReviewPayload struct {
	LessonID      string    `json:"lessonId"`
	CardID        string    `json:"cardId"`
	Word          string    `json:"word"`
	Grade         string    `json:"grade"`
	IntervalHours float64   `json:"intervalHours"`
	ReviewedAt    time.Time `json:"reviewedAt"`
	NextReviewAt  time.Time `json:"nextReviewAt"`
}

// QuizPayload describes a quiz run.
type QuizPayload struct {
	Kind  string `json:"kind"`
	Score int    `json:"score,omitempty"`
	Total int    `json:"total"`
}

// RatingPayload describes a submitted lesson rating.
type RatingPayload struct {
	LessonID string  `json:"lessonId"`
	Average  float64 `json:"average"`
}
