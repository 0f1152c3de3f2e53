package storage

import (
	"context"
	"fmt"

	"github.com/conorfennell/lexideck/internal/domain"
	"github.com/conorfennell/lexideck/internal/events"
)

// ReviewLogHandler persists review_graded events into the review history.
type ReviewLogHandler struct {
	db *DB
}

// NewReviewLogHandler creates a handler writing to db.
func NewReviewLogHandler(db *DB) *ReviewLogHandler {
	return &ReviewLogHandler{db: db}
}

// HandleEvent implements events.Handler. Other event types are ignored.
func (h *ReviewLogHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.ReviewGraded {
		return nil
	}
	var p events.ReviewPayload
	if err := event.UnmarshalPayload(&p); err != nil {
		return fmt.Errorf("failed to decode review event %s: %w", event.ID, err)
	}
	return h.db.InsertReviewLog(ctx, domain.ReviewLog{
		CardID:        p.CardID,
		LessonID:      p.LessonID,
		Word:          p.Word,
		Grade:         domain.Grade(p.Grade),
		IntervalHours: p.IntervalHours,
		ReviewedAt:    p.ReviewedAt,
		NextReviewAt:  p.NextReviewAt,
	})
}
