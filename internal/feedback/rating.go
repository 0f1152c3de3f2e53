// Package feedback stores the learner's five-question rating of a lesson.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/lexideck/internal/events"
	"github.com/conorfennell/lexideck/internal/storage"
)

const (
	// RatingPrefix is prepended to the lesson id to form the rating key.
	RatingPrefix = "episode-rating-"
	// LegacyPrefix is the key prefix of the older flat rating format, still written for readers of it.
	LegacyPrefix = "feedback-"
	// Version of the rating payload.
	Version = 1
)

// ErrIncompleteRating is returned when not every question has a valid answer.
var ErrIncompleteRating = errors.New("feedback: every question needs an answer from 1 to 5")

// Question is one rated aspect of a lesson.
type Question struct {
	ID    string
	Label string
}

// Questions are asked in this order.
var Questions = []Question{
	{ID: "interest", Label: "How interesting was this story?"},
	{ID: "clarity", Label: "How clear was the explanation?"},
	{ID: "vocabulary", Label: "How useful were the new words?"},
	{ID: "culture", Label: "Was the culture part interesting?"},
	{ID: "recommend", Label: "Would you recommend this lesson?"},
}

// Scale labels the answer values 1..5.
var Scale = []string{"Not at all", "A little", "Okay", "Good", "Excellent"}

// Rating is the stored result for one lesson.
type Rating struct {
	Responses map[string]int `json:"responses" validate:"len=5,dive,keys,oneof=interest clarity vocabulary culture recommend,endkeys,min=1,max=5"`
	Average   float64        `json:"average"`
	Count     int            `json:"count"`
	RatedAt   int64          `json:"ratedAt"` // unix milliseconds
	Version   int            `json:"version"`
}

// Average returns the mean of the valid (1..5) answers to the known questions, rounded to
// two decimals, or 0 when there are none.
func Average(responses map[string]int) float64 {
	total, n := 0, 0
	for _, q := range Questions {
		v, ok := responses[q.ID]
		if !ok || v < 1 || v > 5 {
			continue
		}
		total += v
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Round(float64(total)/float64(n)*100) / 100
}

// Service saves and loads lesson ratings.
type Service struct {
	store    storage.Store
	emitter  events.Emitter
	logger   *slog.Logger
	now      func() time.Time
	validate *validator.Validate
}

// NewService creates a rating service. emitter may be nil and now defaults to time.Now.
func NewService(store storage.Store, emitter events.Emitter, logger *slog.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:    store,
		emitter:  emitter,
		logger:   logger.With("component", "feedback"),
		now:      now,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Submit stores a complete rating for lessonID under both the current and the legacy key.
func (s *Service) Submit(ctx context.Context, lessonID string, responses map[string]int) (Rating, error) {
	rating := Rating{
		Responses: copyResponses(responses),
		Average:   Average(responses),
		Count:     len(Questions),
		RatedAt:   s.now().UnixMilli(),
		Version:   Version,
	}
	if err := s.validate.Struct(rating); err != nil {
		return Rating{}, fmt.Errorf("%w: %v", ErrIncompleteRating, err)
	}

	payload, err := json.Marshal(rating)
	if err != nil {
		return Rating{}, fmt.Errorf("failed to encode rating: %w", err)
	}
	if err := s.store.Put(ctx, RatingPrefix+lessonID, payload); err != nil {
		return Rating{}, fmt.Errorf("failed to save rating: %w", err)
	}

	legacy := make(map[string]int64, len(rating.Responses)+1)
	for k, v := range rating.Responses {
		legacy[k] = int64(v)
	}
	legacy["timestamp"] = rating.RatedAt
	if raw, err := json.Marshal(legacy); err == nil {
		if err := s.store.Put(ctx, LegacyPrefix+lessonID, raw); err != nil {
			s.logger.Warn("failed to save legacy rating", "lesson_id", lessonID, "error", err)
		}
	}

	events.Publish(ctx, s.emitter, s.logger, events.LessonRated, events.RatingPayload{LessonID: lessonID, Average: rating.Average})
	return rating, nil
}

// Load returns the saved rating for lessonID. Incomplete or unreadable ratings count as absent.
func (s *Service) Load(ctx context.Context, lessonID string) (Rating, bool) {
	raw, ok, err := s.store.Get(ctx, RatingPrefix+lessonID)
	if err != nil || !ok {
		return Rating{}, false
	}
	var rating Rating
	if err := json.Unmarshal(raw, &rating); err != nil {
		s.logger.Debug("ignoring corrupt rating", "lesson_id", lessonID, "error", err)
		return Rating{}, false
	}
	if len(rating.Responses) != len(Questions) {
		return Rating{}, false
	}
	if rating.Average == 0 {
		rating.Average = Average(rating.Responses)
	}
	return rating, true
}

func copyResponses(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
