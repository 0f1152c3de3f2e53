package quiz

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"

	"github.com/conorfennell/lexideck/internal/events"
	"github.com/conorfennell/lexideck/internal/wordkey"
)

var (
	// ErrNoQuestions is returned when a run would contain no items.
	ErrNoQuestions = errors.New("quiz: no questions available")
	// ErrQuizLocked is returned when the vocabulary test is started below the unlock threshold.
	ErrQuizLocked = errors.New("quiz: not enough cards to unlock the test")
)

// State is the phase of a quiz run.
type State string

const (
	Idle       State = "idle"
	InProgress State = "in_progress"
	Answered   State = "answered"
	Finished   State = "finished"
)

// Feedback describes the outcome of a selection.
type Feedback struct {
	Correct  bool   `json:"correct"`
	Selected string `json:"selected"`
	Text     string `json:"text"`
	Retry    bool   `json:"retry,omitempty"`
}

// Result summarizes a finished run.
type Result struct {
	Score   int    `json:"score"`
	Total   int    `json:"total"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// View is a read-only snapshot of a session for rendering.
type View struct {
	Kind     Kind      `json:"kind"`
	State    State     `json:"state"`
	Index    int       `json:"index"`
	Total    int       `json:"total"`
	Score    int       `json:"score"`
	Item     *Item     `json:"item,omitempty"`
	Feedback *Feedback `json:"feedback,omitempty"`
	Result   *Result   `json:"result,omitempty"`
}

// Session runs one quiz at a time: idle -> in_progress -> answered -> ... -> finished.
type Session struct {
	mu       sync.Mutex
	kind     Kind
	items    []Item
	current  int
	score    int
	misses   int // wrong attempts on the current fill-in-the-blank item
	state    State
	feedback *Feedback

	emitter events.Emitter
	logger  *slog.Logger
}

// NewSession creates an idle session. emitter may be nil.
func NewSession(kind Kind, emitter events.Emitter, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		kind:    kind,
		state:   Idle,
		emitter: emitter,
		logger:  logger.With("component", "quiz", "kind", string(kind)),
	}
}

// Start begins a new run with items, discarding any previous run.
func (s *Session) Start(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return ErrNoQuestions
	}

	s.mu.Lock()
	s.items = append([]Item(nil), items...)
	s.current = 0
	s.score = 0
	s.misses = 0
	s.feedback = nil
	s.state = InProgress
	s.mu.Unlock()

	events.Publish(ctx, s.emitter, s.logger, events.QuizStarted, events.QuizPayload{Kind: string(s.kind), Total: len(items)})
	return nil
}

// Select submits an option for the current item. It returns false when the selection was
// ignored: no run is in progress, the answer is already locked or option is not one of the
// item's options (compared case-insensitively).
// Fill-in-the-blank items stay open after a wrong attempt; a point is only awarded when the
// first attempt is correct.
func (s *Session) Select(option string) (Feedback, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != InProgress {
		if s.feedback != nil {
			return *s.feedback, false
		}
		return Feedback{}, false
	}

	item := s.items[s.current]
	if !hasOption(item, option) {
		if s.feedback != nil {
			return *s.feedback, false
		}
		return Feedback{}, false
	}
	correct := wordkey.Normalize(option) == wordkey.Normalize(item.Answer)

	fb := Feedback{Correct: correct, Selected: option}
	switch {
	case correct:
		if s.misses == 0 {
			s.score++
		}
		fb.Text = s.correctText(item)
		s.state = Answered
	case item.Kind == FillBlank:
		s.misses++
		fb.Retry = true
		fb.Text = "Not quite. Try again."
	default:
		fb.Text = s.incorrectText(item)
		s.state = Answered
	}
	s.feedback = &fb
	return fb, true
}

func hasOption(item Item, option string) bool {
	for _, o := range item.Options {
		if wordkey.Equal(o, option) {
			return true
		}
	}
	return false
}

// Next advances past an answered item. It returns false when the current item is not answered.
func (s *Session) Next(ctx context.Context) bool {
	s.mu.Lock()
	if s.state != Answered {
		s.mu.Unlock()
		return false
	}
	s.current++
	s.misses = 0
	s.feedback = nil
	s.state = InProgress
	finished := s.current >= len(s.items)
	if finished {
		s.state = Finished
	}
	score, total := s.score, len(s.items)
	s.mu.Unlock()

	if finished {
		events.Publish(ctx, s.emitter, s.logger, events.QuizCompleted, events.QuizPayload{Kind: string(s.kind), Score: score, Total: total})
	}
	return true
}

// Abort discards the current run and returns to idle.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.current = 0
	s.score = 0
	s.misses = 0
	s.feedback = nil
	s.state = Idle
}

// Active reports whether a run is started and not yet finished.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == InProgress || s.state == Answered
}

// State returns the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{Kind: s.kind, State: s.state, Index: s.current, Total: len(s.items), Score: s.score}
	if s.state == InProgress || s.state == Answered {
		item := s.items[s.current]
		item.Options = append([]string(nil), item.Options...)
		v.Item = &item
	}
	if s.feedback != nil {
		fb := *s.feedback
		v.Feedback = &fb
	}
	if s.state == Finished {
		r := s.resultLocked()
		v.Result = &r
	}
	return v
}

func (s *Session) resultLocked() Result {
	total := len(s.items)
	percent := 0
	if total > 0 {
		percent = int(math.Round(float64(s.score) / float64(total) * 100))
	}
	return Result{
		Score:   s.score,
		Total:   total,
		Percent: percent,
		Message: ScoreMessage(s.kind, s.score, total),
	}
}

func (s *Session) correctText(item Item) string {
	if s.kind == Exercises {
		return "Correct."
	}
	return "Correct. " + item.Answer + "." + meaning(item)
}

func (s *Session) incorrectText(item Item) string {
	if s.kind == Exercises {
		return "Incorrect. The answer is: " + item.Answer
	}
	return "Incorrect. Correct answer: " + item.Answer + "." + meaning(item)
}

func meaning(item Item) string {
	if item.Explanation == "" {
		return ""
	}
	return " Meaning: " + item.Explanation
}

// ScoreMessage returns the qualitative message for a score: perfect, at least 80%,
// at least 60%, or below.
func ScoreMessage(kind Kind, score, total int) string {
	messages := vocabularyMessages
	if kind == Exercises {
		messages = exerciseMessages
	}
	switch {
	case score >= total:
		return messages[0]
	case score >= ceilPercent(total, 80):
		return messages[1]
	case score >= ceilPercent(total, 60):
		return messages[2]
	default:
		return messages[3]
	}
}

var vocabularyMessages = [4]string{
	"Excellent. You understood all your selected words.",
	"Very strong result. Keep these words in review.",
	"Good progress. Review the missed words once more.",
	"You are still learning these words. Use flashcards and try again.",
}

var exerciseMessages = [4]string{
	"Perfect. You're a superstar.",
	"Excellent work. You're making great progress.",
	"Good effort. Keep practicing.",
	"You're learning. Try again tomorrow.",
}

// ceilPercent returns ceil(total * percent / 100) without float rounding.
func ceilPercent(total, percent int) int {
	return (total*percent + 99) / 100
}
