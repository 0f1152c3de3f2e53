package quiz

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/lexideck/internal/domain"
	"github.com/conorfennell/lexideck/internal/events"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRecordedSession(kind Kind) (*Session, *events.Recorder) {
	recorder := &events.Recorder{}
	emitter := events.NewInMemoryEmitter(discardLogger())
	emitter.Register(recorder)
	return NewSession(kind, emitter, discardLogger()), recorder
}

func choiceItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{
			Kind:        Choice,
			Prompt:      "prompt",
			Answer:      "right",
			Options:     []string{"right", "wrong", "other", "another"},
			Explanation: "the correct one",
		}
	}
	return items
}

func TestSessionStartRequiresItems(t *testing.T) {
	s, recorder := newRecordedSession(Vocabulary)
	assert.ErrorIs(t, s.Start(context.Background(), nil), ErrNoQuestions)
	assert.Equal(t, Idle, s.State())
	assert.Empty(t, recorder.Types())
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s, recorder := newRecordedSession(Vocabulary)
	require.NoError(t, s.Start(ctx, choiceItems(5)))
	assert.Equal(t, InProgress, s.State())

	// Next before answering is ignored.
	assert.False(t, s.Next(ctx))

	fb, ok := s.Select("right")
	require.True(t, ok)
	assert.True(t, fb.Correct)
	assert.Equal(t, "Correct. right. Meaning: the correct one", fb.Text)
	assert.Equal(t, Answered, s.State())

	// Once answered, the item is locked.
	_, ok = s.Select("wrong")
	assert.False(t, ok)
	assert.Equal(t, 1, s.View().Score)

	require.True(t, s.Next(ctx))

	fb, ok = s.Select("wrong")
	require.True(t, ok)
	assert.False(t, fb.Correct)
	assert.Equal(t, "Incorrect. Correct answer: right. Meaning: the correct one", fb.Text)
	require.True(t, s.Next(ctx))

	for i := 0; i < 3; i++ {
		_, ok = s.Select("RIGHT")
		require.True(t, ok)
		require.True(t, s.Next(ctx))
	}

	view := s.View()
	assert.Equal(t, Finished, view.State)
	assert.Nil(t, view.Item)
	require.NotNil(t, view.Result)
	assert.Equal(t, Result{
		Score:   4,
		Total:   5,
		Percent: 80,
		Message: "Very strong result. Keep these words in review.",
	}, *view.Result)

	assert.False(t, s.Next(ctx))
	assert.Equal(t, []string{events.QuizStarted, events.QuizCompleted}, recorder.Types())

	var payload events.QuizPayload
	require.NoError(t, recorder.Events()[1].UnmarshalPayload(&payload))
	assert.Equal(t, events.QuizPayload{Kind: "vocabulary", Score: 4, Total: 5}, payload)
}

func TestSessionFillBlankRetry(t *testing.T) {
	ctx := context.Background()
	s, _ := newRecordedSession(Exercises)
	items := []Item{
		{Kind: FillBlank, Prompt: "A ___ of bread.", Answer: "loaf", Options: []string{"loaf", "cup", "pair", "set"}},
		{Kind: FillBlank, Prompt: "A ___ of shoes.", Answer: "pair", Options: []string{"loaf", "cup", "pair", "set"}},
	}
	require.NoError(t, s.Start(ctx, items))

	fb, ok := s.Select("cup")
	require.True(t, ok)
	assert.True(t, fb.Retry)
	assert.Equal(t, InProgress, s.State())

	fb, ok = s.Select("loaf")
	require.True(t, ok)
	assert.True(t, fb.Correct)
	assert.Equal(t, "Correct.", fb.Text)
	assert.Equal(t, 0, s.View().Score, "a retried answer scores nothing")

	require.True(t, s.Next(ctx))
	_, _ = s.Select("pair")
	assert.Equal(t, 1, s.View().Score)
	require.True(t, s.Next(ctx))

	view := s.View()
	require.NotNil(t, view.Result)
	assert.Equal(t, 50, view.Result.Percent)
	assert.Equal(t, "You're learning. Try again tomorrow.", view.Result.Message)
}

func TestSessionExerciseChoiceFeedback(t *testing.T) {
	s, _ := newRecordedSession(Exercises)
	require.NoError(t, s.Start(context.Background(), choiceItems(1)))

	fb, ok := s.Select("wrong")
	require.True(t, ok)
	assert.Equal(t, "Incorrect. The answer is: right", fb.Text)
}

func TestSessionIgnoresUnknownOptions(t *testing.T) {
	s, _ := newRecordedSession(Vocabulary)
	require.NoError(t, s.Start(context.Background(), choiceItems(1)))

	_, ok := s.Select("not-an-answer")
	assert.False(t, ok)
	assert.Equal(t, InProgress, s.State(), "the item stays open")
	assert.Nil(t, s.View().Feedback)

	fb, ok := s.Select(" Right ")
	require.True(t, ok)
	assert.True(t, fb.Correct)
	assert.Equal(t, 1, s.View().Score)
}

func TestSessionAbortAndRestart(t *testing.T) {
	ctx := context.Background()
	s, _ := newRecordedSession(Vocabulary)
	require.NoError(t, s.Start(ctx, choiceItems(3)))
	s.Select("right")
	s.Abort()

	assert.Equal(t, Idle, s.State())
	assert.False(t, s.Active())
	_, ok := s.Select("right")
	assert.False(t, ok)

	require.NoError(t, s.Start(ctx, choiceItems(2)))
	view := s.View()
	assert.Equal(t, 0, view.Score)
	assert.Equal(t, 2, view.Total)
	assert.Equal(t, 0, view.Index)
}

func TestSessionViewIsACopy(t *testing.T) {
	s, _ := newRecordedSession(Vocabulary)
	require.NoError(t, s.Start(context.Background(), choiceItems(1)))

	view := s.View()
	view.Item.Options[0] = "tampered"
	assert.Equal(t, "right", s.View().Item.Options[0])
}

func TestScoreMessage(t *testing.T) {
	tests := []struct {
		kind         Kind
		score, total int
		expected     string
	}{
		{Vocabulary, 5, 5, "Excellent. You understood all your selected words."},
		{Vocabulary, 4, 5, "Very strong result. Keep these words in review."},
		{Vocabulary, 3, 5, "Good progress. Review the missed words once more."},
		{Vocabulary, 2, 5, "You are still learning these words. Use flashcards and try again."},
		{Vocabulary, 2, 3, "Good progress. Review the missed words once more."},
		{Exercises, 3, 3, "Perfect. You're a superstar."},
		{Exercises, 4, 5, "Excellent work. You're making great progress."},
		{Exercises, 3, 5, "Good effort. Keep practicing."},
		{Exercises, 0, 5, "You're learning. Try again tomorrow."},
	}
	for _, tc := range tests {
		actual := ScoreMessage(tc.kind, tc.score, tc.total)
		if actual != tc.expected {
			t.Errorf("ScoreMessage(%s, %d, %d): Expected %q but got %q", tc.kind, tc.score, tc.total, tc.expected, actual)
		}
	}
}

func TestSessionExercisesFromBuilder(t *testing.T) {
	ctx := context.Background()
	s, _ := newRecordedSession(Exercises)
	items := seeded(9).BuildExercises([]domain.Exercise{
		{Question: "Where?", Answer: "Lisbon"},
		{Question: "When?", Answer: "Tuesday"},
	})
	require.NoError(t, s.Start(ctx, items))

	for range items {
		_, ok := s.Select(s.View().Item.Answer)
		require.True(t, ok)
		require.True(t, s.Next(ctx))
	}
	assert.Equal(t, "Perfect. You're a superstar.", s.View().Result.Message)
}
