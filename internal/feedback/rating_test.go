package feedback

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/lexideck/internal/events"
	"github.com/conorfennell/lexideck/internal/storage"
)

var ratedAt = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *storage.Memory, *events.Recorder) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMemory()
	recorder := &events.Recorder{}
	emitter := events.NewInMemoryEmitter(logger)
	emitter.Register(recorder)
	return NewService(store, emitter, logger, func() time.Time { return ratedAt }), store, recorder
}

func complete() map[string]int {
	return map[string]int{"interest": 5, "clarity": 4, "vocabulary": 4, "culture": 3, "recommend": 5}
}

func TestAverage(t *testing.T) {
	tests := []struct {
		responses map[string]int
		expected  float64
	}{
		{complete(), 4.2},
		{map[string]int{"interest": 5, "clarity": 4, "culture": 4}, 4.33},
		{map[string]int{"interest": 9, "clarity": 0, "other": 5}, 0},
		{nil, 0},
	}
	for _, tc := range tests {
		if actual := Average(tc.responses); actual != tc.expected {
			t.Errorf("Expected average %v for %v but got %v", tc.expected, tc.responses, actual)
		}
	}
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	svc, store, recorder := newService(t)

	rating, err := svc.Submit(ctx, "ep-1", complete())
	require.NoError(t, err)
	assert.Equal(t, 4.2, rating.Average)
	assert.Equal(t, 5, rating.Count)
	assert.Equal(t, Version, rating.Version)
	assert.Equal(t, ratedAt.UnixMilli(), rating.RatedAt)

	loaded, ok := svc.Load(ctx, "ep-1")
	require.True(t, ok)
	assert.Equal(t, rating, loaded)

	raw, ok, err := store.Get(ctx, "feedback-ep-1")
	require.NoError(t, err)
	require.True(t, ok)
	var legacy map[string]int64
	require.NoError(t, json.Unmarshal(raw, &legacy))
	assert.Equal(t, int64(5), legacy["interest"])
	assert.Equal(t, ratedAt.UnixMilli(), legacy["timestamp"])

	assert.Equal(t, []string{events.LessonRated}, recorder.Types())
	var payload events.RatingPayload
	require.NoError(t, recorder.Events()[0].UnmarshalPayload(&payload))
	assert.Equal(t, events.RatingPayload{LessonID: "ep-1", Average: 4.2}, payload)
}

func TestSubmitIncomplete(t *testing.T) {
	tests := []struct {
		name      string
		responses map[string]int
	}{
		{"missing question", map[string]int{"interest": 5, "clarity": 4, "vocabulary": 4, "culture": 3}},
		{"out of range", map[string]int{"interest": 6, "clarity": 4, "vocabulary": 4, "culture": 3, "recommend": 5}},
		{"unknown question", map[string]int{"interest": 5, "clarity": 4, "vocabulary": 4, "culture": 3, "mood": 5}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, recorder := newService(t)
			_, err := svc.Submit(context.Background(), "ep-1", tc.responses)
			assert.ErrorIs(t, err, ErrIncompleteRating)

			_, ok, _ := store.Get(context.Background(), RatingPrefix+"ep-1")
			assert.False(t, ok)
			assert.Empty(t, recorder.Types())
		})
	}
}

func TestSubmitStorageFailure(t *testing.T) {
	svc, store, _ := newService(t)
	store.MaxBytes = 1
	_, err := svc.Submit(context.Background(), "ep-1", complete())
	assert.ErrorIs(t, err, storage.ErrQuotaExceeded)
}

func TestLoadIgnoresBadPayloads(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t)

	_, ok := svc.Load(ctx, "missing")
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, RatingPrefix+"corrupt", []byte("{")))
	_, ok = svc.Load(ctx, "corrupt")
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, RatingPrefix+"partial", []byte(`{"responses":{"interest":5}}`)))
	_, ok = svc.Load(ctx, "partial")
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, RatingPrefix+"old", []byte(`{"responses":{"interest":5,"clarity":4,"vocabulary":4,"culture":3,"recommend":5}}`)))
	rating, ok := svc.Load(ctx, "old")
	require.True(t, ok)
	assert.Equal(t, 4.2, rating.Average)
}
