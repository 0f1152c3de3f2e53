package deck

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/lexideck/internal/domain"
	"github.com/conorfennell/lexideck/internal/events"
	"github.com/conorfennell/lexideck/internal/srs"
	"github.com/conorfennell/lexideck/internal/storage"
	"github.com/conorfennell/lexideck/internal/wordkey"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store    *storage.Memory
	clock    *clock
	recorder *events.Recorder
	manager  *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    storage.NewMemory(),
		clock:    &clock{now: t0},
		recorder: &events.Recorder{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	emitter := events.NewInMemoryEmitter(logger)
	emitter.Register(f.recorder)
	f.manager = NewManager(f.store,
		WithScheduler(srs.NewScheduler(nil, f.clock.Now)),
		WithEmitter(emitter),
		WithLogger(logger),
	)
	f.manager.Load(context.Background(), "ep-1")
	return f
}

func words(cards []domain.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Word
	}
	return out
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("missing snapshot is an empty deck", func(t *testing.T) {
		f := newFixture(t)
		assert.Equal(t, 0, f.manager.Len())
		assert.Equal(t, "ep-1", f.manager.LessonID())
	})

	t.Run("corrupt snapshot is an empty deck", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.Put(ctx, "ovi-deck-ep-2", []byte("{not json")))
		f.manager.Load(ctx, "ep-2")
		assert.Equal(t, 0, f.manager.Len())
	})

	t.Run("invalid cards in a snapshot are dropped", func(t *testing.T) {
		f := newFixture(t)
		var b strings.Builder
		b.WriteString(`[{"word":"journey"},{"word":" JOURNEY "},{"word":"  "}`)
		for i := 0; i < MaxCards+3; i++ {
			fmt.Fprintf(&b, `,{"word":"word-%d"}`, i)
		}
		b.WriteString("]")
		require.NoError(t, f.store.Put(ctx, "ovi-deck-ep-3", []byte(b.String())))

		f.manager.Load(ctx, "ep-3")
		cards := f.manager.Cards()
		require.Len(t, cards, MaxCards)
		assert.Equal(t, "journey", cards[0].Word)
		assert.Equal(t, "word-0", cards[1].Word)
		assert.Equal(t, fmt.Sprintf("word-%d", MaxCards-2), cards[MaxCards-1].Word)
		assert.False(t, f.manager.Add(ctx, domain.Card{Word: "harbor"}), "a loaded deck is already full")
	})

	t.Run("unreadable storage is an empty deck", func(t *testing.T) {
		f := newFixture(t)
		require.True(t, f.manager.Add(ctx, domain.Card{Word: "journey"}))
		f.store.FailReads = true
		f.manager.Load(ctx, "ep-1")
		assert.Equal(t, 0, f.manager.Len())
	})

	t.Run("switching lessons replaces the deck", func(t *testing.T) {
		f := newFixture(t)
		require.True(t, f.manager.Add(ctx, domain.Card{Word: "journey"}))
		f.manager.Load(ctx, "ep-2")
		assert.Equal(t, 0, f.manager.Len())
		require.True(t, f.manager.Add(ctx, domain.Card{Word: "harbor"}))

		f.manager.Load(ctx, "ep-1")
		assert.Equal(t, []string{"journey"}, words(f.manager.Cards()))
	})
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.True(t, f.manager.Add(ctx, domain.Card{
		Word:         "journey",
		Sentence:     "The journey took three days.",
		Definition:   "A trip from one place to another",
		Example:      "We planned a long journey.",
		Phonetic:     "/ˈdʒɜː.ni/",
		PartOfSpeech: "noun",
	}))
	require.True(t, f.manager.Add(ctx, domain.Card{Word: "harbor"}))
	require.True(t, f.manager.Grade(ctx, "journey", domain.Good))
	saved := f.manager.Cards()

	reloaded := NewManager(f.store, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	reloaded.Load(ctx, "ep-1")
	got := reloaded.Cards()

	require.Len(t, got, len(saved))
	for i := range saved {
		assert.Equal(t, saved[i].Word, got[i].Word)
		assert.Equal(t, saved[i].Sentence, got[i].Sentence)
		assert.Equal(t, saved[i].Definition, got[i].Definition)
		assert.Equal(t, saved[i].Example, got[i].Example)
		assert.Equal(t, saved[i].Phonetic, got[i].Phonetic)
		assert.Equal(t, saved[i].PartOfSpeech, got[i].PartOfSpeech)
		assert.Equal(t, saved[i].IntervalHours, got[i].IntervalHours)
		if saved[i].NextReviewAt == nil {
			assert.Nil(t, got[i].NextReviewAt)
			assert.Nil(t, got[i].LastReviewAt)
			continue
		}
		assert.True(t, saved[i].NextReviewAt.Equal(*got[i].NextReviewAt))
		assert.True(t, saved[i].LastReviewAt.Equal(*got[i].LastReviewAt))
	}
}

func TestAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects case-insensitive duplicates", func(t *testing.T) {
		f := newFixture(t)
		require.True(t, f.manager.Add(ctx, domain.Card{Word: "Journey"}))
		assert.False(t, f.manager.Add(ctx, domain.Card{Word: " journey "}))
		assert.Equal(t, 1, f.manager.Len())
	})

	t.Run("rejects empty and oversized words", func(t *testing.T) {
		f := newFixture(t)
		assert.False(t, f.manager.Add(ctx, domain.Card{Word: "   "}))
		assert.False(t, f.manager.Add(ctx, domain.Card{Word: strings.Repeat("a", 65)}))
		assert.Equal(t, 0, f.manager.Len())
	})

	t.Run("eleventh card fails and leaves the deck unchanged", func(t *testing.T) {
		f := newFixture(t)
		var expected []string
		for i := 0; i < MaxCards; i++ {
			w := fmt.Sprintf("word%d", i)
			expected = append(expected, w)
			require.True(t, f.manager.Add(ctx, domain.Card{Word: w}))
		}

		assert.False(t, f.manager.Add(ctx, domain.Card{Word: "overflow"}))
		assert.Equal(t, expected, words(f.manager.Cards()))

		reloaded := NewManager(f.store)
		reloaded.Load(ctx, "ep-1")
		assert.Equal(t, expected, words(reloaded.Cards()))
	})

	t.Run("persists and emits", func(t *testing.T) {
		f := newFixture(t)
		require.True(t, f.manager.Add(ctx, domain.Card{Word: "harbor"}))

		payload, ok, err := f.store.Get(ctx, "ovi-deck-ep-1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, `[{"word":"harbor"}]`, string(payload))
		assert.Equal(t, []string{events.DeckLoaded, events.CardAdded}, f.recorder.Types())
	})

	t.Run("works in memory before any lesson is loaded", func(t *testing.T) {
		m := NewManager(storage.NewMemory())
		assert.True(t, m.Add(ctx, domain.Card{Word: "lantern"}))
		assert.True(t, m.IsInDeck("LANTERN"))
	})
}

func TestDeckInvariantsUnderRandomOps(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pool := []string{"a", "B", "c", "D", "e", "f", "g", "H", "i", "j", "k", "L", "A", "b", " c "}

	for i := 0; i < 200; i++ {
		w := pool[(i*7)%len(pool)]
		if i%3 == 0 {
			f.manager.Remove(ctx, pool[(i*5)%len(pool)])
		} else {
			f.manager.Add(ctx, domain.Card{Word: w})
		}

		cards := f.manager.Cards()
		require.LessOrEqual(t, len(cards), MaxCards)
		seen := map[string]bool{}
		for _, c := range cards {
			key := wordkey.Normalize(c.Word)
			require.False(t, seen[key], "duplicate word %q", c.Word)
			seen[key] = true
		}
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, w := range []string{"journey", "harbor", "lantern"} {
		require.True(t, f.manager.Add(ctx, domain.Card{Word: w}))
	}

	f.manager.Remove(ctx, "HARBOR")
	assert.Equal(t, []string{"journey", "lantern"}, words(f.manager.Cards()))

	f.manager.Remove(ctx, "missing")
	assert.Equal(t, []string{"journey", "lantern"}, words(f.manager.Cards()))
	assert.Equal(t, []string{events.DeckLoaded, events.CardAdded, events.CardAdded, events.CardAdded, events.CardRemoved}, f.recorder.Types())

	reloaded := NewManager(f.store)
	reloaded.Load(ctx, "ep-1")
	assert.Equal(t, []string{"journey", "lantern"}, words(reloaded.Cards()))
}

func TestGrade(t *testing.T) {
	ctx := context.Background()

	t.Run("journey graded again from 20 hours", func(t *testing.T) {
		f := newFixture(t)
		interval := 20.0
		require.True(t, f.manager.Add(ctx, domain.Card{Word: "harbor"}))
		require.True(t, f.manager.Add(ctx, domain.Card{Word: "journey", Sentence: "A journey home.", IntervalHours: &interval}))
		require.True(t, f.manager.Add(ctx, domain.Card{Word: "lantern"}))

		require.True(t, f.manager.Grade(ctx, "journey", domain.Again))

		cards := f.manager.Cards()
		assert.Equal(t, []string{"harbor", "journey", "lantern"}, words(cards))
		graded := cards[1]
		require.NotNil(t, graded.IntervalHours)
		assert.Equal(t, 7.0, *graded.IntervalHours)
		assert.True(t, graded.LastReviewAt.Equal(t0))
		assert.True(t, graded.NextReviewAt.Equal(t0.Add(7*time.Hour)))
		assert.Equal(t, "A journey home.", graded.Sentence)
		assert.Equal(t, 20.0, interval, "caller's interval must not be aliased")
	})

	t.Run("graded card is no longer due until time passes", func(t *testing.T) {
		f := newFixture(t)
		require.True(t, f.manager.Add(ctx, domain.Card{Word: "journey"}))
		require.True(t, f.manager.Add(ctx, domain.Card{Word: "harbor"}))
		assert.Equal(t, []string{"journey", "harbor"}, words(f.manager.DueCards()))

		require.True(t, f.manager.Grade(ctx, "journey", domain.Easy))
		assert.Equal(t, []string{"harbor"}, words(f.manager.DueCards()))
		assert.Equal(t, words(f.manager.DueCards()), words(f.manager.DueCards()))

		f.clock.Advance(14 * time.Hour)
		assert.Equal(t, []string{"journey", "harbor"}, words(f.manager.DueCards()))
	})

	t.Run("unknown word and invalid grade are no-ops", func(t *testing.T) {
		f := newFixture(t)
		require.True(t, f.manager.Add(ctx, domain.Card{Word: "journey"}))
		assert.False(t, f.manager.Grade(ctx, "missing", domain.Good))
		assert.False(t, f.manager.Grade(ctx, "journey", domain.Grade("great")))
		assert.Nil(t, f.manager.Cards()[0].NextReviewAt)
	})

	t.Run("emits review event", func(t *testing.T) {
		f := newFixture(t)
		require.True(t, f.manager.Add(ctx, domain.Card{Word: "journey"}))
		require.True(t, f.manager.Grade(ctx, "Journey", domain.Good))

		evs := f.recorder.Events()
		last := evs[len(evs)-1]
		require.Equal(t, events.ReviewGraded, last.Type)
		var p events.ReviewPayload
		require.NoError(t, last.UnmarshalPayload(&p))
		assert.Equal(t, "journey", p.Word)
		assert.Equal(t, "good", p.Grade)
		assert.Equal(t, 10.0, p.IntervalHours)
		assert.Equal(t, wordkey.Hash("ep-1", "journey"), p.CardID)
	})

	t.Run("concurrent grading is serialized", func(t *testing.T) {
		f := newFixture(t)
		require.True(t, f.manager.Add(ctx, domain.Card{Word: "journey"}))

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				f.manager.Grade(ctx, "journey", domain.Good)
			}()
			go func(i int) {
				defer wg.Done()
				w := fmt.Sprintf("extra%d", i%5)
				if !f.manager.Add(ctx, domain.Card{Word: w}) {
					f.manager.Remove(ctx, w)
				}
			}(i)
		}
		wg.Wait()

		cards := f.manager.Cards()
		assert.LessOrEqual(t, len(cards), MaxCards)
		assert.Equal(t, "journey", cards[0].Word)
		assert.NotNil(t, cards[0].NextReviewAt)
	})
}

func TestPersistenceFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.MaxBytes = 10

	assert.True(t, f.manager.Add(ctx, domain.Card{Word: "journey", Sentence: "far too long to fit in the quota"}))
	assert.True(t, f.manager.IsInDeck("journey"))

	reloaded := NewManager(f.store)
	reloaded.Load(ctx, "ep-1")
	assert.Equal(t, 0, reloaded.Len())
}

func TestAttach(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.True(t, f.manager.Add(ctx, domain.Card{Word: "journey", Definition: "my own note"}))

	ok := f.manager.Attach(ctx, "JOURNEY", domain.Enrichment{
		Definition:   "A trip",
		Phonetic:     "/ˈdʒɜː.ni/",
		PartOfSpeech: "noun",
		Example:      "A long journey.",
	})
	require.True(t, ok)

	c := f.manager.Cards()[0]
	assert.Equal(t, "my own note", c.Definition)
	assert.Equal(t, "/ˈdʒɜː.ni/", c.Phonetic)
	assert.Equal(t, "noun", c.PartOfSpeech)
	assert.Equal(t, "A long journey.", c.Example)
	assert.Nil(t, c.NextReviewAt)

	assert.False(t, f.manager.Attach(ctx, "missing", domain.Enrichment{Definition: "x"}))
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var kinds []ChangeKind
	var lengths []int
	unsubscribe := f.manager.Subscribe(func(c Change) {
		kinds = append(kinds, c.Kind)
		// Reading the deck from inside a subscriber must not deadlock.
		lengths = append(lengths, f.manager.Len())
	})

	require.True(t, f.manager.Add(ctx, domain.Card{Word: "journey"}))
	require.True(t, f.manager.Grade(ctx, "journey", domain.Hard))
	f.manager.Remove(ctx, "journey")
	f.manager.Remove(ctx, "journey")

	unsubscribe()
	require.True(t, f.manager.Add(ctx, domain.Card{Word: "harbor"}))

	assert.Equal(t, []ChangeKind{Added, Graded, Removed}, kinds)
	assert.Equal(t, []int{1, 1, 0}, lengths)
}
