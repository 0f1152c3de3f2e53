// Package deck owns the bounded, per-lesson collection of saved vocabulary cards.
//
// A Manager holds exactly one active lesson at a time. Every mutation is serialized
// under a single lock, applied in memory and then persisted as a full snapshot.
// Storage failures are logged and swallowed: the in-memory deck stays authoritative
// for the session.
package deck

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/lexideck/internal/domain"
	"github.com/conorfennell/lexideck/internal/events"
	"github.com/conorfennell/lexideck/internal/srs"
	"github.com/conorfennell/lexideck/internal/storage"
	"github.com/conorfennell/lexideck/internal/wordkey"
)

const (
	// MaxCards is the capacity of a deck.
	MaxCards = 10
	// StoragePrefix is prepended to the lesson id to form the snapshot key.
	StoragePrefix = "ovi-deck-"
)

// Manager is the single source of truth for the active lesson's cards.
type Manager struct {
	mu       sync.Mutex
	lessonID string
	cards    []domain.Card

	store     storage.Store
	scheduler *srs.Scheduler
	emitter   events.Emitter
	logger    *slog.Logger
	validate  *validator.Validate
	prefix    string
	capacity  int

	subs subscribers
}

// Option configures a Manager.
type Option func(*Manager)

// WithScheduler sets the review scheduler (and therefore the clock).
func WithScheduler(s *srs.Scheduler) Option {
	return func(m *Manager) { m.scheduler = s }
}

// WithEmitter sets where deck events are published.
func WithEmitter(e events.Emitter) Option {
	return func(m *Manager) { m.emitter = e }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithPrefix overrides the snapshot key prefix.
func WithPrefix(prefix string) Option {
	return func(m *Manager) { m.prefix = prefix }
}

// NewManager creates a Manager with an empty deck and no active lesson.
func NewManager(store storage.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		prefix:   StoragePrefix,
		capacity: MaxCards,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.scheduler == nil {
		m.scheduler = srs.NewScheduler(nil, nil)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "deck")
	return m
}

// Load makes lessonID the active lesson and replaces the deck with its persisted snapshot.
// Missing, unreadable or corrupt snapshots yield an empty deck.
func (m *Manager) Load(ctx context.Context, lessonID string) {
	m.mu.Lock()
	m.lessonID = lessonID
	m.cards = m.read(ctx, lessonID)
	change := m.changeLocked(Loaded, "")
	m.mu.Unlock()

	m.logger.Debug("deck loaded", "lesson_id", lessonID, "count", len(change.Cards))
	m.publish(ctx, change, events.DeckLoaded, events.DeckPayload{LessonID: lessonID, Count: len(change.Cards)})
}

// Add appends card to the deck. It returns false without mutating anything when the card is
// invalid, the deck is full, or a card with the same normalized word already exists.
func (m *Manager) Add(ctx context.Context, card domain.Card) bool {
	if wordkey.Normalize(card.Word) == "" {
		return false
	}
	if err := m.validate.Struct(card); err != nil {
		m.logger.Debug("card rejected", "word", card.Word, "error", err)
		return false
	}

	m.mu.Lock()
	if len(m.cards) >= m.capacity || m.indexLocked(card.Word) >= 0 {
		m.mu.Unlock()
		return false
	}
	m.cards = append(m.cards, card)
	m.persistLocked(ctx)
	change := m.changeLocked(Added, card.Word)
	m.mu.Unlock()

	m.publish(ctx, change, events.CardAdded, events.DeckPayload{LessonID: change.LessonID, Word: card.Word, Count: len(change.Cards)})
	return true
}

// Remove deletes the first card whose normalized word matches. Absent words are a no-op.
func (m *Manager) Remove(ctx context.Context, word string) {
	m.mu.Lock()
	idx := m.indexLocked(word)
	if idx >= 0 {
		m.cards = append(m.cards[:idx:idx], m.cards[idx+1:]...)
	}
	m.persistLocked(ctx)
	change := m.changeLocked(Removed, word)
	m.mu.Unlock()

	if idx < 0 {
		return
	}
	m.publish(ctx, change, events.CardRemoved, events.DeckPayload{LessonID: change.LessonID, Word: word, Count: len(change.Cards)})
}

// Grade reschedules the card for word. It returns false when the word is not in the deck
// or the grade is unknown. The card keeps its position and all non-scheduling fields.
func (m *Manager) Grade(ctx context.Context, word string, grade domain.Grade) bool {
	if !grade.Valid() {
		return false
	}

	m.mu.Lock()
	idx := m.indexLocked(word)
	if idx < 0 {
		m.mu.Unlock()
		m.logger.Debug("grade ignored, card not found", "word", word)
		return false
	}
	updated, err := m.scheduler.Review(m.cards[idx], grade)
	if err != nil {
		m.mu.Unlock()
		return false
	}
	m.cards[idx] = updated
	m.persistLocked(ctx)
	change := m.changeLocked(Graded, updated.Word)
	m.mu.Unlock()

	m.publish(ctx, change, events.ReviewGraded, events.ReviewPayload{
		LessonID:      change.LessonID,
		CardID:        wordkey.Hash(change.LessonID, updated.Word),
		Word:          updated.Word,
		Grade:         string(grade),
		IntervalHours: *updated.IntervalHours,
		ReviewedAt:    *updated.LastReviewAt,
		NextReviewAt:  *updated.NextReviewAt,
	})
	return true
}

// Attach fills the empty display fields of a card with dictionary data.
// Scheduling fields are never touched. It returns false when the word is not in the deck.
func (m *Manager) Attach(ctx context.Context, word string, e domain.Enrichment) bool {
	m.mu.Lock()
	idx := m.indexLocked(word)
	if idx < 0 {
		m.mu.Unlock()
		return false
	}
	c := &m.cards[idx]
	fill(&c.Definition, e.Definition)
	fill(&c.Example, e.Example)
	fill(&c.Phonetic, e.Phonetic)
	fill(&c.PartOfSpeech, e.PartOfSpeech)
	m.persistLocked(ctx)
	change := m.changeLocked(Enriched, c.Word)
	m.mu.Unlock()

	m.publish(ctx, change, events.CardEnriched, events.DeckPayload{LessonID: change.LessonID, Word: word, Count: len(change.Cards)})
	return true
}

// IsInDeck reports whether a card with the same normalized word exists.
func (m *Manager) IsInDeck(word string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexLocked(word) >= 0
}

// DueCards returns the due cards in deck order, recomputed on every call.
func (m *Manager) DueCards() []domain.Card {
	return m.scheduler.DueCards(m.Cards())
}

// Cards returns a snapshot of the deck in order.
func (m *Manager) Cards() []domain.Card {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Card(nil), m.cards...)
}

// Len returns the number of cards in the deck.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cards)
}

// LessonID returns the active lesson, or "" before the first Load.
func (m *Manager) LessonID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lessonID
}

// Capacity returns the maximum number of cards.
func (m *Manager) Capacity() int {
	return m.capacity
}

func (m *Manager) indexLocked(word string) int {
	key := wordkey.Normalize(word)
	if key == "" {
		return -1
	}
	for i, c := range m.cards {
		if wordkey.Normalize(c.Word) == key {
			return i
		}
	}
	return -1
}

func (m *Manager) key(lessonID string) string {
	return m.prefix + lessonID
}

func (m *Manager) read(ctx context.Context, lessonID string) []domain.Card {
	payload, ok, err := m.store.Get(ctx, m.key(lessonID))
	if err != nil {
		m.logger.Warn("failed to read deck, starting empty", "lesson_id", lessonID, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var cards []domain.Card
	if err := json.Unmarshal(payload, &cards); err != nil {
		m.logger.Warn("corrupt deck snapshot, starting empty", "lesson_id", lessonID, "error", err)
		return nil
	}
	return m.sanitize(lessonID, cards)
}

// sanitize drops cards with empty or duplicate words and caps the deck at capacity,
// keeping the first occurrence of each word in snapshot order.
func (m *Manager) sanitize(lessonID string, cards []domain.Card) []domain.Card {
	seen := make(map[string]bool, len(cards))
	kept := cards[:0]
	for _, c := range cards {
		key := wordkey.Normalize(c.Word)
		if key == "" || seen[key] || len(kept) >= m.capacity {
			continue
		}
		seen[key] = true
		kept = append(kept, c)
	}
	if dropped := len(cards) - len(kept); dropped > 0 {
		m.logger.Warn("dropped invalid cards from deck snapshot", "lesson_id", lessonID, "dropped", dropped)
	}
	return kept
}

// persistLocked overwrites the snapshot of the active lesson. Failures are swallowed.
func (m *Manager) persistLocked(ctx context.Context) {
	if m.lessonID == "" {
		return
	}
	cards := m.cards
	if cards == nil {
		cards = []domain.Card{}
	}
	payload, err := json.Marshal(cards)
	if err != nil {
		m.logger.Error("failed to encode deck", "lesson_id", m.lessonID, "error", err)
		return
	}
	if err := m.store.Put(ctx, m.key(m.lessonID), payload); err != nil {
		m.logger.Warn("failed to persist deck", "lesson_id", m.lessonID, "error", err)
	}
}

func (m *Manager) changeLocked(kind ChangeKind, word string) Change {
	return Change{
		Kind:     kind,
		LessonID: m.lessonID,
		Word:     word,
		Cards:    append([]domain.Card(nil), m.cards...),
	}
}

// publish notifies subscribers and the event emitter outside the deck lock,
// so observers may read the deck again.
func (m *Manager) publish(ctx context.Context, change Change, eventType string, payload any) {
	m.subs.notify(change)
	events.Publish(ctx, m.emitter, m.logger, eventType, payload)
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
