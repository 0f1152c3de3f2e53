package quiz

import (
	"context"

	"github.com/conorfennell/lexideck/internal/deck"
	"github.com/conorfennell/lexideck/internal/domain"
)

// Deck is the part of the deck manager the vocabulary test reads.
type Deck interface {
	Cards() []domain.Card
	Subscribe(fn func(deck.Change)) (unsubscribe func())
}

// VocabTest gates a vocabulary session behind the deck size.
// The gate is re-evaluated on every deck change; an in-progress run is aborted
// as soon as the deck drops below MinCardsForQuiz usable cards.
type VocabTest struct {
	deck        Deck
	builder     *Builder
	session     *Session
	unsubscribe func()
}

// NewVocabTest wires a session to the deck. Call Close to stop observing the deck.
func NewVocabTest(d Deck, builder *Builder, session *Session) *VocabTest {
	v := &VocabTest{deck: d, builder: builder, session: session}
	v.unsubscribe = d.Subscribe(v.onChange)
	return v
}

// Unlocked reports whether the deck holds enough usable cards.
func (v *VocabTest) Unlocked() bool {
	return UsableCount(v.deck.Cards()) >= MinCardsForQuiz
}

// Start builds a fresh run from the current deck.
func (v *VocabTest) Start(ctx context.Context) error {
	cards := v.deck.Cards()
	if UsableCount(cards) < MinCardsForQuiz {
		return ErrQuizLocked
	}
	return v.session.Start(ctx, v.builder.BuildQuestions(cards))
}

// Session returns the underlying session for answering and rendering.
func (v *VocabTest) Session() *Session {
	return v.session
}

// Close stops observing the deck.
func (v *VocabTest) Close() {
	if v.unsubscribe != nil {
		v.unsubscribe()
	}
}

func (v *VocabTest) onChange(c deck.Change) {
	if UsableCount(c.Cards) < MinCardsForQuiz && v.session.Active() {
		v.session.logger.Info("deck dropped below quiz threshold, leaving test", "lesson_id", c.LessonID)
		v.session.Abort()
	}
}
