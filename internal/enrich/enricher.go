// Package enrich attaches dictionary data to saved cards in the background.
package enrich

import (
	"context"
	"log/slog"
	"sync"

	"github.com/conorfennell/lexideck/internal/dictionary"
	"github.com/conorfennell/lexideck/internal/domain"
)

// Lookuper resolves a word to a dictionary entry.
type Lookuper interface {
	Lookup(ctx context.Context, word string) (*dictionary.Entry, bool)
}

// Attacher receives enrichment for a saved card.
type Attacher interface {
	Attach(ctx context.Context, word string, e domain.Enrichment) bool
}

// Enricher runs lookups asynchronously. Dismiss abandons every in-flight lookup so that
// results for a closed view are never written.
type Enricher struct {
	lookup Lookuper
	deck   Attacher
	logger *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an Enricher.
func New(lookup Lookuper, deck Attacher, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Enricher{lookup: lookup, deck: deck, logger: logger.With("component", "enrich")}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	return e
}

// Request starts a lookup for word. The result is attached to the card when it arrives,
// unless ctx or the Enricher was cancelled first.
func (e *Enricher) Request(ctx context.Context, word string) {
	e.mu.Lock()
	scope := e.ctx
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()

		lookupCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(scope, cancel)
		defer stop()

		entry, ok := e.lookup.Lookup(lookupCtx, word)
		if !ok || lookupCtx.Err() != nil || scope.Err() != nil {
			return
		}
		if e.deck.Attach(lookupCtx, word, entry.Enrichment) {
			e.logger.Debug("card enriched", "word", word)
		}
	}()
}

// Dismiss cancels every in-flight lookup. Later requests start a fresh scope.
func (e *Enricher) Dismiss() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancel()
	e.ctx, e.cancel = context.WithCancel(context.Background())
}

// Wait blocks until all started lookups have returned.
func (e *Enricher) Wait() {
	e.wg.Wait()
}
