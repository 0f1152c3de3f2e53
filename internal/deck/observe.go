package deck

import (
	"sync"

	"github.com/conorfennell/lexideck/internal/domain"
)

// ChangeKind names the mutation that produced a Change.
type ChangeKind string

const (
	Loaded   ChangeKind = "loaded"
	Added    ChangeKind = "added"
	Removed  ChangeKind = "removed"
	Graded   ChangeKind = "graded"
	Enriched ChangeKind = "enriched"
)

// Change is delivered to subscribers after the deck state changes.
type Change struct {
	Kind     ChangeKind
	LessonID string
	Word     string
	Cards    []domain.Card // snapshot after the change
}

// Subscribe registers fn to be called after every change. The returned function unsubscribes.
func (m *Manager) Subscribe(fn func(Change)) (unsubscribe func()) {
	return m.subs.add(fn)
}

type subscribers struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(Change)
}

func (s *subscribers) add(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(Change))
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

func (s *subscribers) notify(c Change) {
	s.mu.Lock()
	fns := make([]func(Change), 0, len(s.fns))
	for id := 0; id < s.next; id++ {
		if fn, ok := s.fns[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
