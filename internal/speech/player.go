// Package speech plays words and sentences aloud through a pluggable speaker.
package speech

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
)

// Speaker turns text into audio. Speak blocks until playback ends or ctx is cancelled.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Player is fire-and-forget: each Say cancels the previous utterance.
type Player struct {
	speaker Speaker
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPlayer wraps speaker.
func NewPlayer(speaker Speaker, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{speaker: speaker, logger: logger.With("component", "speech")}
}

// Say starts speaking text in the background, stopping whatever was playing.
func (p *Player) Say(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer cancel()
		if err := p.speaker.Speak(ctx, text); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Warn("failed to speak", "error", err)
		}
	}()
}

// Stop cancels the current utterance, if any.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Wait blocks until every started utterance has returned.
func (p *Player) Wait() {
	p.wg.Wait()
}
