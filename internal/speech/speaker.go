package speech

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// WriterSpeaker prints text instead of playing it. Used by the CLI and tests.
type WriterSpeaker struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSpeaker creates a speaker that writes each utterance on its own line.
func NewWriterSpeaker(w io.Writer) *WriterSpeaker {
	return &WriterSpeaker{w: w}
}

func (s *WriterSpeaker) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "🔊 %s\n", text)
	return err
}

// CommandSpeaker runs an external text-to-speech program (for example "say" or "espeak")
// with the text as its last argument. Cancelling ctx kills the process.
type CommandSpeaker struct {
	Name string
	Args []string
}

func (s CommandSpeaker) Speak(ctx context.Context, text string) error {
	args := append(append([]string(nil), s.Args...), text)
	if err := exec.CommandContext(ctx, s.Name, args...).Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to run %s: %w", s.Name, err)
	}
	return nil
}
