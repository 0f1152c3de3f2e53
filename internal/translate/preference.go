package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/conorfennell/lexideck/internal/storage"
)

// PreferenceKey is the storage key of the learner's assist language.
const PreferenceKey = "ovi-assist-language"

// Languages lists the accepted assist languages; the source language disables translation.
var Languages = []string{SourceLanguage, "ja", "es"}

// NormalizeLanguage maps unknown values to the source language.
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	for _, l := range Languages {
		if l == lang {
			return l
		}
	}
	return SourceLanguage
}

// Preference persists the learner's assist language.
type Preference struct {
	store storage.Store
}

// NewPreference creates a Preference backed by store.
func NewPreference(store storage.Store) *Preference {
	return &Preference{store: store}
}

// Get returns the saved language, or the source language when none is saved or it is unreadable.
func (p *Preference) Get(ctx context.Context) string {
	raw, ok, err := p.store.Get(ctx, PreferenceKey)
	if err != nil || !ok {
		return SourceLanguage
	}
	return NormalizeLanguage(string(raw))
}

// Set normalizes and saves lang, returning the stored value.
func (p *Preference) Set(ctx context.Context, lang string) (string, error) {
	lang = NormalizeLanguage(lang)
	if err := p.store.Put(ctx, PreferenceKey, []byte(lang)); err != nil {
		return lang, fmt.Errorf("failed to save assist language: %w", err)
	}
	return lang, nil
}
