// Package dictionary looks up learner-friendly definitions from the Free Dictionary API.
package dictionary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	"golang.org/x/sync/singleflight"

	"github.com/conorfennell/lexideck/internal/domain"
	"github.com/conorfennell/lexideck/internal/wordkey"
)

const (
	// DefaultBaseURL is the public Free Dictionary API endpoint.
	DefaultBaseURL = "https://api.dictionaryapi.dev/api/v2/entries/en/"
	// DefaultTimeout bounds a single lookup.
	DefaultTimeout = 6 * time.Second
	// DefaultCacheSize is the number of words kept in the lookup cache.
	DefaultCacheSize = 512
)

// Entry is a simplified dictionary result for one word.
type Entry struct {
	Word string `json:"word"`
	domain.Enrichment
}

type apiEntry struct {
	Word      string `json:"word"`
	Phonetic  string `json:"phonetic"`
	Phonetics []struct {
		Text string `json:"text"`
	} `json:"phonetics"`
	Meanings []struct {
		PartOfSpeech string `json:"partOfSpeech"`
		Definitions  []struct {
			Definition string `json:"definition"`
			Example    string `json:"example"`
		} `json:"definitions"`
	} `json:"meanings"`
}

// Client performs cached lookups. Failed lookups are cached as misses.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	mu    sync.Mutex
	cache *lru.Cache
	group singleflight.Group
}

// Config configures a Client. Zero values fall back to the defaults.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	CacheSize int
}

// NewClient creates a dictionary client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger.With("component", "dictionary"),
		cache:   lru.New(cfg.CacheSize),
	}
}

// Lookup returns the entry for word, or false on any failure. Words shorter than two
// characters are never looked up.
func (c *Client) Lookup(ctx context.Context, word string) (*Entry, bool) {
	key := wordkey.Normalize(word)
	if len([]rune(key)) < 2 {
		return nil, false
	}

	if entry, ok := c.cached(key); ok {
		return entry, entry != nil
	}
	if ctx.Err() != nil {
		return nil, false
	}

	// The shared fetch outlives any single caller; the HTTP client timeout bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		entry, err := c.fetch(fetchCtx, key)
		if err != nil {
			c.logger.Debug("dictionary lookup failed", "word", key, "error", err)
		}
		c.store(key, entry)
		return entry, nil
	})

	select {
	case res := <-ch:
		entry, _ := res.Val.(*Entry)
		return entry, entry != nil
	case <-ctx.Done():
		return nil, false
	}
}

func (c *Client) cached(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*Entry), true
}

func (c *Client) store(key string, entry *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(key, entry)
}

func (c *Client) fetch(ctx context.Context, key string) (*Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+url.PathEscape(key), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var entries []apiEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no entries for %q", key)
	}
	return toEntry(key, entries[0]), nil
}

func toEntry(key string, e apiEntry) *Entry {
	phonetic := e.Phonetic
	if phonetic == "" {
		for _, p := range e.Phonetics {
			if p.Text != "" {
				phonetic = p.Text
				break
			}
		}
	}

	best := pickBest(e)
	definition := Simplify(best.definition)
	if definition == "" {
		definition = best.definition
	}

	word := e.Word
	if word == "" {
		word = key
	}
	return &Entry{
		Word: word,
		Enrichment: domain.Enrichment{
			Definition:    definition,
			RawDefinition: best.definition,
			Phonetic:      phonetic,
			PartOfSpeech:  best.partOfSpeech,
			Example:       best.example,
		},
	}
}
