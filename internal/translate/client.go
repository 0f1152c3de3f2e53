// Package translate translates short helper text from English through the MyMemory API.
package translate

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
)

const (
	// DefaultBaseURL is the public MyMemory endpoint.
	DefaultBaseURL = "https://api.mymemory.translated.net/get"
	// DefaultTimeout bounds a single translation request.
	DefaultTimeout = 6 * time.Second
	// DefaultCacheSize is the number of translations kept in memory.
	DefaultCacheSize = 256
	// SourceLanguage is the language lesson text is written in.
	SourceLanguage = "en"
	// MaxQueryRunes is the longest query sent to the service.
	MaxQueryRunes = 280
)

// Targets lists the languages text can be translated into.
var Targets = []string{"ja", "es"}

// IsTarget reports whether lang is a supported translation target.
func IsTarget(lang string) bool {
	lang = strings.ToLower(strings.TrimSpace(lang))
	for _, t := range Targets {
		if t == lang {
			return true
		}
	}
	return false
}

type apiResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
}

// Config configures a Client. Zero values fall back to the defaults.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	CacheSize int
}

// Client translates text, caching both successes and failures.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	mu    sync.Mutex
	cache *lru.Cache
}

// NewClient creates a translation client.
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
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger.With("component", "translate"),
		cache:   lru.New(cfg.CacheSize),
	}
}

// Translate returns text translated into target, or "" when the target is unsupported,
// the request fails or the service echoes the input back.
func (c *Client) Translate(ctx context.Context, text, target string) string {
	source := normalize(text)
	target = strings.ToLower(strings.TrimSpace(target))
	if source == "" || !IsTarget(target) {
		return ""
	}

	key := target + ":" + strings.ToLower(source)
	c.mu.Lock()
	if v, ok := c.cache.Get(key); ok {
		c.mu.Unlock()
		return v.(string)
	}
	c.mu.Unlock()

	translated, err := c.fetch(ctx, source, target)
	if err != nil {
		c.logger.Debug("translation failed", "target", target, "error", err)
		if ctx.Err() != nil {
			return ""
		}
	}
	if strings.EqualFold(translated, source) {
		translated = ""
	}

	c.mu.Lock()
	c.cache.Add(key, translated)
	c.mu.Unlock()
	return translated
}

func (c *Client) fetch(ctx context.Context, source, target string) (string, error) {
	q := url.Values{}
	q.Set("q", truncate(source, MaxQueryRunes))
	q.Set("langpair", SourceLanguage+"|"+target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return normalize(body.ResponseData.TranslatedText), nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
