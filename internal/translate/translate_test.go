package translate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/lexideck/internal/storage"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL}, slog.New(slog.NewTextHandler(io.Discard, nil))), &calls
}

func TestTranslate(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "en|ja", r.URL.Query().Get("langpair"))
		assert.Equal(t, "good morning", r.URL.Query().Get("q"))
		fmt.Fprint(w, `{"responseData":{"translatedText":"  おはよう  "}}`)
	})

	assert.Equal(t, "おはよう", client.Translate(context.Background(), " good   morning ", "JA"))
	assert.Equal(t, "おはよう", client.Translate(context.Background(), "Good morning", "ja"))
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestTranslateUnsupported(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	assert.Empty(t, client.Translate(context.Background(), "hello", "en"))
	assert.Empty(t, client.Translate(context.Background(), "hello", "fr"))
	assert.Empty(t, client.Translate(context.Background(), "   ", "es"))
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestTranslateFailuresAreEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, "nope") }},
		{"echoed input", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"responseData":{"translatedText":"HELLO"}}`)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, calls := newTestClient(t, tc.handler)
			assert.Empty(t, client.Translate(context.Background(), "hello", "es"))
			assert.Empty(t, client.Translate(context.Background(), "hello", "es"))
			assert.Equal(t, int32(1), atomic.LoadInt32(calls), "failures are cached")
		})
	}
}

func TestTranslateTruncatesQuery(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, MaxQueryRunes, utf8.RuneCountInString(r.URL.Query().Get("q")))
		fmt.Fprint(w, `{"responseData":{"translatedText":"texto"}}`)
	})
	assert.Equal(t, "texto", client.Translate(context.Background(), strings.Repeat("é", 400), "es"))
}

func TestPreference(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	pref := NewPreference(store)

	assert.Equal(t, "en", pref.Get(ctx))

	lang, err := pref.Set(ctx, " ES ")
	require.NoError(t, err)
	assert.Equal(t, "es", lang)
	assert.Equal(t, "es", pref.Get(ctx))

	lang, err = pref.Set(ctx, "klingon")
	require.NoError(t, err)
	assert.Equal(t, "en", lang)

	require.NoError(t, store.Put(ctx, PreferenceKey, []byte("fr")))
	assert.Equal(t, "en", pref.Get(ctx))
}

func TestNormalizeLanguage(t *testing.T) {
	tests := map[string]string{"ja": "ja", " Es": "es", "EN": "en", "": "en", "de": "en"}
	for input, expected := range tests {
		if actual := NormalizeLanguage(input); actual != expected {
			t.Errorf("Expected NormalizeLanguage(%q) to be %q but got %q", input, expected, actual)
		}
	}
}
