// Package web exposes the deck, quizzes and lesson tools as a JSON HTTP API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/conorfennell/lexideck/internal/deck"
	"github.com/conorfennell/lexideck/internal/dictionary"
	"github.com/conorfennell/lexideck/internal/domain"
	"github.com/conorfennell/lexideck/internal/feedback"
	"github.com/conorfennell/lexideck/internal/lessons"
	"github.com/conorfennell/lexideck/internal/quiz"
	"github.com/conorfennell/lexideck/internal/translate"
)

// Lookuper resolves dictionary entries.
type Lookuper interface {
	Lookup(ctx context.Context, word string) (*dictionary.Entry, bool)
}

// Translator translates helper text.
type Translator interface {
	Translate(ctx context.Context, text, target string) string
}

// Enricher fetches dictionary data for saved words in the background.
type Enricher interface {
	Request(ctx context.Context, word string)
	Dismiss()
}

// Deps are the collaborators a Server serves.
type Deps struct {
	Deck        *deck.Manager
	Builder     *quiz.Builder
	VocabTest   *quiz.VocabTest
	Exercises   *quiz.Session
	Catalog     *lessons.Catalog
	Ratings     *feedback.Service
	Dictionary  Lookuper
	Translator  Translator
	Enricher    Enricher
	Preferences *translate.Preference
	Logger      *slog.Logger
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	Deps
	router *http.ServeMux
	logger *slog.Logger
}

// NewServer creates and configures a new server.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		Deps:   deps,
		router: http.NewServeMux(),
		logger: logger.With("component", "web"),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("/deck", s.handleDeck())
	s.router.HandleFunc("/deck/lesson", s.handleSwitchLesson())
	s.router.HandleFunc("/deck/cards", s.handleAddCard())
	s.router.HandleFunc("/deck/cards/", s.handleRemoveCard())
	s.router.HandleFunc("/deck/due", s.handleDue())
	s.router.HandleFunc("/deck/grade", s.handleGrade())

	s.router.HandleFunc("/quiz/vocabulary", s.handleQuizView(quiz.Vocabulary))
	s.router.HandleFunc("/quiz/vocabulary/start", s.handleQuizStart(quiz.Vocabulary))
	s.router.HandleFunc("/quiz/vocabulary/answer", s.handleQuizAnswer(quiz.Vocabulary))
	s.router.HandleFunc("/quiz/vocabulary/next", s.handleQuizNext(quiz.Vocabulary))
	s.router.HandleFunc("/quiz/exercises", s.handleQuizView(quiz.Exercises))
	s.router.HandleFunc("/quiz/exercises/start", s.handleQuizStart(quiz.Exercises))
	s.router.HandleFunc("/quiz/exercises/answer", s.handleQuizAnswer(quiz.Exercises))
	s.router.HandleFunc("/quiz/exercises/next", s.handleQuizNext(quiz.Exercises))

	s.router.HandleFunc("/lessons", s.handleLessons())
	s.router.HandleFunc("/rating", s.handleRating())
	s.router.HandleFunc("/lookup", s.handleLookup())
	s.router.HandleFunc("/translate", s.handleTranslate())
	s.router.HandleFunc("/preferences/language", s.handleLanguage())
}

type deckView struct {
	LessonID     string        `json:"lessonId"`
	Cards        []domain.Card `json:"cards"`
	Capacity     int           `json:"capacity"`
	DueCount     int           `json:"dueCount"`
	QuizUnlocked bool          `json:"quizUnlocked"`
}

func (s *Server) currentDeck() deckView {
	cards := s.Deck.Cards()
	return deckView{
		LessonID:     s.Deck.LessonID(),
		Cards:        nonNil(cards),
		Capacity:     s.Deck.Capacity(),
		DueCount:     len(s.Deck.DueCards()),
		QuizUnlocked: quiz.UsableCount(cards) >= quiz.MinCardsForQuiz,
	}
}

// handleDeck returns the active deck.
func (s *Server) handleDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, http.StatusOK, s.currentDeck())
	}
}

// handleSwitchLesson replaces the deck with another lesson's and abandons pending lookups.
func (s *Server) handleSwitchLesson() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		var req struct {
			LessonID string `json:"lessonId"`
		}
		if !decode(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.LessonID) == "" {
			writeError(w, http.StatusBadRequest, "lessonId is required")
			return
		}
		if s.Enricher != nil {
			s.Enricher.Dismiss()
		}
		if s.Exercises != nil {
			s.Exercises.Abort()
		}
		s.Deck.Load(r.Context(), strings.TrimSpace(req.LessonID))
		writeJSON(w, http.StatusOK, s.currentDeck())
	}
}

// handleAddCard saves a word to the deck and starts a dictionary lookup for it.
func (s *Server) handleAddCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		var card domain.Card
		if !decode(w, r, &card) {
			return
		}
		card.LastReviewAt, card.IntervalHours, card.NextReviewAt = nil, nil, nil
		if !s.Deck.Add(r.Context(), card) {
			writeError(w, http.StatusConflict, "card not added: invalid, duplicate or deck full")
			return
		}
		if s.Enricher != nil && card.Definition == "" {
			// The lookup outlives this request; it is cancelled by a lesson switch instead.
			s.Enricher.Request(context.WithoutCancel(r.Context()), card.Word)
		}
		writeJSON(w, http.StatusCreated, s.currentDeck())
	}
}

// handleRemoveCard removes /deck/cards/{word}.
func (s *Server) handleRemoveCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodDelete) {
			return
		}
		word := strings.TrimPrefix(r.URL.Path, "/deck/cards/")
		if strings.TrimSpace(word) == "" {
			writeError(w, http.StatusBadRequest, "word is required")
			return
		}
		s.Deck.Remove(r.Context(), word)
		writeJSON(w, http.StatusOK, s.currentDeck())
	}
}

// handleDue lists the cards due for review.
func (s *Server) handleDue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cards": nonNil(s.Deck.DueCards())})
	}
}

// handleGrade applies a review grade to a saved word.
func (s *Server) handleGrade() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		var req struct {
			Word  string `json:"word"`
			Grade string `json:"grade"`
		}
		if !decode(w, r, &req) {
			return
		}
		grade, ok := domain.ParseGrade(req.Grade)
		if !ok {
			writeError(w, http.StatusBadRequest, "grade must be one of again, hard, good, easy")
			return
		}
		if !s.Deck.Grade(r.Context(), req.Word, grade) {
			writeError(w, http.StatusNotFound, "word is not in the deck")
			return
		}
		writeJSON(w, http.StatusOK, s.currentDeck())
	}
}

// handleLessons lists lessons, or one lesson's exercises with ?id=.
func (s *Server) handleLessons() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		if id := r.URL.Query().Get("id"); id != "" {
			lesson, ok := s.Catalog.Get(id)
			if !ok {
				writeError(w, http.StatusNotFound, "lesson not found")
				return
			}
			writeJSON(w, http.StatusOK, lesson)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"lessons": s.Catalog.List()})
	}
}

// handleRating reads (GET) or submits (POST) the active lesson's rating.
func (s *Server) handleRating() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lessonID := s.Deck.LessonID()
		switch r.Method {
		case http.MethodGet:
			rating, ok := s.Ratings.Load(r.Context(), lessonID)
			if !ok {
				writeJSON(w, http.StatusOK, map[string]any{"questions": feedback.Questions, "rated": false})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"questions": feedback.Questions, "rated": true, "rating": rating})
		case http.MethodPost:
			var req struct {
				Responses map[string]int `json:"responses"`
			}
			if !decode(w, r, &req) {
				return
			}
			rating, err := s.Ratings.Submit(r.Context(), lessonID, req.Responses)
			if errors.Is(err, feedback.ErrIncompleteRating) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			if err != nil {
				s.logger.Error("failed to submit rating", "lesson_id", lessonID, "error", err)
				writeError(w, http.StatusInternalServerError, "failed to save rating")
				return
			}
			writeJSON(w, http.StatusOK, rating)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}

// handleLookup returns dictionary data for ?word=.
func (s *Server) handleLookup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		entry, ok := s.Dictionary.Lookup(r.Context(), r.URL.Query().Get("word"))
		if !ok {
			writeError(w, http.StatusNotFound, "no definition found")
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

// handleTranslate translates ?text= into ?lang=, defaulting to the saved assist language.
func (s *Server) handleTranslate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		lang := r.URL.Query().Get("lang")
		if lang == "" && s.Preferences != nil {
			lang = s.Preferences.Get(r.Context())
		}
		text := r.URL.Query().Get("text")
		writeJSON(w, http.StatusOK, map[string]string{
			"language":    translate.NormalizeLanguage(lang),
			"translation": s.Translator.Translate(r.Context(), text, lang),
		})
	}
}

// handleLanguage reads (GET) or stores (PUT) the assist language.
func (s *Server) handleLanguage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]string{"language": s.Preferences.Get(r.Context())})
		case http.MethodPut:
			var req struct {
				Language string `json:"language"`
			}
			if !decode(w, r, &req) {
				return
			}
			lang, err := s.Preferences.Set(r.Context(), req.Language)
			if err != nil {
				s.logger.Warn("failed to save language", "error", err)
			}
			writeJSON(w, http.StatusOK, map[string]string{"language": lang})
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
