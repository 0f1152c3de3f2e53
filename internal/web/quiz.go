package web

import (
	"errors"
	"net/http"

	"github.com/conorfennell/lexideck/internal/quiz"
)

func (s *Server) session(kind quiz.Kind) *quiz.Session {
	if kind == quiz.Exercises {
		return s.Exercises
	}
	return s.VocabTest.Session()
}

// handleQuizView returns the current state of a quiz.
func (s *Server) handleQuizView(kind quiz.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, http.StatusOK, s.session(kind).View())
	}
}

// handleQuizStart starts a fresh run.
func (s *Server) handleQuizStart(kind quiz.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}

		var err error
		if kind == quiz.Vocabulary {
			err = s.VocabTest.Start(r.Context())
		} else {
			items := s.Builder.BuildExercises(s.Catalog.Exercises(s.Deck.LessonID()))
			err = s.Exercises.Start(r.Context(), items)
		}
		switch {
		case errors.Is(err, quiz.ErrQuizLocked):
			writeError(w, http.StatusConflict, "save at least 5 words to unlock the test")
			return
		case errors.Is(err, quiz.ErrNoQuestions):
			writeError(w, http.StatusNotFound, "this lesson has no questions")
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, s.session(kind).View())
	}
}

// handleQuizAnswer submits the selected option.
func (s *Server) handleQuizAnswer(kind quiz.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		var req struct {
			Option string `json:"option"`
		}
		if !decode(w, r, &req) {
			return
		}
		session := s.session(kind)
		if _, ok := session.Select(req.Option); !ok {
			if session.State() == quiz.InProgress {
				writeError(w, http.StatusBadRequest, "not one of the options")
				return
			}
			writeError(w, http.StatusConflict, "no open question to answer")
			return
		}
		writeJSON(w, http.StatusOK, session.View())
	}
}

// handleQuizNext moves past an answered question.
func (s *Server) handleQuizNext(kind quiz.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		session := s.session(kind)
		if !session.Next(r.Context()) {
			writeError(w, http.StatusConflict, "answer the current question first")
			return
		}
		writeJSON(w, http.StatusOK, session.View())
	}
}
