package domain

import "strings"

// Exercise is a lesson-authored comprehension question.
type Exercise struct {
	Question string
	Answer   string
	Hint     string
}

// HasBlank reports whether the question is a fill-in-the-blank prompt.
func (e Exercise) HasBlank() bool {
	return strings.Contains(e.Question, "___")
}
