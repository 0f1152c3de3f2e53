package domain

import (
	"strings"
	"time"
)

// Card represents a single learner-saved vocabulary entry.
// Absent timestamps and intervals are nil pointers so they round-trip as missing JSON fields.
type Card struct {
	Word         string     `json:"word" validate:"required,max=64"`
	Sentence     string     `json:"sentence,omitempty"`
	Definition   string     `json:"definition,omitempty"`
	Example      string     `json:"example,omitempty"`
	Phonetic     string     `json:"phonetic,omitempty"`
	PartOfSpeech string     `json:"partOfSpeech,omitempty"`
	LastReviewAt *time.Time `json:"lastReviewAt,omitempty"`
	// IntervalHours is nil until the card has been graded at least once.
	IntervalHours *float64   `json:"intervalHours,omitempty"`
	NextReviewAt  *time.Time `json:"nextReviewAt,omitempty"`
}

// Usable reports whether the card can take part in a quiz.
func (c Card) Usable() bool {
	return strings.TrimSpace(c.Word) != ""
}

// Grade is the learner's self-reported recall quality for a reviewed card.
type Grade string

const (
	Again Grade = "again"
	Hard  Grade = "hard"
	Good  Grade = "good"
	Easy  Grade = "easy"
)

// Grades lists every grade from weakest to strongest recall.
var Grades = []Grade{Again, Hard, Good, Easy}

// Valid reports whether g is one of the four known grades.
func (g Grade) Valid() bool {
	switch g {
	case Again, Hard, Good, Easy:
		return true
	default:
		return false
	}
}

// ParseGrade converts user input such as " Good" into a Grade.
func ParseGrade(s string) (Grade, bool) {
	g := Grade(strings.ToLower(strings.TrimSpace(s)))
	return g, g.Valid()
}

// ReviewLog records a single grading event for a card.
type ReviewLog struct {
	CardID        string
	LessonID      string
	Word          string
	Grade         Grade
	IntervalHours float64
	ReviewedAt    time.Time
	NextReviewAt  time.Time
}

// Enrichment is dictionary data attached to a card for display only.
type Enrichment struct {
	Definition    string `json:"definition"`
	RawDefinition string `json:"rawDefinition"`
	Phonetic      string `json:"phonetic"`
	PartOfSpeech  string `json:"partOfSpeech"`
	Example       string `json:"example"`
}
