// Package quiz turns saved vocabulary and lesson exercises into multiple-choice runs.
package quiz

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// QuestionsPerRun caps the number of items in one run.
	QuestionsPerRun = 5
	// MinCardsForQuiz is the number of usable cards needed to unlock the vocabulary test.
	MinCardsForQuiz = 5
	// OptionsPerItem is the number of options shown, the correct answer included.
	OptionsPerItem = 4
	// Blank replaces the target word in masked prompts.
	Blank = "____"
)

// Kind distinguishes the two sources a run can be built from.
type Kind string

const (
	Vocabulary Kind = "vocabulary"
	Exercises  Kind = "exercises"
)

// ItemKind controls how answers are accepted.
type ItemKind string

const (
	// Choice items lock after the first answer.
	Choice ItemKind = "choice"
	// FillBlank items accept retries until the correct answer is picked.
	FillBlank ItemKind = "fill_blank"
)

// PromptType says where the prompt text came from.
type PromptType string

const (
	PromptExample  PromptType = "example"
	PromptContext  PromptType = "context"
	PromptMeaning  PromptType = "meaning"
	PromptFallback PromptType = "fallback"
	PromptExercise PromptType = "exercise"
)

// Item is one generated question. Items are never persisted.
type Item struct {
	Kind        ItemKind   `json:"kind"`
	PromptType  PromptType `json:"promptType"`
	PromptLead  string     `json:"promptLead"`
	Prompt      string     `json:"prompt"`
	Answer      string     `json:"answer"`
	Options     []string   `json:"options"`
	Explanation string     `json:"explanation,omitempty"`
}

// Mask replaces whole-word, case-insensitive occurrences of word in text with Blank.
// Partial-word matches ("cat" in "category") are left alone. Word boundaries are
// Unicode-aware, so "café" is masked in "the café next door".
func Mask(text, word string) string {
	text = strings.TrimSpace(text)
	word = strings.TrimSpace(word)
	if text == "" || word == "" {
		return text
	}
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(word))
	if err != nil {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range re.FindAllStringIndex(text, -1) {
		if !boundaryBefore(text, m[0]) || !boundaryAfter(text, m[1]) {
			continue
		}
		b.WriteString(text[last:m[0]])
		b.WriteString(Blank)
		last = m[1]
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i == len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.Mn, r)
}
