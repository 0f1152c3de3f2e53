package dictionary

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

type replacement struct {
	pattern *regexp.Regexp
	with    string
}

func phrase(p, with string) replacement {
	return replacement{pattern: regexp.MustCompile(`(?i)\b` + p + `\b`), with: with}
}

// abbreviation matches a dotted abbreviation, which has no word boundary after the final dot.
func abbreviation(p, with string) replacement {
	return replacement{pattern: regexp.MustCompile(`(?i)\b` + p), with: with}
}

var replacements = []replacement{
	phrase(`the act of`, "doing"),
	phrase(`the process of`, "the way of"),
	phrase(`used to`, "used for"),
	phrase(`obtain`, "get"),
	phrase(`utilize`, "use"),
	phrase(`reside`, "live"),
	phrase(`consume`, "eat or drink"),
	phrase(`commence`, "start"),
	phrase(`terminate`, "end"),
	phrase(`approximately`, "about"),
	phrase(`in order to`, "to"),
	phrase(`that is to say`, "meaning"),
	abbreviation(`e\.g\.`, "for example"),
	abbreviation(`i\.e\.`, "in other words"),
	phrase(`chiefly`, "mostly"),
	phrase(`usually`, "often"),
	phrase(`one who`, "a person who"),
	phrase(`that which`, "something that"),
}

var (
	parenthetical = regexp.MustCompile(`\([^)]*\)`)
	bracketed     = regexp.MustCompile(`\[[^\]]*\]`)
	spaceBefore   = regexp.MustCompile(`\s+([,.])`)
	clauseBreak   = regexp.MustCompile(`[;:]`)
	punctuation   = regexp.MustCompile(`[;:()]`)
	nonLetters    = regexp.MustCompile(`[^a-z]`)
)

const (
	maxSimplifiedWords = 30
	minClauseWords     = 6
	minPreferredWords  = 5
	maxPreferredWords  = 24
	longWordLetters    = 11
)

type candidate struct {
	definition   string
	partOfSpeech string
	example      string
}

// pickBest prefers definitions of medium length and, among those, the least complex one.
func pickBest(e apiEntry) candidate {
	var all []candidate
	for _, m := range e.Meanings {
		for _, d := range m.Definitions {
			text := normalizeSpaces(d.Definition)
			if text == "" {
				continue
			}
			all = append(all, candidate{
				definition:   text,
				partOfSpeech: m.PartOfSpeech,
				example:      normalizeSpaces(d.Example),
			})
		}
	}
	if len(all) == 0 {
		return candidate{}
	}

	var medium []candidate
	for _, c := range all {
		if n := len(strings.Fields(c.definition)); n >= minPreferredWords && n <= maxPreferredWords {
			medium = append(medium, c)
		}
	}
	pool := all
	if len(medium) > 0 {
		pool = medium
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return complexity(pool[i].definition) < complexity(pool[j].definition)
	})
	return pool[0]
}

// complexity scores a definition by word count, long words and structural punctuation.
func complexity(definition string) int {
	clean := strings.ToLower(normalizeSpaces(definition))
	words := strings.Fields(clean)
	score := len(words)
	for _, w := range words {
		if len(nonLetters.ReplaceAllString(w, "")) >= longWordLetters {
			score += 2
		}
	}
	if punctuation.MatchString(clean) {
		score += 2
	}
	return score
}

// Simplify rewrites a dictionary definition into plainer learner English.
func Simplify(definition string) string {
	text := normalizeSpaces(definition)
	if text == "" {
		return ""
	}

	text = parenthetical.ReplaceAllString(text, "")
	text = bracketed.ReplaceAllString(text, "")
	text = normalizeSpaces(text)

	for _, r := range replacements {
		text = r.pattern.ReplaceAllLiteralString(text, r.with)
	}
	text = normalizeSpaces(spaceBefore.ReplaceAllString(text, "$1"))

	if words := strings.Fields(text); len(words) > maxSimplifiedWords {
		first := clauseBreak.Split(text, 2)[0]
		if len(strings.Fields(first)) >= minClauseWords {
			text = strings.TrimSpace(first)
		} else {
			text = strings.Join(words[:maxSimplifiedWords], " ") + "..."
		}
	}
	return sentenceCase(text)
}

func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func sentenceCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
