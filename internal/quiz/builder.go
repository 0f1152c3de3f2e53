package quiz

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/conorfennell/lexideck/internal/domain"
	"github.com/conorfennell/lexideck/internal/wordkey"
)

// wordPool pads vocabulary items when the deck offers fewer than three other words.
var wordPool = []string{
	"journey", "harbor", "lantern", "meadow", "whisper", "compass", "village", "thunder",
}

// exercisePool supplies distractors for lesson-authored questions after the other answers.
var exercisePool = []string{
	"It happened in a different city.",
	"The story does not say that.",
	"It was never mentioned in the lesson.",
	"That answer is not in today's lesson.",
	"This was not part of the story.",
}

// Builder generates quiz items. Its random source is injectable for deterministic tests.
type Builder struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewBuilder creates a Builder. A nil rng is replaced by a time-seeded one.
func NewBuilder(rng *rand.Rand) *Builder {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Builder{rng: rng}
}

// BuildQuestions builds up to QuestionsPerRun vocabulary items from cards.
// Cards are picked at random; each item gets three distinct distractors drawn from the
// other cards' words, and its options are shuffled once more.
func (b *Builder) BuildQuestions(cards []domain.Card) []Item {
	usable := usableCards(cards)

	b.mu.Lock()
	defer b.mu.Unlock()

	picked := takeFirst(shuffled(b.rng, usable), QuestionsPerRun)
	items := make([]Item, 0, len(picked))
	for _, answer := range picked {
		others := make([]string, 0, len(usable))
		for _, c := range usable {
			others = append(others, c.Word)
		}
		distractors := distinctExcluding(shuffled(b.rng, others), answer.Word, OptionsPerItem-1)
		if len(distractors) < OptionsPerItem-1 {
			padding := distinctExcluding(shuffled(b.rng, wordPool), answer.Word, len(wordPool))
			distractors = appendDistinct(distractors, padding, OptionsPerItem-1)
		}

		lead, text, promptType := pickPrompt(answer)
		items = append(items, Item{
			Kind:        Choice,
			PromptType:  promptType,
			PromptLead:  lead,
			Prompt:      text,
			Answer:      answer.Word,
			Options:     shuffled(b.rng, append([]string{answer.Word}, distractors...)),
			Explanation: answer.Definition,
		})
	}
	return items
}

// BuildExercises builds items from the first QuestionsPerRun lesson-authored exercises.
// Distractors come from the other exercises' answers first and then from a fixed phrase pool.
// Questions containing a blank become fill-in-the-blank items.
func (b *Builder) BuildExercises(exercises []domain.Exercise) []Item {
	var usable []domain.Exercise
	for _, e := range exercises {
		if strings.TrimSpace(e.Question) != "" && strings.TrimSpace(e.Answer) != "" {
			usable = append(usable, e)
		}
	}
	usable = takeFirst(usable, QuestionsPerRun)

	b.mu.Lock()
	defer b.mu.Unlock()

	items := make([]Item, 0, len(usable))
	for i, e := range usable {
		pool := make([]string, 0, len(usable)+len(exercisePool))
		for j, other := range usable {
			if j != i {
				pool = append(pool, other.Answer)
			}
		}
		pool = append(pool, exercisePool...)
		distractors := distinctExcluding(pool, e.Answer, OptionsPerItem-1)

		kind := Choice
		if e.HasBlank() {
			kind = FillBlank
		}
		items = append(items, Item{
			Kind:        kind,
			PromptType:  PromptExercise,
			Prompt:      strings.TrimSpace(e.Question),
			Answer:      strings.TrimSpace(e.Answer),
			Options:     shuffled(b.rng, append([]string{strings.TrimSpace(e.Answer)}, distractors...)),
			Explanation: e.Hint,
		})
	}
	return items
}

const fallbackPrompt = "This word appears in your lesson deck."

// pickPrompt chooses the prompt by priority: masked example, masked context sentence,
// definition, then a generic fallback that leaks nothing.
func pickPrompt(c domain.Card) (lead, text string, t PromptType) {
	switch {
	case c.Example != "":
		return "Which word best completes this example sentence?", Mask(c.Example, c.Word), PromptExample
	case c.Sentence != "":
		return "Which word best completes this lesson sentence?", Mask(c.Sentence, c.Word), PromptContext
	case c.Definition != "":
		// Definitions occasionally repeat the headword; mask it so the prompt never gives it away.
		return "Which word matches this meaning?", Mask(c.Definition, c.Word), PromptMeaning
	default:
		return "Which word are we testing?", Mask(fallbackPrompt, c.Word), PromptFallback
	}
}

// UsableCount returns the number of cards that can take part in a quiz.
func UsableCount(cards []domain.Card) int {
	n := 0
	for _, c := range cards {
		if c.Usable() {
			n++
		}
	}
	return n
}

func usableCards(cards []domain.Card) []domain.Card {
	out := make([]domain.Card, 0, len(cards))
	for _, c := range cards {
		if !c.Usable() {
			continue
		}
		out = append(out, domain.Card{
			Word:       strings.TrimSpace(c.Word),
			Sentence:   strings.TrimSpace(c.Sentence),
			Definition: strings.TrimSpace(c.Definition),
			Example:    strings.TrimSpace(c.Example),
		})
	}
	return out
}

// distinctExcluding keeps the first n values that are distinct from each other and from
// exclude, comparing case-insensitively.
func distinctExcluding(values []string, exclude string, n int) []string {
	return appendDistinct(nil, values, n, exclude)
}

func appendDistinct(dst, values []string, n int, exclude ...string) []string {
	seen := make(map[string]struct{}, len(dst)+len(exclude))
	for _, v := range exclude {
		seen[wordkey.Normalize(v)] = struct{}{}
	}
	for _, v := range dst {
		seen[wordkey.Normalize(v)] = struct{}{}
	}
	for _, v := range values {
		if len(dst) >= n {
			break
		}
		key := wordkey.Normalize(v)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		dst = append(dst, strings.TrimSpace(v))
	}
	return dst
}

// shuffled returns a Fisher–Yates shuffled copy of in.
func shuffled[T any](rng *rand.Rand, in []T) []T {
	out := append([]T(nil), in...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// takeFirst returns the first n elements of s, or the whole slice if it is shorter.
func takeFirst[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
