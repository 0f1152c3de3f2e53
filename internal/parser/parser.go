// Package parser extracts lesson exercises from markdown.
//
// An exercise starts with a "Q:" line and may carry "A:" (answer) and "H:" (hint) lines.
// Each field may continue over several lines. A "---" line or the next "Q:" closes it.
// The first "# " heading, if any, is the lesson title.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/lexideck/internal/domain"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	hintPrefix     = "H:"
	titlePrefix    = "# "
	separator      = "---"
)

type state int

const (
	seeking state = iota
	readingQuestion
	readingAnswer
	readingHint
)

// Lesson is the parsed content of one lesson file.
type Lesson struct {
	Title     string
	Exercises []domain.Exercise
}

// ParseFile reads a lesson from the file at path.
func ParseFile(path string) (Lesson, error) {
	file, err := os.Open(path)
	if err != nil {
		return Lesson{}, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads a lesson from r. Exercises without both a question and an answer are dropped.
func Parse(r io.Reader) (Lesson, error) {
	scanner := bufio.NewScanner(r)
	var lesson Lesson
	var current domain.Exercise
	var block []string
	currentState := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(block, "\n"))
		switch currentState {
		case readingQuestion:
			current.Question = content
		case readingAnswer:
			current.Answer = content
		case readingHint:
			current.Hint = content
		}
		block = nil
	}

	finishExercise := func() {
		flushBlock()
		if current.Question != "" && current.Answer != "" {
			lesson.Exercises = append(lesson.Exercises, current)
		}
		current = domain.Exercise{}
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == separator {
			finishExercise()
			continue
		}
		if lesson.Title == "" && currentState == seeking && strings.HasPrefix(line, titlePrefix) {
			lesson.Title = strings.TrimSpace(line[len(titlePrefix):])
			continue
		}

		next, content, ok := field(line)
		if !ok {
			if currentState != seeking {
				block = append(block, line)
			}
			continue
		}

		if next == readingQuestion && currentState != seeking {
			// A new question always starts a new exercise.
			finishExercise()
		}
		flushBlock()
		currentState = next
		block = append(block, content)
	}

	finishExercise()

	if err := scanner.Err(); err != nil {
		return Lesson{}, err
	}
	return lesson, nil
}

func field(line string) (state, string, bool) {
	for _, f := range []struct {
		prefix string
		state  state
	}{
		{questionPrefix, readingQuestion},
		{answerPrefix, readingAnswer},
		{hintPrefix, readingHint},
	} {
		if strings.HasPrefix(line, f.prefix) {
			return f.state, strings.TrimPrefix(line[len(f.prefix):], " "), true
		}
	}
	return seeking, "", false
}
