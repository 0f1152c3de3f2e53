// Package lessons keeps the lesson-authored exercises available to the quiz.
package lessons

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/conorfennell/lexideck/internal/domain"
	"github.com/conorfennell/lexideck/internal/parser"
)

// Lesson is one parsed lesson file. Its ID is the file name without the .md extension.
type Lesson struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Path      string            `json:"path"`
	Exercises []domain.Exercise `json:"exercises"`
}

// Catalog is the set of known lessons, replaced wholesale on every load.
type Catalog struct {
	mu      sync.RWMutex
	lessons map[string]Lesson
	logger  *slog.Logger
}

// NewCatalog creates an empty catalog.
func NewCatalog(logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{lessons: map[string]Lesson{}, logger: logger.With("component", "lessons")}
}

// LoadDir walks dir for .md files and replaces the catalog with their lessons.
// Files that fail to parse are skipped and reported in the returned count.
func (c *Catalog) LoadDir(dir string) (failed int, err error) {
	found := map[string]Lesson{}
	var parseErrors []error

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		parsed, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			parseErrors = append(parseErrors, fmt.Errorf("parsing %s: %w", path, parseErr))
			return nil
		}
		id := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		if _, dup := found[id]; dup {
			c.logger.Warn("duplicate lesson id, keeping first", "lesson_id", id, "path", path)
			return nil
		}
		found[id] = Lesson{ID: id, Title: parsed.Title, Path: path, Exercises: parsed.Exercises}
		return nil
	})
	if walkErr != nil {
		return 0, fmt.Errorf("failed to walk lessons dir %s: %w", dir, walkErr)
	}

	for _, e := range parseErrors {
		c.logger.Warn("skipping lesson", "error", e)
	}

	c.mu.Lock()
	c.lessons = found
	c.mu.Unlock()

	c.logger.Info("lessons loaded", "path", dir, "lessons", len(found), "errors", len(parseErrors))
	return len(parseErrors), nil
}

// Get returns the lesson with id.
func (c *Catalog) Get(id string) (Lesson, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.lessons[id]
	return l, ok
}

// Exercises returns the exercises of lessonID, or nil when the lesson is unknown.
func (c *Catalog) Exercises(lessonID string) []domain.Exercise {
	l, ok := c.Get(lessonID)
	if !ok {
		return nil
	}
	return append([]domain.Exercise(nil), l.Exercises...)
}

// List returns every lesson sorted by id.
func (c *Catalog) List() []Lesson {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Lesson, 0, len(c.lessons))
	for _, l := range c.lessons {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
