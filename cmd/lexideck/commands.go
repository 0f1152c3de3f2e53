package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/conorfennell/lexideck/internal/domain"
	"github.com/conorfennell/lexideck/internal/feedback"
	"github.com/conorfennell/lexideck/internal/quiz"
	"github.com/conorfennell/lexideck/internal/translate"
	"github.com/conorfennell/lexideck/internal/web"
)

var errUsage = errors.New("usage")

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "add":
		return a.add(ctx, args)
	case "remove":
		if len(args) != 1 {
			return errUsage
		}
		a.deck.Remove(ctx, args[0])
		fmt.Fprintf(a.out, "Removed %q. %d/%d cards.\n", args[0], a.deck.Len(), a.deck.Capacity())
		return nil
	case "grade":
		return a.grade(ctx, args)
	case "due":
		return a.printCards(a.deck.DueCards(), "No cards due. Come back later.")
	case "list":
		return a.printCards(a.deck.Cards(), "The deck is empty. Save a word with: lexideck add <word>")
	case "history":
		return a.history(ctx)
	case "quiz":
		return a.quiz(ctx, args)
	case "exercises":
		return a.exercises()
	case "rate":
		return a.rate(ctx, args)
	case "lookup":
		return a.lookup(ctx, args)
	case "translate":
		return a.translateText(ctx, args)
	case "language":
		return a.language(ctx, args)
	case "say":
		if len(args) == 0 {
			return errUsage
		}
		a.player.Say(ctx, strings.Join(args, " "))
		return nil
	case "sync":
		return a.sync(ctx)
	case "serve":
		return a.serve(ctx)
	default:
		return errUsage
	}
}

func (a *app) add(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	card := domain.Card{Word: args[0], Sentence: strings.Join(args[1:], " ")}
	if a.deck.IsInDeck(card.Word) {
		fmt.Fprintf(a.out, "%q is already in the deck.\n", card.Word)
		return nil
	}
	if !a.deck.Add(ctx, card) {
		return fmt.Errorf("could not add %q: the deck holds at most %d cards", card.Word, a.deck.Capacity())
	}
	a.enricher.Request(ctx, card.Word)
	a.enricher.Wait()

	fmt.Fprintf(a.out, "Saved %q. %d/%d cards.\n", card.Word, a.deck.Len(), a.deck.Capacity())
	for _, c := range a.deck.Cards() {
		if strings.EqualFold(c.Word, card.Word) && c.Definition != "" {
			fmt.Fprintf(a.out, "  %s\n", c.Definition)
		}
	}
	if n := quiz.UsableCount(a.deck.Cards()); n < quiz.MinCardsForQuiz {
		fmt.Fprintf(a.out, "Save %d more to unlock the vocabulary test.\n", quiz.MinCardsForQuiz-n)
	}
	return nil
}

func (a *app) grade(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	grade, ok := domain.ParseGrade(args[1])
	if !ok {
		return fmt.Errorf("invalid grade %q: use again, hard, good or easy", args[1])
	}
	if !a.deck.Grade(ctx, args[0], grade) {
		return fmt.Errorf("%q is not in the deck", args[0])
	}
	for _, c := range a.deck.Cards() {
		if strings.EqualFold(strings.TrimSpace(c.Word), strings.TrimSpace(args[0])) && c.NextReviewAt != nil {
			fmt.Fprintf(a.out, "Next review of %q in %gh (%s).\n", c.Word, *c.IntervalHours, c.NextReviewAt.Local().Format(time.RFC1123))
		}
	}
	return nil
}

func (a *app) printCards(cards []domain.Card, empty string) error {
	if len(cards) == 0 {
		fmt.Fprintln(a.out, empty)
		return nil
	}
	for _, c := range cards {
		next := "due now"
		if c.NextReviewAt != nil {
			next = c.NextReviewAt.Local().Format(time.RFC1123)
		}
		fmt.Fprintf(a.out, "%-16s %s\n", c.Word, next)
		if c.Definition != "" {
			fmt.Fprintf(a.out, "  %s\n", c.Definition)
		}
	}
	return nil
}

func (a *app) history(ctx context.Context) error {
	logs, err := a.db.ReviewLogs(ctx, a.deck.LessonID())
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		fmt.Fprintln(a.out, "No reviews yet.")
		return nil
	}
	for _, l := range logs {
		fmt.Fprintf(a.out, "%s  %-16s %-6s %gh\n", l.ReviewedAt.Local().Format(time.DateTime), l.Word, l.Grade, l.IntervalHours)
	}
	return nil
}

func (a *app) quiz(ctx context.Context, args []string) error {
	kind := quiz.Vocabulary
	if len(args) > 0 {
		kind = quiz.Kind(args[0])
	}

	session := quiz.NewSession(kind, a.emitter, a.logger)
	switch kind {
	case quiz.Vocabulary:
		test := quiz.NewVocabTest(a.deck, a.builder, session)
		defer test.Close()
		if err := test.Start(ctx); errors.Is(err, quiz.ErrQuizLocked) {
			return fmt.Errorf("save at least %d words to unlock the vocabulary test", quiz.MinCardsForQuiz)
		} else if err != nil {
			return err
		}
	case quiz.Exercises:
		items := a.builder.BuildExercises(a.catalog.Exercises(a.deck.LessonID()))
		if err := session.Start(ctx, items); err != nil {
			return fmt.Errorf("lesson %q has no exercises", a.deck.LessonID())
		}
	default:
		return errUsage
	}

	scanner := bufio.NewScanner(a.in)
	for {
		view := session.View()
		if view.State == quiz.Finished {
			fmt.Fprintf(a.out, "\nScore: %d/%d (%d%%)\n%s\n", view.Result.Score, view.Result.Total, view.Result.Percent, view.Result.Message)
			return nil
		}
		item := view.Item
		fmt.Fprintf(a.out, "\nQuestion %d/%d\n", view.Index+1, view.Total)
		if item.PromptLead != "" {
			fmt.Fprintln(a.out, item.PromptLead)
		}
		fmt.Fprintln(a.out, item.Prompt)
		for i, o := range item.Options {
			fmt.Fprintf(a.out, "  %d) %s\n", i+1, o)
		}

		for session.State() == quiz.InProgress {
			fmt.Fprint(a.out, "> ")
			if !scanner.Scan() {
				session.Abort()
				fmt.Fprintln(a.out, "\nQuiz abandoned.")
				return scanner.Err()
			}
			choice, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
			if err != nil || choice < 1 || choice > len(item.Options) {
				fmt.Fprintf(a.out, "Pick a number from 1 to %d.\n", len(item.Options))
				continue
			}
			fb, _ := session.Select(item.Options[choice-1])
			fmt.Fprintln(a.out, fb.Text)
		}
		session.Next(ctx)
	}
}

func (a *app) exercises() error {
	lesson, ok := a.catalog.Get(a.deck.LessonID())
	if !ok || len(lesson.Exercises) == 0 {
		fmt.Fprintf(a.out, "Lesson %q has no exercises.\n", a.deck.LessonID())
		return nil
	}
	if lesson.Title != "" {
		fmt.Fprintln(a.out, lesson.Title)
	}
	for i, e := range lesson.Exercises {
		fmt.Fprintf(a.out, "%d. %s\n", i+1, e.Question)
		if e.Hint != "" {
			fmt.Fprintf(a.out, "   Hint: %s\n", e.Hint)
		}
	}
	return nil
}

func (a *app) rate(ctx context.Context, args []string) error {
	if len(args) != 0 && len(args) != len(feedback.Questions) {
		return errUsage
	}
	responses := make(map[string]int, len(feedback.Questions))
	scanner := bufio.NewScanner(a.in)
	for i, q := range feedback.Questions {
		var raw string
		if len(args) > 0 {
			raw = args[i]
		} else {
			fmt.Fprintf(a.out, "%s (1-5) > ", q.Label)
			if !scanner.Scan() {
				return errors.New("rating abandoned")
			}
			raw = scanner.Text()
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%q is not a score from 1 to 5", raw)
		}
		responses[q.ID] = v
	}

	rating, err := a.ratings.Submit(ctx, a.deck.LessonID(), responses)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Thanks for rating this lesson. Score saved: %.2f/5\n", rating.Average)
	return nil
}

func (a *app) lookup(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	entry, ok := a.dict.Lookup(ctx, args[0])
	if !ok {
		fmt.Fprintf(a.out, "No definition found for %q.\n", args[0])
		return nil
	}
	fmt.Fprintf(a.out, "%s %s (%s)\n%s\n", entry.Word, entry.Phonetic, entry.PartOfSpeech, entry.Definition)
	if entry.Example != "" {
		fmt.Fprintf(a.out, "Example: %s\n", entry.Example)
	}
	return nil
}

func (a *app) translateText(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	lang := a.prefs.Get(ctx)
	if translate.IsTarget(args[0]) && len(args) > 1 {
		lang, args = args[0], args[1:]
	}
	if lang == translate.SourceLanguage {
		return errors.New("choose a language: lexideck translate <ja|es> <text> or lexideck language <ja|es>")
	}
	text := a.translate.Translate(ctx, strings.Join(args, " "), lang)
	if text == "" {
		fmt.Fprintln(a.out, "No translation available.")
		return nil
	}
	fmt.Fprintln(a.out, text)
	return nil
}

func (a *app) language(ctx context.Context, args []string) error {
	switch len(args) {
	case 0:
		fmt.Fprintln(a.out, a.prefs.Get(ctx))
		return nil
	case 1:
		lang, err := a.prefs.Set(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Assist language set to %s.\n", lang)
		return nil
	default:
		return errUsage
	}
}

func (a *app) sync(ctx context.Context) error {
	if a.cfg.Lessons.RepoURL == "" {
		return errors.New("no lessons repository configured: pass --repo or set lessons.repo_url")
	}
	dir, err := lessonsDir(a.cfg)
	if err != nil {
		return err
	}
	if err := a.catalog.SyncGit(ctx, a.cfg.Lessons.RepoURL, dir); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Synced %d lessons into %s.\n", len(a.catalog.List()), dir)
	return nil
}

func (a *app) serve(ctx context.Context) error {
	vocab := quiz.NewVocabTest(a.deck, a.builder, quiz.NewSession(quiz.Vocabulary, a.emitter, a.logger))
	defer vocab.Close()

	handler := web.NewServer(web.Deps{
		Deck:        a.deck,
		Builder:     a.builder,
		VocabTest:   vocab,
		Exercises:   quiz.NewSession(quiz.Exercises, a.emitter, a.logger),
		Catalog:     a.catalog,
		Ratings:     a.ratings,
		Dictionary:  a.dict,
		Translator:  a.translate,
		Enricher:    a.enricher,
		Preferences: a.prefs,
		Logger:      a.logger,
	})
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("starting server", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
