package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/lexideck/internal/config"
	"github.com/conorfennell/lexideck/internal/deck"
	"github.com/conorfennell/lexideck/internal/dictionary"
	"github.com/conorfennell/lexideck/internal/enrich"
	"github.com/conorfennell/lexideck/internal/events"
	"github.com/conorfennell/lexideck/internal/feedback"
	"github.com/conorfennell/lexideck/internal/lessons"
	"github.com/conorfennell/lexideck/internal/logger"
	"github.com/conorfennell/lexideck/internal/quiz"
	"github.com/conorfennell/lexideck/internal/speech"
	"github.com/conorfennell/lexideck/internal/srs"
	"github.com/conorfennell/lexideck/internal/storage"
	"github.com/conorfennell/lexideck/internal/translate"
)

const usage = `Usage: lexideck [flags] <command> [args]

Commands:
  add <word> [sentence]     Save a word to the lesson deck
  remove <word>             Remove a word from the deck
  grade <word> <grade>      Grade a review (again, hard, good, easy)
  due                       List cards due for review
  list                      List every card in the deck
  history                   Show the review log of the lesson
  quiz [vocabulary|exercises]
                            Run a quiz on the terminal
  exercises                 List the lesson's exercises
  rate [five scores 1-5]    Rate the lesson
  lookup <word>             Look up a definition
  translate [lang] <text>   Translate text (lang: ja, es; default: saved language)
  language [en|ja|es]       Show or set the assist language
  say <text>                Speak text aloud
  sync                      Clone or pull the lessons repository
  serve                     Start the HTTP API

Flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// app holds the wired collaborators shared by every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	in     io.Reader
	out    io.Writer

	db        *storage.DB
	emitter   *events.InMemoryEmitter
	deck      *deck.Manager
	builder   *quiz.Builder
	catalog   *lessons.Catalog
	dict      *dictionary.Client
	translate *translate.Client
	prefs     *translate.Preference
	enricher  *enrich.Enricher
	ratings   *feedback.Service
	player    *speech.Player
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	fs := pflag.NewFlagSet("lexideck", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() {
		fmt.Fprint(errOut, usage)
		fs.PrintDefaults()
	}
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(errOut, "Failed to load configuration: %v\n", err)
		return 1
	}
	log := logger.Setup(errOut, cfg.LogLevel, cfg.LogFormat)

	a, err := newApp(ctx, cfg, log, in, out)
	if err != nil {
		log.Error("failed to start", "error", err)
		return 1
	}
	defer a.close()

	if err := a.dispatch(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fs.Usage()
			return 2
		}
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger, in io.Reader, out io.Writer) (*app, error) {
	db, err := storage.Open(cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	log.Debug("database opened", "dsn", cfg.Storage.DSN)

	emitter := events.NewInMemoryEmitter(log)
	emitter.Register(storage.NewReviewLogHandler(db))
	emitter.Register(events.HandlerFunc(func(_ context.Context, e *events.Event) error {
		log.Debug("event", "type", e.Type, "id", e.ID, "payload", string(e.Payload))
		return nil
	}))

	params := srs.DefaultParams()
	params.BaseHours = cfg.Deck.BaseIntervalHours
	d := deck.NewManager(db,
		deck.WithScheduler(srs.NewScheduler(params, time.Now)),
		deck.WithEmitter(emitter),
		deck.WithLogger(log),
		deck.WithPrefix(cfg.Deck.Prefix),
	)
	d.Load(ctx, cfg.Lesson)

	var rng *rand.Rand
	if cfg.Quiz.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Quiz.Seed))
	}

	catalog := lessons.NewCatalog(log)
	dir, err := lessonsDir(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); err == nil {
		if _, err := catalog.LoadDir(dir); err != nil {
			log.Warn("failed to load lessons", "path", dir, "error", err)
		}
	}

	dict := dictionary.NewClient(dictionary.Config{
		BaseURL:   cfg.Dictionary.BaseURL,
		Timeout:   cfg.Dictionary.Timeout,
		CacheSize: cfg.Dictionary.CacheSize,
	}, log)

	var speaker speech.Speaker = speech.NewWriterSpeaker(out)
	if cfg.Speech.Command != "" {
		speaker = speech.CommandSpeaker{Name: cfg.Speech.Command, Args: cfg.Speech.Args}
	}

	return &app{
		cfg:     cfg,
		logger:  log,
		in:      in,
		out:     out,
		db:      db,
		emitter: emitter,
		deck:    d,
		builder: quiz.NewBuilder(rng),
		catalog: catalog,
		dict:    dict,
		translate: translate.NewClient(translate.Config{
			BaseURL:   cfg.Translate.BaseURL,
			Timeout:   cfg.Translate.Timeout,
			CacheSize: cfg.Translate.CacheSize,
		}, log),
		prefs:    translate.NewPreference(db),
		enricher: enrich.New(dict, d, log),
		ratings:  feedback.NewService(db, emitter, log, time.Now),
		player:   speech.NewPlayer(speaker, log),
	}, nil
}

// lessonsDir is the synced repository when one is configured, otherwise the local directory.
func lessonsDir(cfg *config.Config) (string, error) {
	if cfg.Lessons.RepoURL == "" {
		return cfg.Lessons.Dir, nil
	}
	return lessons.RepoDir(cfg.Lessons.ReposDir, cfg.Lessons.RepoURL)
}

func (a *app) close() {
	a.enricher.Dismiss()
	a.enricher.Wait()
	a.player.Wait()
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", "error", err)
	}
}
