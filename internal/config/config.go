// Package config loads lexideck settings from defaults, an optional YAML file,
// LEXIDECK_* environment variables and command-line flags, in that order of precedence.
package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	LogLevel  string `koanf:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat string `koanf:"log_format" validate:"required,oneof=json text"`
	// Lesson is the lesson whose deck commands operate on.
	Lesson    string `koanf:"lesson" validate:"required,max=128"`

	Storage    StorageConfig `koanf:"storage"`
	Deck       DeckConfig    `koanf:"deck"`
	Quiz       QuizConfig    `koanf:"quiz"`
	Lessons    LessonsConfig `koanf:"lessons"`
	Dictionary ClientConfig  `koanf:"dictionary"`
	Translate  ClientConfig  `koanf:"translate"`
	Server     ServerConfig  `koanf:"server"`
	Speech     SpeechConfig  `koanf:"speech"`
}

// StorageConfig selects the SQLite database. ":memory:" keeps everything in process.
type StorageConfig struct {
	DSN string `koanf:"dsn" validate:"required"`
}

// DeckConfig tunes the deck and the review intervals.
type DeckConfig struct {
	Prefix            string  `koanf:"prefix" validate:"required"`
	BaseIntervalHours float64 `koanf:"base_interval_hours" validate:"gt=0"`
}

// QuizConfig seeds the quiz shuffles; zero means a time-based seed.
type QuizConfig struct {
	Seed int64 `koanf:"seed"`
}

// LessonsConfig locates lesson markdown files, optionally synced from git.
type LessonsConfig struct {
	Dir      string `koanf:"dir" validate:"required"`
	RepoURL  string `koanf:"repo_url"`
	ReposDir string `koanf:"repos_dir" validate:"required"`
}

// ClientConfig configures an external HTTP collaborator.
type ClientConfig struct {
	BaseURL   string        `koanf:"base_url" validate:"required,url"`
	Timeout   time.Duration `koanf:"timeout" validate:"gt=0"`
	CacheSize int           `koanf:"cache_size" validate:"gt=0"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required,hostname_port"`
}

// SpeechConfig names an external text-to-speech command; empty prints instead of speaking.
type SpeechConfig struct {
	Command string   `koanf:"command"`
	Args    []string `koanf:"args"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		Lesson:    "default",
		Storage:   StorageConfig{DSN: "lexideck.db"},
		Deck:      DeckConfig{Prefix: "ovi-deck-", BaseIntervalHours: 8},
		Lessons:   LessonsConfig{Dir: "lessons", ReposDir: "repos"},
		Dictionary: ClientConfig{
			BaseURL:   "https://api.dictionaryapi.dev/api/v2/entries/en/",
			Timeout:   6 * time.Second,
			CacheSize: 512,
		},
		Translate: ClientConfig{
			BaseURL:   "https://api.mymemory.translated.net/get",
			Timeout:   6 * time.Second,
			CacheSize: 256,
		},
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
	}
}
