package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix marks environment variables read by Load. Nested keys use a double
// underscore, e.g. LEXIDECK_STORAGE__DSN sets storage.dsn.
const EnvPrefix = "LEXIDECK_"

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"log-level":   "log_level",
	"log-format":  "log_format",
	"lesson":      "lesson",
	"db":          "storage.dsn",
	"lessons-dir": "lessons.dir",
	"repo":        "lessons.repo_url",
	"addr":        "server.addr",
	"seed":        "quiz.seed",
}

// RegisterFlags adds the global flags to fs, with the built-in defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "Path to a YAML configuration file")
	fs.String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")
	fs.String("log-format", d.LogFormat, "Log format (json, text)")
	fs.String("lesson", d.Lesson, "Lesson id whose deck to use")
	fs.String("db", d.Storage.DSN, "Path to the SQLite database file")
	fs.String("lessons-dir", d.Lessons.Dir, "Directory of lesson markdown files")
	fs.String("repo", d.Lessons.RepoURL, "Git URL of the lessons repository")
	fs.String("addr", d.Server.Addr, "HTTP listen address for serve")
	fs.Int64("seed", d.Quiz.Seed, "Quiz random seed (0 = time based)")
}

// Load builds the configuration. fs may be nil; otherwise it must have been set up with
// RegisterFlags and parsed.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if fs != nil {
		if path, _ := fs.GetString("config"); path != "" {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if fs != nil {
		flags := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			// Untouched flags only carry defaults, which the struct already has.
			if !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(flags, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
