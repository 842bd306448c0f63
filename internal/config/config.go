// Package config assembles spacedeck's settings from defaults, an optional
// YAML file, SPACEDECK_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/spacedeck/internal/sm2"
)

const (
	// EnvPrefix prefixes every environment variable; "__" separates nested
	// keys, as in SPACEDECK_STORAGE__DB_PATH.
	EnvPrefix = "SPACEDECK_"

	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Config is the complete runtime configuration.
type Config struct {
	Storage   StorageConfig `koanf:"storage"`
	Sources   SourcesConfig `koanf:"sources"`
	Session   SessionConfig `koanf:"session"`
	Log       LogConfig     `koanf:"log"`
	Scheduler sm2.Params    `koanf:"scheduler"`
}

type StorageConfig struct {
	// Backend selects the document store.
	Backend string `koanf:"backend" validate:"oneof=json sqlite"`
	// Dir holds one JSON document per deck.
	Dir string `koanf:"dir" validate:"required"`
	// DBPath is the SQLite database file. Defaults to Dir/spacedeck.db.
	DBPath string `koanf:"db_path" validate:"required"`
}

type SourcesConfig struct {
	// ReposDir is where git note repositories are checked out. Defaults to
	// Dir/repos.
	ReposDir string `koanf:"repos_dir" validate:"required"`
}

type SessionConfig struct {
	Limit int `koanf:"limit" validate:"gte=1"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

// SlogLevel converts the configured level.
func (c LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// flagKeys maps command-line flags onto configuration keys. Flags not listed
// here are command options, not configuration.
var flagKeys = map[string]string{
	"data-dir":  "storage.dir",
	"store":     "storage.backend",
	"db":        "storage.db_path",
	"repos-dir": "sources.repos_dir",
	"limit":     "session.limit",
	"log-level": "log.level",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DefaultDir is the data directory used when none is configured.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".spacedeck"
	}
	return filepath.Join(home, ".spacedeck")
}

func defaults() map[string]any {
	p := sm2.DefaultParams()
	return map[string]any{
		"storage.backend":               BackendJSON,
		"storage.dir":                   DefaultDir(),
		"storage.db_path":               "",
		"sources.repos_dir":             "",
		"session.limit":                 20,
		"log.level":                     "info",
		"scheduler.learning_steps":      p.LearningSteps,
		"scheduler.graduating_interval": p.GraduatingInterval,
		"scheduler.easy_interval":       p.EasyInterval,
		"scheduler.easy_bonus":          p.EasyBonus,
		"scheduler.hard_multiplier":     p.HardMultiplier,
		"scheduler.minimum_ease":        p.MinimumEase,
		"scheduler.initial_ease":        p.InitialEase,
		"scheduler.easy_ease":           p.EasyEase,
		"scheduler.easy_ease_bonus":     p.EasyEaseBonus,
		"scheduler.fuzz_threshold":      p.FuzzThreshold,
		"scheduler.fuzz_factor":         p.FuzzFactor,
		"scheduler.review_hour":         p.ReviewHour,
	}
}

// Load builds the configuration. configFile may be empty, in which case
// config.yaml in the default data directory is read if it exists. flags may
// be nil.
func Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	ko := koanf.New(".")

	if err := ko.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configFile == "" {
		candidate := filepath.Join(DefaultDir(), "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
		}
	}
	if configFile != "" {
		if err := ko.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configFile, err)
		}
	}

	if err := ko.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", ko, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := ko.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := ko.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.applyDerivedDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func (c *Config) applyDerivedDefaults() {
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = filepath.Join(c.Storage.Dir, "spacedeck.db")
	}
	if c.Sources.ReposDir == "" {
		c.Sources.ReposDir = filepath.Join(c.Storage.Dir, "repos")
	}
}

// Validate checks every field, including the scheduler constants.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
