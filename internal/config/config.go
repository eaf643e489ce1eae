// Package config loads the application configuration from a YAML file,
// environment variables (LINGUAMI_ prefix) and command-line flags, in
// that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/sidneypayan/linguami-srs/internal/scheduler"
	"github.com/sidneypayan/linguami-srs/internal/session"
)

const envPrefix = "LINGUAMI_"

// Config is the full application configuration.
type Config struct {
	Env      string   `koanf:"env" validate:"oneof=local dev production"`
	Server   Server   `koanf:"server"`
	Database Database `koanf:"database"`
	Content  Content  `koanf:"content"`
	Session  Session  `koanf:"session"`
	Tuning   Tuning   `koanf:"scheduler"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr           string   `koanf:"addr" validate:"required"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// Database configures the SQLite store.
type Database struct {
	Path string `koanf:"path" validate:"required"`
}

// Content configures deck sources.
type Content struct {
	ReposDir string   `koanf:"repos_dir" validate:"required"`
	Sources  []string `koanf:"sources"`
}

// Session holds the default study-session configuration offered to the UI.
type Session struct {
	Default session.Config `koanf:"default"`
}

// Tuning overrides individual scheduler parameters. Zero values keep
// the defaults.
type Tuning struct {
	LearningStepsMinutes   []int `koanf:"learning_steps_minutes"`
	RelearningStepsMinutes []int `koanf:"relearning_steps_minutes"`
	GraduatingIntervalDays int   `koanf:"graduating_interval_days" validate:"gte=0"`
	EasyIntervalDays       int   `koanf:"easy_interval_days" validate:"gte=0"`
	MaxIntervalDays        int   `koanf:"max_interval_days" validate:"gte=0"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Env: "local",
		Server: Server{
			Addr: ":8080",
		},
		Database: Database{
			Path: "linguami.db",
		},
		Content: Content{
			ReposDir: "repos",
		},
		Session: Session{
			Default: session.Config{Mode: session.ModeCards, CardsLimit: 20},
		},
	}
}

var validate = validator.New()

// Load reads configuration into a strongly typed struct and validates
// it. The flag set may be nil; when given, it wins over file and env.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	// LINGUAMI_SERVER_ADDR -> server.addr
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("error loading flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Session.Default.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// SchedulerParams builds scheduler parameters from the defaults plus
// any tuning overrides, validated before use.
func (c *Config) SchedulerParams() (*scheduler.Params, error) {
	p := scheduler.DefaultParams()
	if len(c.Tuning.LearningStepsMinutes) > 0 {
		p.LearningSteps = minuteSteps(c.Tuning.LearningStepsMinutes)
	}
	if len(c.Tuning.RelearningStepsMinutes) > 0 {
		p.RelearningSteps = minuteSteps(c.Tuning.RelearningStepsMinutes)
	}
	if c.Tuning.GraduatingIntervalDays > 0 {
		p.GraduatingInterval = time.Duration(c.Tuning.GraduatingIntervalDays) * 24 * time.Hour
	}
	if c.Tuning.EasyIntervalDays > 0 {
		p.EasyInterval = time.Duration(c.Tuning.EasyIntervalDays) * 24 * time.Hour
	}
	if c.Tuning.MaxIntervalDays > 0 {
		p.MaxInterval = time.Duration(c.Tuning.MaxIntervalDays) * 24 * time.Hour
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scheduler tuning: %w", err)
	}
	return p, nil
}

func minuteSteps(minutes []int) []time.Duration {
	steps := make([]time.Duration, len(minutes))
	for i, m := range minutes {
		steps[i] = time.Duration(m) * time.Minute
	}
	return steps
}
