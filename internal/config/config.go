package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	StorageMemory    = "memory"
	StorageBadger    = "badger"
	StorageFirestore = "firestore"
)

type Config struct {
	Port     int    `env:"DELTAWIND_PORT,default=8080" validate:"min=1,max=65535"`
	LogLevel string `env:"DELTAWIND_LOG_LEVEL,default=info" validate:"oneof=debug info warn error"`

	// Completion backend
	Provider      string        `env:"DELTAWIND_PROVIDER,default=mock" validate:"oneof=mock openai vertex gemini"`
	Model         string        `env:"DELTAWIND_MODEL"`
	OpenAIKey     string        `env:"OPENAI_API_KEY" validate:"required_if=Provider openai"`
	OpenAIBaseURL string        `env:"DELTAWIND_OPENAI_BASE_URL,default=https://api.openai.com/v1" validate:"url"`
	GeminiKey     string        `env:"GEMINI_API_KEY" validate:"required_if=Provider gemini"`
	GCPProjectID  string        `env:"DELTAWIND_GCP_PROJECT" validate:"required_if=Provider vertex,required_if=StorageBackend firestore"`
	GCPLocation   string        `env:"DELTAWIND_GCP_LOCATION,default=us-central1"`
	Temperature   float64       `env:"DELTAWIND_TEMPERATURE,default=0.3" validate:"gte=0,lte=2"`
	MaxTokens     int           `env:"DELTAWIND_MAX_TOKENS,default=1024" validate:"gte=0"`
	Timeout       time.Duration `env:"DELTAWIND_REQUEST_TIMEOUT,default=45s" validate:"gt=0"`
	MaxAttempts   int           `env:"DELTAWIND_MAX_ATTEMPTS,default=3" validate:"min=1,max=10"`
	BaseDelay     time.Duration `env:"DELTAWIND_BASE_DELAY,default=600ms" validate:"gte=0"`

	// Storage
	StorageBackend string `env:"DELTAWIND_STORAGE_BACKEND,default=memory" validate:"oneof=memory badger firestore"`
	BadgerPath     string `env:"DELTAWIND_BADGER_PATH,default=./data/sessions" validate:"required_if=StorageBackend badger"`

	// Comma separated case files, tried in order. Empty uses the built-in case.
	CaseFiles string `env:"DELTAWIND_CASE_FILES"`
}

// Load reads the optional dotenv files (".env" when none are given), then
// the environment, and validates the result. Variables already set in the
// environment win over dotenv files.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load dotenv: %w", err)
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// ModelName is the configured model, or the provider's default.
func (c *Config) ModelName() string {
	if c.Model != "" {
		return c.Model
	}
	switch c.Provider {
	case "openai":
		return "gpt-4o-mini"
	case "vertex", "gemini":
		return "gemini-2.5-flash"
	default:
		return "mock"
	}
}

// CaseCandidates lists the case files to try, in order.
func (c *Config) CaseCandidates() []string {
	var out []string
	for _, p := range strings.Split(c.CaseFiles, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// APIKey is the key of the selected provider.
func (c *Config) APIKey() string {
	if c.Provider == "gemini" {
		return c.GeminiKey
	}
	return c.OpenAIKey
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
