package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Gemini holds settings of the text-generation service.
type Gemini struct {
	APIKey          string        `env:"GEMINI_API_KEY"`
	Endpoint        string        `env:"GEMINI_ENDPOINT" env-default:"https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash-latest:generateContent"`
	Temperature     float64       `env:"GEMINI_TEMPERATURE" env-default:"0.7"`
	MaxOutputTokens int           `env:"GEMINI_MAX_OUTPUT_TOKENS" env-default:"512"`
	Timeout         time.Duration `env:"GEMINI_TIMEOUT" env-default:"0s"`
}

// Config keeps runtime settings for the bot.
type Config struct {
	BotToken         string `env:"BOT_TOKEN"`
	RawAdminIDs      string `env:"ADMIN_IDS"`
	DatabasePath     string `env:"DATABASE_PATH" env-default:"dostyqtv_bot.db"`
	KnowledgePath    string `env:"KNOWLEDGE_PATH"`
	Workers          int    `env:"WORKERS" env-default:"8"`
	StatsAggregateAt string `env:"STATS_AGGREGATE_AT" env-default:"23:55"`
	LogMode          string `env:"LOG_MODE" env-default:"dev"`
	Gemini           Gemini

	AdminIDs []int64
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}

	cfg.BotToken = strings.TrimSpace(cfg.BotToken)
	cfg.Gemini.APIKey = strings.TrimSpace(cfg.Gemini.APIKey)
	cfg.StatsAggregateAt = strings.TrimSpace(cfg.StatsAggregateAt)
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	admins, err := parseAdminIDs(cfg.RawAdminIDs)
	if err != nil {
		return Config{}, err
	}
	cfg.AdminIDs = admins

	return cfg, nil
}

// parseAdminIDs splits a comma-separated list of Telegram user ids, skipping empty items.
func parseAdminIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_IDS entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Validate checks the settings the bot cannot start without.
func (c Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	return nil
}

// IsAdmin reports whether the Telegram user id is in the admin allow-list.
func (c Config) IsAdmin(id int64) bool {
	for _, admin := range c.AdminIDs {
		if admin == id {
			return true
		}
	}
	return false
}
