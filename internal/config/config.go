package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

const DefaultModel = "gemini-2.0-flash-exp-image-generation"

// Config holds all configuration for the application
type Config struct {
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL"`
	PromptFile   string `env:"PROMPT_FILE"`

	Port               string   `env:"PORT" envDefault:"8080"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE" envDefault:"10"`

	TempDir           string        `env:"TEMP_DIR"`
	MaxUploadBytes    int64         `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"120s"`

	ResultTTL       time.Duration `env:"RESULT_TTL" envDefault:"30m"`
	ResultSweepSpec string        `env:"RESULT_SWEEP_SPEC" envDefault:"@every 1m"`
	// аудио и картинки всех живых результатов вместе, 0: без ограничения
	ResultMaxBytes int64 `env:"RESULT_MAX_BYTES" envDefault:"536870912"`

	TelegramBotToken     string  `env:"TELEGRAM_BOT_TOKEN"`
	TelegramAdminChatIDs []int64 `env:"TELEGRAM_ADMIN_CHAT_IDS" envSeparator:","`
}

// Load loads .env (if present) and parses environment variables into Config.
func Load() (*Config, error) {
	// .env может отсутствовать, это нормально
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if strings.TrimSpace(cfg.GeminiModel) == "" {
		cfg.GeminiModel = DefaultModel
	}
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	// один результат: само аудио плюс четыре картинки
	if cfg.ResultMaxBytes > 0 && cfg.ResultMaxBytes < 2*cfg.MaxUploadBytes {
		return nil, fmt.Errorf("RESULT_MAX_BYTES must be at least twice MAX_UPLOAD_BYTES")
	}
	if cfg.TelegramBotToken != "" && len(cfg.TelegramAdminChatIDs) == 0 {
		return nil, fmt.Errorf("TELEGRAM_ADMIN_CHAT_IDS is required when TELEGRAM_BOT_TOKEN is set")
	}

	return &cfg, nil
}

// Prompt returns the prompt override from PROMPT_FILE, or "" to use the built-in one.
func (c *Config) Prompt() (string, error) {
	if c.PromptFile == "" {
		return "", nil
	}
	b, err := os.ReadFile(c.PromptFile)
	if err != nil {
		return "", fmt.Errorf("read prompt file: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
