package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
	"github.com/robfig/cron/v3"

	"intent-chatter/internal/classifier"
)

type LogBackend string

const (
	BackendCSV    LogBackend = "csv"
	BackendSQLite LogBackend = "sqlite"
)

type Config struct {
	// Corpus and model artifacts
	CorpusPath     string  `env:"CHATBOT_CORPUS_PATH" envDefault:"data/intents.json"`
	ModelPath      string  `env:"CHATBOT_MODEL_PATH" envDefault:"data/chatbot_model.gob"`
	VectorizerPath string  `env:"CHATBOT_VECTORIZER_PATH" envDefault:"data/vectorizer.gob"`
	MaxIter        int     `env:"CHATBOT_MAX_ITER" envDefault:"10000"`
	C              float64 `env:"CHATBOT_C" envDefault:"1.0"`

	// 0 picks a time-based seed
	ResponseSeed int64 `env:"CHATBOT_RESPONSE_SEED" envDefault:"0"`

	// Conversation log
	LogBackend  LogBackend `env:"CHATBOT_LOG_BACKEND" envDefault:"csv"`
	LogFilePath string     `env:"CHATBOT_LOG_FILE" envDefault:"chat_log.csv"`
	SQLitePath  string     `env:"CHATBOT_SQLITE_PATH" envDefault:"data/chat_log.db"`

	// Application log used by the terminal UI
	AppLogPath string `env:"CHATBOT_APP_LOG" envDefault:"logs/chatbot.log"`

	// Telegram
	TelegramBotToken string  `env:"TELEGRAM_BOT_TOKEN"`
	AllowedUsers     []int64 `env:"ALLOWED_USERS" envSeparator:":"`
	AdminUserID      int64   `env:"ADMIN_USER"`
	HistoryLimit     int     `env:"TELEGRAM_HISTORY_LIMIT" envDefault:"20"`
	ReportSchedule   string  `env:"REPORT_SCHEDULE" envDefault:"0 21 * * *"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.LogBackend {
	case BackendCSV, BackendSQLite:
	default:
		return fmt.Errorf("unknown log backend %q", c.LogBackend)
	}
	if c.CorpusPath == "" {
		return fmt.Errorf("CHATBOT_CORPUS_PATH must not be empty")
	}
	if c.ModelPath == "" || c.VectorizerPath == "" {
		return fmt.Errorf("model artifact paths must not be empty")
	}
	if c.ModelPath == c.VectorizerPath {
		return fmt.Errorf("model and vectorizer must be stored in different files")
	}
	if c.MaxIter <= 0 {
		return fmt.Errorf("CHATBOT_MAX_ITER must be positive, got %d", c.MaxIter)
	}
	if c.C <= 0 {
		return fmt.Errorf("CHATBOT_C must be positive, got %g", c.C)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("TELEGRAM_HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	}
	if c.ReportSchedule != "" {
		if _, err := cron.ParseStandard(c.ReportSchedule); err != nil {
			return fmt.Errorf("invalid REPORT_SCHEDULE %q: %w", c.ReportSchedule, err)
		}
	}
	return nil
}

func (c *Config) ModelPaths() classifier.Paths {
	return classifier.Paths{Vectorizer: c.VectorizerPath, Classifier: c.ModelPath}
}

func (c *Config) TrainOptions() classifier.Options {
	return classifier.Options{C: c.C, MaxIter: c.MaxIter}
}
