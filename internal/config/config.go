// Package config loads the keylybot TOML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath            = "config.toml"
	DefaultHTTPAddr              = ":8080"
	DefaultPGHost                = "127.0.0.1"
	DefaultPGPort                = 5432
	DefaultPGUser                = "postgres"
	DefaultPGDatabase            = "keylybot"
	DefaultPGSSLMode             = "disable"
	DefaultSessionTimeoutMinutes = 30
	DefaultSweepSchedule         = "@every 10m"
	DefaultDedupCapacity         = 1000
	DefaultOpenAIBaseURL         = "https://api.openai.com/v1"
	DefaultVisionModel           = "gpt-4o"
	DefaultTranscriptionModel    = "whisper-1"
	DefaultSheetRange            = "Listings!A:J"
	DefaultAttachmentTimeout     = 30
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Telegram TelegramConfig `toml:"telegram"`
	Postgres PostgresConfig `toml:"postgres"`
	Session  SessionConfig  `toml:"session"`
	OpenAI   OpenAIConfig   `toml:"openai"`
	Storage  StorageConfig  `toml:"storage"`
	Sheets   SheetsConfig   `toml:"sheets"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type TelegramConfig struct {
	BotToken string `toml:"bot_token" validate:"required"`
	// WebhookSecret is compared against the X-Telegram-Bot-Api-Secret-Token
	// header on inbound updates. Optional; empty disables the check.
	WebhookSecret string `toml:"webhook_secret"`
}

type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

type SessionConfig struct {
	TimeoutMinutes int    `toml:"timeout_minutes"`
	SweepSchedule  string `toml:"sweep_schedule"`
	DedupCapacity  int    `toml:"dedup_capacity"`
}

type OpenAIConfig struct {
	APIKey             string `toml:"api_key" validate:"required"`
	BaseURL            string `toml:"base_url"`
	VisionModel        string `toml:"vision_model"`
	TranscriptionModel string `toml:"transcription_model"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
}

type StorageConfig struct {
	Bucket string `toml:"bucket" validate:"required"`
	// CredentialsFile is a service-account JSON path. Empty uses ADC.
	CredentialsFile string `toml:"credentials_file"`
}

type SheetsConfig struct {
	SpreadsheetID   string `toml:"spreadsheet_id" validate:"required"`
	Range           string `toml:"range"`
	CredentialsFile string `toml:"credentials_file"`
}

// SessionTimeout returns the configured session inactivity timeout.
func (c SessionConfig) SessionTimeout() time.Duration {
	minutes := c.TimeoutMinutes
	if minutes <= 0 {
		minutes = DefaultSessionTimeoutMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// Load reads the config file at path, falling back to defaults for any
// missing section. A missing file is not an error; Validate decides whether
// the result is usable.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Session: SessionConfig{
			TimeoutMinutes: DefaultSessionTimeoutMinutes,
			SweepSchedule:  DefaultSweepSchedule,
			DedupCapacity:  DefaultDedupCapacity,
		},
		OpenAI: OpenAIConfig{
			BaseURL:            DefaultOpenAIBaseURL,
			VisionModel:        DefaultVisionModel,
			TranscriptionModel: DefaultTranscriptionModel,
			TimeoutSeconds:     DefaultAttachmentTimeout,
		},
		Sheets: SheetsConfig{
			Range: DefaultSheetRange,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks that all required external credentials are present.
// A failure here is fatal and prevents startup.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	return nil
}
