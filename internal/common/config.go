package common

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	Pipeline PipelineConfig
	Log      LogConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string `validate:"oneof=sqlite postgres"`
	DSN              string `validate:"required"`
	MaxConns         int32  `validate:"gte=1"`
	MinConns         int32  `validate:"gte=0,ltefield=MaxConns"`
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `validate:"required"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Pdftotext           string
	Pdftoppm            string
	Tesseract           string
	Lang                string `validate:"required"`
	DPI                 int    `validate:"gte=72,lte=1200"`
	MaxPages            int    `validate:"gte=0"`
	HeicConverter       string `validate:"omitempty,oneof=heif-convert magick sips"`
	TessdataDir         string
	ArtifactCacheDir    string
	EnableTSVConfidence bool
	PreferSidecar       bool
}

// PipelineConfig holds batch and review settings
type PipelineConfig struct {
	Workers        int           `validate:"gte=1,lte=64"`
	QueueSize      int           `validate:"gte=1"`
	ProcessTimeout time.Duration `validate:"gt=0"`
	RulesPath      string
	InboxDir       string
	OutputPath     string
	Debounce       time.Duration

	HighValue         int64   `validate:"gt=0"`
	DateThreshold     float64 `validate:"gte=0,lte=1"`
	AmountThreshold   float64 `validate:"gte=0,lte=1"`
	CategoryThreshold float64 `validate:"gte=0,lte=1"`
	OCRThreshold      float64 `validate:"gte=0,lte=1"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string `validate:"oneof=debug info warn error"`
	Format     string `validate:"oneof=json text"`
	File       string
	MaxSizeMB  int `validate:"gte=1"`
	MaxBackups int `validate:"gte=0"`
	MaxAgeDays int `validate:"gte=0"`
}

// LoadDotEnv reads .env style files into the process environment. Missing files are
// skipped; variables already set in the environment are never overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return NewAppError(CodeConfig, "load "+p, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "sqlite"),
			DSN:              getEnv("DB_URL", "file:receipts.db?_pragma=busy_timeout(5000)"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
		OCR: OCRConfig{
			Pdftotext:           getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:            getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:           getEnv("TESSERACT_BIN", "tesseract"),
			Lang:                getEnv("OCR_LANG", "jpn"),
			DPI:                 getEnvAsInt("OCR_DPI", 200),
			MaxPages:            getEnvAsInt("OCR_MAX_PAGES", 0),
			HeicConverter:       getEnv("HEIC_CONVERTER", "magick"),
			TessdataDir:         getEnv("TESSDATA_PREFIX", ""),
			ArtifactCacheDir:    getEnv("ARTIFACT_CACHE_DIR", "./tmp"),
			EnableTSVConfidence: getEnvAsBool("OCR_TSV_CONFIDENCE", true),
			PreferSidecar:       getEnvAsBool("OCR_PREFER_SIDECAR", true),
		},
		Pipeline: PipelineConfig{
			Workers:           getEnvAsInt("WORKERS", 4),
			QueueSize:         getEnvAsInt("QUEUE_SIZE", 256),
			ProcessTimeout:    getEnvAsDuration("PROCESS_TIMEOUT", 3*time.Minute),
			RulesPath:         getEnv("RULES_PATH", ""),
			InboxDir:          getEnv("INBOX_DIR", "./inbox"),
			OutputPath:        getEnv("OUTPUT_PATH", "receipts.xlsx"),
			Debounce:          getEnvAsDuration("WATCH_DEBOUNCE", 500*time.Millisecond),
			HighValue:         getEnvAsInt64("HIGH_VALUE_YEN", 50_000),
			DateThreshold:     getEnvAsFloat64("REVIEW_DATE_THRESHOLD", 0.7),
			AmountThreshold:   getEnvAsFloat64("REVIEW_AMOUNT_THRESHOLD", 0.7),
			CategoryThreshold: getEnvAsFloat64("REVIEW_CATEGORY_THRESHOLD", 0.3),
			OCRThreshold:      getEnvAsFloat64("REVIEW_OCR_THRESHOLD", 0.3),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "text"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 7),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the loaded configuration against its struct tags.
func (c *Config) Validate() error {
	if err := ValidateStruct(c); err != nil {
		return NewAppError(CodeConfig, "invalid configuration", err)
	}
	return nil
}
