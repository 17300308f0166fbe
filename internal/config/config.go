package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ulule/limiter/v3"
)

type Config struct {
	// HTTP Server
	Port      string
	RateLimit string

	// Ledger
	DataBackend      string
	LedgerCSVPath    string
	SQLiteDBPath     string
	Currency         string
	StrictOperations bool

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	MirrorBackend string

	// Idempotency
	IdempotencyTTL      time.Duration
	IdempotencyCapacity int

	// Session defaults for callers that do not identify themselves
	AppName string

	LogLevel        string
	ShutdownTimeout time.Duration
}

var validBackends = []string{"csv", "memory", "sqlite", "sheets"}

func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8081"),
		RateLimit: getEnv("RATE_LIMIT", "60-M"),

		DataBackend:      getEnv("DATA_BACKEND", "csv"),
		LedgerCSVPath:    getEnv("LEDGER_CSV_PATH", "expenses.csv"),
		SQLiteDBPath:     getEnv("SQLITE_DB_PATH", "./data/bookkeeper.db"),
		Currency:         getEnv("LEDGER_CURRENCY", "RM"),
		StrictOperations: getEnvBool("LEDGER_STRICT_OPERATIONS", false),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "bookkeeper"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transactions_recorded"),

		MirrorBackend: getEnv("MIRROR_BACKEND", "sheets"),

		IdempotencyTTL:      getEnvDuration("IDEMPOTENCY_TTL", 10*time.Minute),
		IdempotencyCapacity: getEnvInt("IDEMPOTENCY_CAPACITY", 1000),

		AppName: getEnv("APP_NAME", "Bookkeeper_App"),

		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if _, err := limiter.NewRateFromFormatted(c.RateLimit); err != nil {
		errors = append(errors, fmt.Sprintf("invalid rate limit '%s': %v", c.RateLimit, err))
	}

	errors = append(errors, c.validateBackend("data backend", c.DataBackend)...)

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if strings.TrimSpace(c.Currency) == "" {
		errors = append(errors, "ledger currency label cannot be empty")
	}

	if c.IdempotencyTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid idempotency TTL %v: must not be negative", c.IdempotencyTTL))
	}
	if c.IdempotencyCapacity < 1 {
		errors = append(errors, fmt.Sprintf("invalid idempotency capacity %d: must be at least 1", c.IdempotencyCapacity))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateMirror checks the settings the mirror worker needs on top of Validate.
func (c *Config) ValidateMirror() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required for the mirror worker")
	}
	if c.MirrorBackend == c.DataBackend {
		errors = append(errors, fmt.Sprintf("mirror backend '%s' must differ from data backend", c.MirrorBackend))
	}
	errors = append(errors, c.validateBackend("mirror backend", c.MirrorBackend)...)
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateBackend(label, backend string) []string {
	var errors []string

	isValidBackend := false
	for _, b := range validBackends {
		if backend == b {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		return []string{fmt.Sprintf("invalid %s '%s': must be one of %v", label, backend, validBackends)}
	}

	switch backend {
	case "csv":
		if c.LedgerCSVPath == "" {
			errors = append(errors, "ledger CSV path cannot be empty when using csv backend")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}
		if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}
	return errors
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
