package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP (report job queue)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Reports
	ReportsDir string

	// Google Sheets export (optional)
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Worker
	ReportInterval time.Duration

	// Backend selection
	DataBackend string

	// Analytics heuristics (open calibration parameters)
	TopCategories      int
	AmountTolerancePct float64
	WeeklyJitterDays   int
	MonthlyJitterDays  int
	MinOccurrences     int
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8082"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/spendlens.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "spendlens"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "report_requests"),

		ReportsDir: getEnv("REPORTS_DIR", "./reports"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Summary"),

		ReportInterval: getEnvDuration("REPORT_INTERVAL", 24*time.Hour),

		DataBackend: getEnv("DATA_BACKEND", "memory"),

		TopCategories:      getEnvInt("TOP_CATEGORIES", 5),
		AmountTolerancePct: getEnvFloat("AMOUNT_TOLERANCE_PCT", 0.05),
		WeeklyJitterDays:   getEnvInt("WEEKLY_JITTER_DAYS", 2),
		MonthlyJitterDays:  getEnvInt("MONTHLY_JITTER_DAYS", 5),
		MinOccurrences:     getEnvInt("MIN_OCCURRENCES", 3),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
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
	}

	// Validate AMQP URL if provided
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

	if c.ReportsDir == "" {
		errors = append(errors, "reports directory cannot be empty")
	}

	if c.ReportInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid report interval %v: must be at least 1 minute", c.ReportInterval))
	} else if c.ReportInterval > 7*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid report interval %v: must be at most 7 days", c.ReportInterval))
	}

	// Validate analytics heuristics
	if c.TopCategories < 1 || c.TopCategories > 50 {
		errors = append(errors, fmt.Sprintf("invalid top categories %d: must be between 1 and 50", c.TopCategories))
	}
	if c.AmountTolerancePct <= 0 || c.AmountTolerancePct >= 1 {
		errors = append(errors, fmt.Sprintf("invalid amount tolerance %v: must be between 0 and 1 exclusive", c.AmountTolerancePct))
	}
	if c.WeeklyJitterDays < 0 || c.WeeklyJitterDays > 3 {
		errors = append(errors, fmt.Sprintf("invalid weekly jitter %d: must be between 0 and 3 days", c.WeeklyJitterDays))
	}
	if c.MonthlyJitterDays < 0 || c.MonthlyJitterDays > 10 {
		errors = append(errors, fmt.Sprintf("invalid monthly jitter %d: must be between 0 and 10 days", c.MonthlyJitterDays))
	}
	if c.MinOccurrences < 2 {
		errors = append(errors, fmt.Sprintf("invalid minimum occurrences %d: must be at least 2", c.MinOccurrences))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
