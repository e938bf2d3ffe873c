// Package config provides configuration for assistdesk.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// EnvMode is the environment variable name for mode selection.
	EnvMode = "ASSISTDESK_MODE"
	// ModeMock selects the in-memory platform client.
	ModeMock = "MOCK"

	// EnvAPIKey carries the platform bearer token. The call helper reads it too.
	EnvAPIKey = "VAPI_API_KEY"

	DefaultBaseURL = "https://api.vapi.ai"

	// DefaultHTTPHost keeps the dashboard API on the operator's machine.
	DefaultHTTPHost = "127.0.0.1"
)

// Config holds the assistdesk configuration.
type Config struct {
	// Platform
	APIKey      string
	BaseURL     string
	HTTPTimeout time.Duration
	CacheTTL    time.Duration
	Mode        string

	// Server settings
	HTTPHost       string
	HTTPPort       int
	AllowedOrigins []string

	// Call sessions
	CallStopTimeout  time.Duration
	CallPollInterval time.Duration
	CallOutputLines  int
	CallHelperCmd    string

	// Data
	AgentCatalogPath string
	HistoryDSN       string
	GuardPolicyPath  string

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadEnvFile loads variables from a dotenv file without overriding the
// environment. A missing default file is not an error.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		APIKey:           strings.TrimSpace(os.Getenv(EnvAPIKey)),
		BaseURL:          getEnv("VAPI_BASE_URL", DefaultBaseURL),
		HTTPTimeout:      time.Duration(getEnvInt("HTTP_TIMEOUT_MS", 30000)) * time.Millisecond,
		CacheTTL:         time.Duration(getEnvInt("ASSISTANT_CACHE_TTL_MS", 300000)) * time.Millisecond,
		Mode:             getEnv(EnvMode, ""),
		HTTPHost:         getEnv("HTTP_HOST", DefaultHTTPHost),
		HTTPPort:         getEnvInt("HTTP_PORT", 8080),
		AllowedOrigins:   getEnvList("HTTP_ALLOWED_ORIGINS"),
		CallStopTimeout:  time.Duration(getEnvInt("CALL_STOP_TIMEOUT_MS", 10000)) * time.Millisecond,
		CallPollInterval: time.Duration(getEnvInt("CALL_POLL_INTERVAL_MS", 1000)) * time.Millisecond,
		CallOutputLines:  getEnvInt("CALL_OUTPUT_LINES", 200),
		CallHelperCmd:    getEnv("CALL_HELPER_COMMAND", ""),
		AgentCatalogPath: getEnv("AGENT_CATALOG_PATH", "agents.yaml"),
		HistoryDSN:       getEnv("HISTORY_DSN", ":memory:"),
		GuardPolicyPath:  getEnv("GUARD_POLICY_PATH", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "auto"),
	}
	return cfg
}

// MockMode reports whether the in-memory platform client is selected.
func (c *Config) MockMode() bool {
	return strings.EqualFold(c.Mode, ModeMock)
}

// ConfigurationError reports a missing or unusable setting.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Key, e.Reason)
}

// ValidateCredentials checks the API key before any request is made.
// Mock mode needs no credential.
func (c *Config) ValidateCredentials() error {
	if c.MockMode() {
		return nil
	}
	return CheckAPIKey(c.APIKey)
}

// CheckAPIKey rejects empty and placeholder keys.
func CheckAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return &ConfigurationError{Key: EnvAPIKey, Reason: "is not set"}
	}
	if IsPlaceholder(key) {
		return &ConfigurationError{Key: EnvAPIKey, Reason: "is a placeholder value"}
	}
	return nil
}

var placeholderValues = map[string]bool{
	"your-api-key":     true,
	"your_api_key":     true,
	"your-vapi-api-key": true,
	"changeme":         true,
	"change-me":        true,
	"todo":             true,
}

// IsPlaceholder reports whether v looks like a template value rather than a
// real credential or identifier.
func IsPlaceholder(v string) bool {
	lower := strings.ToLower(strings.TrimSpace(v))
	if lower == "" {
		return false
	}
	if placeholderValues[lower] {
		return true
	}
	if strings.Contains(lower, "placeholder") {
		return true
	}
	if strings.HasPrefix(lower, "<") && strings.HasSuffix(lower, ">") {
		return true
	}
	if strings.HasPrefix(lower, "xxx") {
		return true
	}
	return false
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// getEnvList splits a comma separated variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
