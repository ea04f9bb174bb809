package config

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// GetEnvString returns the value of an environment variable or the default value if not set.
//
// This function does not perform validation and does not log warnings.
// It is suitable for simple string configuration values.
//
// Parameters:
//   - key: Environment variable name
//   - defaultValue: Value to return if the environment variable is not set or empty
//
// Returns:
//   - string: The environment variable value or defaultValue
//
// Example:
//
//	addr := GetEnvString("METRICS_ADDR", "127.0.0.1:5000")
func GetEnvString(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvDuration returns the value of an environment variable as a time.Duration.
//
// The value must be parseable by time.ParseDuration (e.g., "1m", "30s", "1h30m").
//
// If the environment variable is not set, empty, or cannot be parsed,
// this function returns the default value and logs a warning.
//
// Parameters:
//   - key: Environment variable name
//   - defaultValue: Value to return on error or if not set
//
// Returns:
//   - time.Duration: The parsed duration value or defaultValue
//
// Example:
//
//	runtime := GetEnvDuration("DEMO_RUNTIME", 5*time.Second)
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		slog.Warn("invalid duration value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", valueStr),
			slog.String("default", defaultValue.String()),
			slog.String("error", err.Error()))
		return defaultValue
	}

	return value
}

// GetEnvStringList returns a comma-separated list of strings from an environment variable.
//
// The values are trimmed of whitespace. Empty values are filtered out.
//
// If the environment variable is not set or empty, this function returns the default value.
//
// Parameters:
//   - key: Environment variable name
//   - defaultValue: Value to return if the environment variable is not set
//
// Returns:
//   - []string: The parsed list of strings or defaultValue
//
// Example:
//
//	feeds := GetEnvStringList("DEMO_FEEDS", []string{"go-blog"})
//	// DEMO_FEEDS="go-blog, releases, security"
//	// Result: ["go-blog", "releases", "security"]
func GetEnvStringList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}

// GetEnvStringMap returns comma-separated key=value pairs from an environment variable.
//
// Each entry is split on the first "=". Keys and values are trimmed of whitespace.
// Entries without a "=" and entries with an empty key are dropped; an empty value
// after the "=" is kept.
//
// If the environment variable is not set or no valid pairs remain, this function
// returns the default value.
//
// Parameters:
//   - key: Environment variable name
//   - defaultValue: Value to return if the environment variable is not set
//
// Returns:
//   - map[string]string: The parsed pairs or defaultValue
//
// Example:
//
//	labels := GetEnvStringMap("METRICS_LABELS", nil)
//	// METRICS_LABELS="region=eu-west-1,instance=feed-1"
//	// Result: {"region": "eu-west-1", "instance": "feed-1"}
func GetEnvStringMap(key string, defaultValue map[string]string) map[string]string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	pairs := strings.Split(valueStr, ",")
	result := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		result[k] = strings.TrimSpace(v)
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
