// Package util provides small shared helpers for LeadPipe.
package util

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// ParseBoolEnv reads an environment variable as a boolean with a default.
// Accepts true/1/yes/on and false/0/no/off (case-insensitive). Unset or
// unrecognized values fall back to defaultValue.
func ParseBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		slog.Warn("util.ParseBoolEnv: unrecognized boolean value, using default", "key", key, "value", value, "default", defaultValue)
		return defaultValue
	}
}

// ParseIntEnv reads an environment variable as an integer with a default.
func ParseIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		slog.Warn("util.ParseIntEnv: unparseable integer value, using default", "key", key, "value", value, "default", defaultValue)
		return defaultValue
	}
	return parsed
}
