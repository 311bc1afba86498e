package util

import (
	"os"
	"strconv"

	"github.com/latticekg/lattice/pkg/logger"

	"github.com/joho/godotenv"
)

// LoadEnv loads a .env file from the working directory when present.
// Missing files are fine; the process environment always wins.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using system environment variables")
	}
}

// GetEnv returns the variable's value, or "" when unset.
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetEnvString returns the variable's value, or defaultValue when unset.
func GetEnvString(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

// GetEnvInt parses the variable as an int. Unset or unparseable values
// fall back to defaultValue.
func GetEnvInt(key string, defaultValue int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logger.Warn("Ignoring non-integer environment value", "key", key, "value", value)
		return defaultValue
	}
	return parsed
}

// GetEnvBool parses the variable as a bool. Only the literal forms
// accepted by strconv.ParseBool count; anything else falls back to
// defaultValue.
func GetEnvBool(key string, defaultValue bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logger.Warn("Ignoring non-boolean environment value", "key", key, "value", value)
		return defaultValue
	}
	return parsed
}
