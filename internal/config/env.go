package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// lookupEnv returns the trimmed value of key and whether it was set to
// anything but blanks.
func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

// GetEnvString returns the value of key, or fallback when it is unset or blank.
func GetEnvString(key, fallback string) string {
	if value, ok := lookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetEnvInt returns key parsed as an integer. Unparseable values are logged
// and ignored.
func GetEnvInt(key string, fallback int) int {
	value, ok := lookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-integer environment value")
		return fallback
	}
	return n
}

// GetEnvList splits key on commas, dropping blank entries.
func GetEnvList(key string, fallback []string) []string {
	value, ok := lookupEnv(key)
	if !ok {
		return fallback
	}
	var list []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}
	if len(list) == 0 {
		return fallback
	}
	return list
}
