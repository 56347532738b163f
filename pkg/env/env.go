// Package env reads process settings that are needed before config.Load runs.
package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// Lower is Get with the result lower-cased, for enum-like settings such as LOG_FORMAT.
func Lower(key, fallback string) string {
	return strings.ToLower(Get(key, fallback))
}
