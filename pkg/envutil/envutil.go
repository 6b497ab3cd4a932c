// Package envutil reads typed, bounded values from environment variables.
package envutil

import (
	"os"
	"strconv"
	"strings"

	"github.com/dfandrich/testclutch-curl-web/pkg/logger"
)

// GetIntFromEnv returns the integer value of the named variable when it is set
// and lies within [minValue, maxValue]. Unset, unparsable or out-of-range values
// fall back to defaultValue; the rejection is written to log.
func GetIntFromEnv(name string, defaultValue, minValue, maxValue int, log *logger.Logger) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Ignoring %s=%q: not an integer", name, raw)
		return defaultValue
	}
	if v < minValue || v > maxValue {
		log.Printf("Ignoring %s=%d: outside [%d, %d]", name, v, minValue, maxValue)
		return defaultValue
	}
	log.Printf("Using %s=%d", name, v)
	return v
}

// GetBoolFromEnv returns the boolean value of the named variable, accepting the
// forms strconv.ParseBool understands plus yes/no and on/off.
func GetBoolFromEnv(name string, defaultValue bool, log *logger.Logger) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	switch raw {
	case "":
		return defaultValue
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("Ignoring %s=%q: not a boolean", name, raw)
		return defaultValue
	}
	return v
}

// GetStringFromEnv returns the trimmed value of the named variable, or
// defaultValue when it is unset or blank.
func GetStringFromEnv(name, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return defaultValue
}
