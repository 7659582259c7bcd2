package envutil

import "os"

// Get retrieves an environment variable with automatic MEDIBOOK_ prefix fallback.
// It checks for the environment variable in this order:
// 1. Exact key as provided
// 2. Key with MEDIBOOK_ prefix
// 3. Returns fallback if neither exists
//
// This supports both hosted (MEDIBOOK_ prefixed) and local dev (unprefixed) configurations.
func Get(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	if len(key) < 9 || key[:9] != "MEDIBOOK_" {
		if value, exists := os.LookupEnv("MEDIBOOK_" + key); exists {
			return value
		}
	}

	return fallback
}
