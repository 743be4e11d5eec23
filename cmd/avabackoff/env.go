package main

import "os"

// Environment variables read as flag defaults.
const (
	envConfigPath = "AVABACKOFF_CONFIG"
)

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
