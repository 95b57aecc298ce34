package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv layers env files into the process environment before the config
// is read. Variables already set in the OS environment are never overridden,
// and .env.local shadows .env so per-developer secrets stay out of the shared
// file. Returns the files that were found.
func LoadDotEnv() []string {
	var found []string
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err == nil {
			found = append(found, name)
		}
	}
	if len(found) > 0 {
		_ = godotenv.Load(found...)
	}
	return found
}
