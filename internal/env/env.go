package env

import (
	"errors"
	"io/fs"
	"os"

	cenv "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// LoadDotEnv reads KEY=VALUE pairs from the given files (".env" when none is
// given) into the process environment. Variables already set win, and a
// missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// Parse fills dst from the environment using `env` and `envDefault` struct tags.
func Parse(dst any) error {
	return cenv.Parse(dst)
}

// GetString returns the value of key, or fallback when it is unset.
func GetString(key, fallback string) string {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return val
}
