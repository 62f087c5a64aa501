package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

// envFiles are loaded in order; earlier files and the process environment win.
var envFiles = []string{".env", ".env.local"}

// loadEnvFile loads .env/.env.local when present. Missing files are ignored and
// existing process environment variables are never overridden.
func loadEnvFile() error {
	for _, envPath := range envFiles {
		if err := godotenv.Load(envPath); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}
