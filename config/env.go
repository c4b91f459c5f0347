package config

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv reads .env (or the files in ENV_FILE) into the process environment.
// Variables already set win. A missing file is fine; production injects env directly.
func LoadEnv() {
	files := []string{".env"}
	if f := os.Getenv("ENV_FILE"); f != "" {
		files = []string{f}
	}
	if err := godotenv.Load(files...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		log.Printf("load env: %v", err)
	}
}
