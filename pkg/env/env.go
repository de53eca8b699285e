package env

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads the nearest .env file, walking up from the working
// directory. Variables already present in the environment win. It returns
// the path that was loaded, or "" when no file was found.
func LoadDotEnv() (string, error) {
	envFile := findEnvFile()
	if envFile == "" {
		return "", nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return "", fmt.Errorf("error loading .env file: %w", err)
	}
	return envFile, nil
}

// findEnvFile looks for a .env file in the current directory and its parent directories
func findEnvFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		parentDir := filepath.Dir(dir)
		if parentDir == dir {
			break
		}
		dir = parentDir
	}

	return ""
}

// GetEnvWithDefault gets an environment variable with a default value
func GetEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
