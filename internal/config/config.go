package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	AppName     = "inferx-console"
	EnvFileName = "config.env"
)

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Errors are ignored since the file may not exist.
func LoadEnvFile() {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return
	}
	_ = godotenv.Load(filepath.Join(configBase, AppName, EnvFileName))
}

type Config struct {
	APIBaseURL string // INFERX_API_URL
	ListenAddr string // INFERX_LISTEN_ADDR
	DBPath     string // INFERX_DB_PATH
	TokenKey   string // INFERX_TOKEN_KEY, passphrase for token encryption
}

// FromEnv reads the configuration from the environment, applying defaults
// for the optional values and failing with one message naming every missing
// required variable.
func FromEnv() (*Config, error) {
	cfg := &Config{
		APIBaseURL: os.Getenv("INFERX_API_URL"),
		ListenAddr: os.Getenv("INFERX_LISTEN_ADDR"),
		DBPath:     os.Getenv("INFERX_DB_PATH"),
		TokenKey:   os.Getenv("INFERX_TOKEN_KEY"),
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:8229"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "inferx-console.db"
	}

	var missing []string
	if cfg.APIBaseURL == "" {
		missing = append(missing, "INFERX_API_URL")
	}
	if cfg.TokenKey == "" {
		missing = append(missing, "INFERX_TOKEN_KEY")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}
