package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	localDBPath          = ".guildq/guildq.db"
	defaultImportTimeout = 30 * time.Second
)

// Config represents the application configuration
type Config struct {
	DBPath             string        `yaml:"db_path" env:"GUILDQ_DB_PATH"`
	LogLevel           string        `yaml:"log_level" env:"GUILDQ_LOG_LEVEL"`
	LogFormat          string        `yaml:"log_format" env:"GUILDQ_LOG_FORMAT"`
	Output             string        `yaml:"output" env:"GUILDQ_OUTPUT"`
	GoalLibraryURL     string        `yaml:"goal_library_url" env:"GUILDQ_GOAL_LIBRARY_URL"`
	ChannelWebhookURLs []string      `yaml:"channel_webhook_urls" env:"GUILDQ_CHANNEL_WEBHOOK_URLS" envSeparator:","`
	ImportTimeout      time.Duration `yaml:"import_timeout" env:"GUILDQ_IMPORT_TIMEOUT"`
	DaemonAddr         string        `yaml:"daemon_addr" env:"GUILDQD_ADDR"`
	DaemonToken        string        `yaml:"daemon_token" env:"GUILDQD_TOKEN"`
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/guildq/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:      "warn",
		LogFormat:     "text",
		Output:        "table",
		ImportTimeout: defaultImportTimeout,
		DaemonAddr:    "127.0.0.1:7420",
	}

	// Load .env.local if it exists (walking up parent directories)
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	// YAML config is optional; a missing file is not an error
	if err := loadYAMLConfig(cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if os.Getenv("GUILDQ_DB_PATH") == "" {
		if dbPath := getEnvOrFile("GUILDQ_DB_PATH", "GUILDQ_DB_PATH_FILE"); dbPath != "" {
			cfg.DBPath = dbPath
		}
	}

	cfg.ChannelWebhookURLs = compact(cfg.ChannelWebhookURLs)
	if cfg.ImportTimeout <= 0 {
		cfg.ImportTimeout = defaultImportTimeout
	}

	// Set defaults if not configured
	if cfg.DBPath == "" {
		// Check for project-local database first
		if _, err := os.Stat(localDBPath); err == nil {
			cfg.DBPath = localDBPath
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			cfg.DBPath = filepath.Join(homeDir, ".local", "share", "guildq", "guildq.db")
		}
	}

	return cfg, nil
}

// loadYAMLConfig loads configuration from ~/.config/guildq/config.yaml
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(homeDir, ".config", "guildq", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	return ""
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
// Returns the path to .env.local if found, empty string otherwise.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		if dir == homeDir {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
