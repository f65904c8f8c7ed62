package config

import (
	"errors"
	"fmt"
	"os"

	"rentloop/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Exports    ExportConfig     `yaml:"exports"`
	Items      []models.Item    `yaml:"items"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Port           int                `yaml:"port"`
	IdentityHeader string             `yaml:"identity_header"`
	DefaultSize    int                `yaml:"default_page_size"`
	RateLimit      APIRateLimitConfig `yaml:"rate_limit"`
	Auth           APIAuthConfig      `yaml:"auth"`
}

type APIRateLimitConfig struct {
	RPS    float64 `yaml:"rps"`
	Burst  int     `yaml:"burst"`
	Limit  int     `yaml:"limit"`
	Window int     `yaml:"window"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; ignore absence.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Expand environment variables referenced in the YAML before parsing.
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	return ValidateItems(c.Items)
}

// ValidateItems rejects seed items with missing or duplicate ids.
func ValidateItems(items []models.Item) error {
	itemIDs := make(map[int64]bool)
	for _, item := range items {
		if item.ID == 0 {
			return fmt.Errorf("item '%s' has invalid ID 0", item.Name)
		}
		if itemIDs[item.ID] {
			return fmt.Errorf("duplicate item ID found: %d", item.ID)
		}
		itemIDs[item.ID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "rentloop"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.IdentityHeader == "" {
		c.API.IdentityHeader = "X-Sharer-User-Id"
	}
	if c.API.DefaultSize == 0 {
		c.API.DefaultSize = 10
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 20
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 5
	}
	if c.API.RateLimit.Limit == 0 {
		c.API.RateLimit.Limit = 100
	}
	if c.API.RateLimit.Window == 0 {
		c.API.RateLimit.Window = 60
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
