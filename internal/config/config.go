package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/varsharma-code/AI-Challenge-Backend/internal/llm"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is not set
const DefaultPath = "configs/config.yml"

// Config holds application configuration
type Config struct {
	Server struct {
		Port      string `yaml:"port"`
		RateLimit struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`

	Auth struct {
		// Empty secret leaves the write routes open
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`

	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`

	// Multiple providers configuration
	Providers []llm.ProviderConfig `yaml:"providers"`

	// Legacy single provider config (fallback)
	Gemini struct {
		APIKey     string `yaml:"api_key"`
		ModelName  string `yaml:"model_name"`
		MaxRetries int    `yaml:"max_retries"`
	} `yaml:"gemini"`

	MaxFailuresBeforeSwitch int `yaml:"max_failures_before_switch"`

	Database struct {
		Type       string `yaml:"type"` // "mongo" or "sqlite"
		URI        string `yaml:"uri"`
		Name       string `yaml:"name"`
		Collection string `yaml:"collection"`
		Path       string `yaml:"path"`
	} `yaml:"database"`

	Orchestrator OrchestratorConfig `yaml:"orchestrator"`

	Pipeline struct {
		CallDelay        time.Duration `yaml:"call_delay"`
		MaxArticleTokens int           `yaml:"max_article_tokens"`
	} `yaml:"pipeline"`

	Scheduler struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"scheduler"`
}

// OrchestratorConfig describes the upstream queue and job API
type OrchestratorConfig struct {
	URL          string        `yaml:"url"`
	IdentityURL  string        `yaml:"identity_url"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	Scopes       string        `yaml:"scopes"`
	QueueID      string        `yaml:"queue_id"`
	FolderID     string        `yaml:"folder_id"`
	ReleaseKey   string        `yaml:"release_key"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Path returns the config file location, honouring CONFIG_PATH
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// LoadConfig loads configuration from a YAML file. A .env file next to the
// working directory is loaded first so ${VAR} references resolve.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.setDefaults()

	return config, nil
}

func (c *Config) setDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "3000"
	}

	if c.Server.RateLimit.RequestsPerSecond == 0 {
		c.Server.RateLimit.RequestsPerSecond = 100
	}

	if c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = 200
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Gemini.ModelName == "" {
		c.Gemini.ModelName = "gemini-2.5-flash"
	}

	if c.Gemini.MaxRetries == 0 {
		c.Gemini.MaxRetries = 1
	}

	if c.MaxFailuresBeforeSwitch == 0 {
		c.MaxFailuresBeforeSwitch = 3
	}

	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}

	if c.Database.Path == "" {
		c.Database.Path = "./data/threats.db"
	}

	if c.Database.Name == "" {
		c.Database.Name = "threatintel"
	}

	if c.Database.Collection == "" {
		c.Database.Collection = "threats"
	}

	if c.Orchestrator.Scopes == "" {
		c.Orchestrator.Scopes = "OR.Queues OR.Jobs"
	}

	if c.Orchestrator.MaxRetries == 0 {
		c.Orchestrator.MaxRetries = 3
	}

	if c.Orchestrator.RetryDelay == 0 {
		c.Orchestrator.RetryDelay = 2 * time.Second
	}

	if c.Orchestrator.Timeout == 0 {
		c.Orchestrator.Timeout = 30 * time.Second
	}

	if c.Pipeline.CallDelay == 0 {
		c.Pipeline.CallDelay = time.Second
	}
}
