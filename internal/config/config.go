package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"modport/internal/jsast"
)

type Config struct {
	Project struct {
		Root    string   `yaml:"root"`
		Loader  string   `yaml:"loader"` // forge, fabric, or empty for auto-detect
		Include []string `yaml:"include"`
		Exclude []string `yaml:"exclude"`
	} `yaml:"project"`
	Output struct {
		Dir         string              `yaml:"dir"`
		Database    string              `yaml:"database"`
		Report      string              `yaml:"report"`
		EntryFile   string              `yaml:"entry_file"`
		InlineModel bool                `yaml:"inline_model"`
		Format      jsast.FormatOptions `yaml:"format"`
	} `yaml:"output"`
	AI struct {
		Provider string `yaml:"provider"`
		Model    string `yaml:"model"`
		APIKey   string `yaml:"api_key"`
		BaseURL  string `yaml:"base_url"`
	} `yaml:"ai"`
	Translation struct {
		ConfidenceThreshold float64 `yaml:"confidence_threshold"`
		MaxIterations       int     `yaml:"max_iterations"`
		Timeout             string  `yaml:"timeout"` // e.g. 2m
		Workers             int     `yaml:"workers"`
		SegmentWorkers      int     `yaml:"segment_workers"`
		TargetVersion       string  `yaml:"target_version"`
		MappingsFile        string  `yaml:"mappings_file"`
	} `yaml:"translation"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	var cfg Config
	cfg.Project.Root = "."
	cfg.Output.Dir = "bedrock_out"
	cfg.Output.Database = "modport.db"
	cfg.Output.Report = "translation_report.json"
	cfg.Output.EntryFile = "main.js"
	cfg.Output.Format = jsast.DefaultFormatOptions()
	cfg.Translation.ConfidenceThreshold = 0.8
	cfg.Translation.MaxIterations = 3
	cfg.Translation.Timeout = "2m"
	cfg.Translation.Workers = 4
	return &cfg
}

// LoadConfig reads a YAML config over the defaults. An empty path means
// defaults only. Environment variables override the file in either case.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := DefaultConfig()

	// 2. Load YAML config
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, err
		}
	}

	// 3. Override with Environment Variables if present
	if apiKey := os.Getenv("MODPORT_API_KEY"); apiKey != "" {
		cfg.AI.APIKey = apiKey
	}
	if provider := os.Getenv("MODPORT_AI_PROVIDER"); provider != "" {
		cfg.AI.Provider = provider
	}
	if model := os.Getenv("MODPORT_AI_MODEL"); model != "" {
		cfg.AI.Model = model
	}
	if baseURL := os.Getenv("MODPORT_AI_BASE_URL"); baseURL != "" {
		cfg.AI.BaseURL = baseURL
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Project.Root == "" {
		return fmt.Errorf("project.root is required")
	}

	switch c.Project.Loader {
	case "", "forge", "fabric":
	default:
		return fmt.Errorf("unknown loader %q: expected forge or fabric", c.Project.Loader)
	}

	if c.Translation.ConfidenceThreshold < 0 || c.Translation.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be between 0 and 1")
	}

	if c.Translation.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must not be negative")
	}

	if c.Translation.Timeout != "" {
		d, err := time.ParseDuration(c.Translation.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout format: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
	}

	return nil
}

// TimeoutDuration parses the translation timeout; empty or invalid values
// come back as 0 (no limit). Validate reports invalid values.
func (c *Config) TimeoutDuration() time.Duration {
	if c.Translation.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Translation.Timeout)
	if err != nil {
		return 0
	}
	return d
}
