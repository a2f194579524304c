package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Minio    MinioConfig    `yaml:"minio"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	BigQuery BigQueryConfig `yaml:"bigquery"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Gate     GateConfig     `yaml:"gate"`
}

type ServerConfig struct {
	Port        int `yaml:"port"`
	MaxUploadMB int `yaml:"max_upload_mb"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type GeminiConfig struct {
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	MaxRetries     int    `yaml:"max_retries"`
	BackoffBaseSec int    `yaml:"backoff_base_sec"`
}

type BigQueryConfig struct {
	ProjectID string `yaml:"project_id"`
	Dataset   string `yaml:"dataset"`
	Table     string `yaml:"table"`
}

type PipelineConfig struct {
	MaxConcurrent    int `yaml:"max_concurrent"`
	CallTimeoutSec   int `yaml:"call_timeout_sec"`
	ReviewTTLMinutes int `yaml:"review_ttl_minutes"`
}

type GateConfig struct {
	// ExtraDenyKeywords are appended to the built-in statement denylist.
	ExtraDenyKeywords []string `yaml:"extra_deny_keywords"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 25
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.5-flash"
	}
	if cfg.Gemini.MaxRetries == 0 {
		cfg.Gemini.MaxRetries = 2
	}
	if cfg.Gemini.BackoffBaseSec == 0 {
		cfg.Gemini.BackoffBaseSec = 2
	}
	if cfg.Pipeline.MaxConcurrent == 0 {
		cfg.Pipeline.MaxConcurrent = 9
	}
	if cfg.Pipeline.CallTimeoutSec == 0 {
		cfg.Pipeline.CallTimeoutSec = 120
	}
	if cfg.Pipeline.ReviewTTLMinutes == 0 {
		cfg.Pipeline.ReviewTTLMinutes = 60
	}

	return &cfg, nil
}

// CallTimeout returns the per-call timeout for external calls.
func (p *PipelineConfig) CallTimeout() time.Duration {
	return time.Duration(p.CallTimeoutSec) * time.Second
}

// ReviewTTL returns how long a staged record waits for a human decision
// before it is discarded.
func (p *PipelineConfig) ReviewTTL() time.Duration {
	return time.Duration(p.ReviewTTLMinutes) * time.Minute
}
