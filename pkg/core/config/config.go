// Package config loads the application configuration from config/app.yaml
// and the environment. Environment variables win over the file.
package config

import (
	"fmt"
	"os"
	"time"

	"financial_analyzer/pkg/core/agent"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	HTTPAddr    string `yaml:"http_addr"`
	DatabaseURL string `yaml:"database_url"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	ResourcesPath string `yaml:"resources_path"`

	Extraction struct {
		CacheDir       string        `yaml:"cache_dir"`
		MaxUploadMB    int64         `yaml:"max_upload_mb"`
		MaxPages       int           `yaml:"max_pages"`
		Timeout        time.Duration `yaml:"timeout"`
		CacheRetainFor time.Duration `yaml:"cache_retain_for"`
	} `yaml:"extraction"`

	Export struct {
		// FontPath is a TTF with Japanese glyphs for PDF reports.
		FontPath string `yaml:"font_path"`
	} `yaml:"export"`

	Scheduler struct {
		Enabled        bool   `yaml:"enabled"`
		RecalcSchedule string `yaml:"recalc_schedule"`
		PruneSchedule  string `yaml:"prune_schedule"`
	} `yaml:"scheduler"`

	Agents agent.Config `yaml:"agents"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	var c Config
	c.HTTPAddr = ":8080"
	c.Log.Level = "info"
	c.Log.Format = "console"
	c.ResourcesPath = "resources"
	c.Extraction.CacheDir = ".cache/extractions"
	c.Extraction.MaxUploadMB = 20
	c.Extraction.MaxPages = 60
	c.Extraction.Timeout = 120 * time.Second
	c.Extraction.CacheRetainFor = 30 * 24 * time.Hour
	c.Scheduler.Enabled = true
	c.Scheduler.RecalcSchedule = "0 */10 * * * *"
	c.Scheduler.PruneSchedule = "0 30 3 * * *"
	c.Agents = agent.Config{
		ActiveProvider: "gemini",
		Agents: map[string]agent.AgentConfig{
			agent.OCRExtraction: {Provider: "gemini", Description: "Reads statement PDFs"},
			agent.Commentary:    {Description: "Writes the narrative over the metrics table"},
		},
	}
	return c
}

// Load reads .env (if any), then path (if it exists), then applies env overrides.
func Load(path string) (Config, error) {
	godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return cfg, fmt.Errorf("failed to read %s: %w", path, err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("EXPORT_FONT_PATH"); v != "" {
		cfg.Export.FontPath = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.Agents.ActiveProvider = v
	}
}
