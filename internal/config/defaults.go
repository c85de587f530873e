package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Default returns a configuration with production defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = defaultDataDir()
	}
	if strings.TrimSpace(c.LogDir) == "" {
		c.LogDir = filepath.Join(c.DataDir, "logs")
	}
	if c.Assignment.DecisionThreshold == 0 {
		c.Assignment.DecisionThreshold = 0.85
	}
	if c.Assignment.TopK == 0 {
		c.Assignment.TopK = 5
	}
	if c.Assignment.DenseWeight == 0 {
		c.Assignment.DenseWeight = 0.7
	}
	if strings.TrimSpace(c.OpenAI.Model) == "" {
		c.OpenAI.Model = "text-embedding-3-small"
	}
	if c.OpenAI.Dimensions == 0 {
		c.OpenAI.Dimensions = 1536
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = "console"
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "medkey-data"
	}
	return filepath.Join(home, ".local", "share", "medkey")
}
