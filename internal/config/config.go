package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Assignment contains the decision policy settings.
type Assignment struct {
	// DecisionThreshold is the minimum fused score to reuse an existing
	// master key (inclusive).
	DecisionThreshold float64 `toml:"decision_threshold"`
	// TopK is the number of candidates requested from the retriever.
	TopK int `toml:"top_k"`
	// DenseWeight is the dense share of the fused score, in (0,1].
	DenseWeight float64 `toml:"dense_weight"`
}

// Pinecone contains vector index connection settings.
type Pinecone struct {
	APIKey    string `toml:"api_key"`
	IndexHost string `toml:"index_host"`
	Namespace string `toml:"namespace"`
}

// OpenAI contains embedding API connection settings.
type OpenAI struct {
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
}

// Logging contains log output settings.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the root configuration document.
type Config struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`

	Assignment Assignment `toml:"assignment"`
	Pinecone   Pinecone   `toml:"pinecone"`
	OpenAI     OpenAI     `toml:"openai"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the conventional config location.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "medkey.toml"
	}
	return filepath.Join(home, ".config", "medkey", "config.toml")
}

// Load reads the configuration file at path (or the default location when
// path is empty), applies defaults, overlays environment secrets, and
// validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) == "" {
		path = DefaultConfigPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays secrets and the assignment tuning knobs from the
// environment. Environment values win over file values.
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("PINECONE_API_KEY")); v != "" {
		c.Pinecone.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("DECISION_THRESHOLD")); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			c.Assignment.DecisionThreshold = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("TOP_K")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			c.Assignment.TopK = parsed
		}
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Assignment.DecisionThreshold <= 0 || c.Assignment.DecisionThreshold > 1 {
		return fmt.Errorf("assignment.decision_threshold must be in (0,1], got %v", c.Assignment.DecisionThreshold)
	}
	if c.Assignment.TopK <= 0 {
		return fmt.Errorf("assignment.top_k must be positive, got %d", c.Assignment.TopK)
	}
	if c.Assignment.DenseWeight <= 0 || c.Assignment.DenseWeight > 1 {
		return fmt.Errorf("assignment.dense_weight must be in (0,1], got %v", c.Assignment.DenseWeight)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("data_dir must not be empty")
	}
	return nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, c.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// RegistryDBPath returns the sqlite database location.
func (c *Config) RegistryDBPath() string {
	return filepath.Join(c.DataDir, "registry.db")
}

// WriteSample writes the annotated sample configuration to path.
func WriteSample(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("config path must not be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
