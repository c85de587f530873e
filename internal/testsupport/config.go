// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"medkey/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(base, "data")
	cfg.LogDir = filepath.Join(base, "logs")
	cfg.APIBind = "127.0.0.1:0"
	cfg.Pinecone.APIKey = "test"
	cfg.Pinecone.IndexHost = "test-index.example.com"
	cfg.OpenAI.APIKey = "test"

	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithThreshold overrides the decision threshold on the test config.
func WithThreshold(threshold float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Assignment.DecisionThreshold = threshold
	}
}
