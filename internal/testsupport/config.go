package testsupport

import (
	"path/filepath"
	"testing"

	"romdex/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.GameDB.ClientID = "test-client"
	cfgVal.GameDB.ClientSecret = "test-secret"
	cfgVal.Paths.RomDir = filepath.Join(base, "roms")
	cfgVal.Paths.OutputDir = filepath.Join(base, "catalog")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ImageDir = filepath.Join(base, "images")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithOffline switches the test config to cache-only lookups.
func WithOffline() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.Offline = true
		b.cfg.GameDB.ClientID = ""
		b.cfg.GameDB.ClientSecret = ""
	}
}

// WithBatchSize overrides the pipeline batch size on the test config.
func WithBatchSize(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.BatchSize = size
	}
}

// WithCheckpointThreshold overrides the checkpoint threshold on the test
// config.
func WithCheckpointThreshold(threshold int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.CheckpointThreshold = threshold
	}
}
