package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	RomDir    string `toml:"rom_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	ImageDir  string `toml:"image_dir"`
}

// GameDB contains configuration for the remote game-metadata API.
type GameDB struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	BaseURL      string `toml:"base_url"`
	AuthURL      string `toml:"auth_url"`
	TimeoutSecs  int    `toml:"timeout_seconds"`
}

// RateLimit contains admission-control settings for outbound API calls.
type RateLimit struct {
	RequestsPerSecond int  `toml:"requests_per_second"`
	RefillIntervalMS  int  `toml:"refill_interval_ms"`
	MaxConcurrency    int  `toml:"max_concurrency"`
	Adaptive          bool `toml:"adaptive"`
}

// Cache contains settings for the two-tier response cache.
type Cache struct {
	RedisAddr     string `toml:"redis_addr"`
	TTLHours      int    `toml:"ttl_hours"`
	LocalMaxItems int    `toml:"local_max_items"`
	LocalMaxMiB   int    `toml:"local_max_mib"`
}

// Matching contains fuzzy-match tuning.
type Matching struct {
	FuzzyThreshold float64 `toml:"fuzzy_threshold"`
}

// Pipeline contains batch-orchestration settings.
type Pipeline struct {
	BatchSize           int  `toml:"batch_size"`
	CheckpointThreshold int  `toml:"checkpoint_threshold"`
	LazyDownload        bool `toml:"lazy_download"`
	Offline             bool `toml:"offline"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for romdex.
//
// Configuration sections by subsystem:
//   - Paths: ROM source directory and catalog output locations
//   - GameDB: remote metadata API credentials and endpoints
//   - RateLimit: token bucket and concurrency settings
//   - Cache: Redis address and local-tier bounds
//   - Matching: fuzzy-match acceptance threshold
//   - Pipeline: batch size, checkpoint cadence, image download mode
//   - Platforms: file-extension to platform-key overrides
//   - Logging: log format and level
type Config struct {
	Paths     Paths             `toml:"paths"`
	GameDB    GameDB            `toml:"gamedb"`
	RateLimit RateLimit         `toml:"rate_limit"`
	Cache     Cache             `toml:"cache"`
	Matching  Matching          `toml:"matching"`
	Pipeline  Pipeline          `toml:"pipeline"`
	Platforms map[string]string `toml:"platforms"`
	Logging   Logging           `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/romdex/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("romdex.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.ImageDir) != "" {
		if err := os.MkdirAll(c.Paths.ImageDir, 0o755); err != nil {
			return fmt.Errorf("create image directory %q: %w", c.Paths.ImageDir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
