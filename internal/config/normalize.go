package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGameDB()
	c.normalizePlatforms()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.RomDir, err = expandPath(c.Paths.RomDir); err != nil {
		return fmt.Errorf("paths.rom_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ImageDir) == "" {
		c.Paths.ImageDir = defaultImageDir
	}
	if c.Paths.ImageDir, err = expandPath(c.Paths.ImageDir); err != nil {
		return fmt.Errorf("paths.image_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeGameDB() {
	c.GameDB.ClientID = strings.TrimSpace(c.GameDB.ClientID)
	c.GameDB.ClientSecret = strings.TrimSpace(c.GameDB.ClientSecret)
	if c.GameDB.ClientID == "" {
		c.GameDB.ClientID = strings.TrimSpace(os.Getenv("GAMEDB_CLIENT_ID"))
	}
	if c.GameDB.ClientSecret == "" {
		c.GameDB.ClientSecret = strings.TrimSpace(os.Getenv("GAMEDB_CLIENT_SECRET"))
	}
	c.GameDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.GameDB.BaseURL), "/")
	if c.GameDB.BaseURL == "" {
		c.GameDB.BaseURL = defaultGameDBBaseURL
	}
	c.GameDB.AuthURL = strings.TrimSpace(c.GameDB.AuthURL)
	if c.GameDB.AuthURL == "" {
		c.GameDB.AuthURL = defaultGameDBAuthURL
	}
	if c.GameDB.TimeoutSecs <= 0 {
		c.GameDB.TimeoutSecs = defaultGameDBTimeoutSecs
	}
}

func (c *Config) normalizePlatforms() {
	if len(c.Platforms) == 0 {
		return
	}
	normalized := make(map[string]string, len(c.Platforms))
	for ext, key := range c.Platforms {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		key = strings.ToLower(strings.TrimSpace(key))
		if ext == "" || key == "" {
			continue
		}
		normalized[ext] = key
	}
	c.Platforms = normalized
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
