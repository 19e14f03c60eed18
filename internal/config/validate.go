package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateGameDB(); err != nil {
		return err
	}
	if err := c.validateRateLimit(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateGameDB() error {
	if c.Pipeline.Offline {
		return nil
	}
	if c.GameDB.ClientID == "" || c.GameDB.ClientSecret == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/romdex/config.toml"
		}
		return fmt.Errorf("gamedb.client_id and gamedb.client_secret are required for online runs. Set GAMEDB_CLIENT_ID/GAMEDB_CLIENT_SECRET env vars or edit %s (create with 'romdex config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateRateLimit() error {
	if c.RateLimit.RequestsPerSecond < 1 {
		return errors.New("rate_limit.requests_per_second must be at least 1")
	}
	if c.RateLimit.RefillIntervalMS < 1 {
		return errors.New("rate_limit.refill_interval_ms must be at least 1")
	}
	if c.RateLimit.MaxConcurrency < 1 {
		return errors.New("rate_limit.max_concurrency must be at least 1")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.TTLHours < 1 {
		return errors.New("cache.ttl_hours must be at least 1")
	}
	if c.Cache.LocalMaxItems < 1 {
		return errors.New("cache.local_max_items must be at least 1")
	}
	if c.Cache.LocalMaxMiB < 1 {
		return errors.New("cache.local_max_mib must be at least 1")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.FuzzyThreshold < 0 || c.Matching.FuzzyThreshold > 1 {
		return errors.New("matching.fuzzy_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.BatchSize < 1 {
		return errors.New("pipeline.batch_size must be at least 1")
	}
	if c.Pipeline.CheckpointThreshold < 1 {
		return errors.New("pipeline.checkpoint_threshold must be at least 1")
	}
	return nil
}
