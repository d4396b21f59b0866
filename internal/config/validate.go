package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateYouTube(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateYouTube() error {
	if c.YouTube.TokenPath == "" {
		return errors.New("youtube.token_path must be set")
	}
	if c.YouTube.ChunkSizeMiB > 256 {
		return fmt.Errorf("youtube.chunk_size_mib %d exceeds the 256 MiB ceiling", c.YouTube.ChunkSizeMiB)
	}
	if c.YouTube.ChunkRetries > 20 {
		return fmt.Errorf("youtube.chunk_retries %d is unreasonably high (max 20)", c.YouTube.ChunkRetries)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.PollInterval > 3600 {
		return errors.New("workflow.poll_interval must be at most 3600 seconds")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
