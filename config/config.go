// Package config loads prfsd's YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	// ListenAddr is the address of the mode/metrics HTTP server.
	ListenAddr string `yaml:"listen_addr"`
	// ModeFile, if set, is watched and mirrored into the mode store.
	ModeFile string `yaml:"mode_file"`
	// AuditDB, if set, is the SQLite decision log path.
	AuditDB string `yaml:"audit_db"`
	// CopyBufferSize is the backup copy buffer in bytes.
	CopyBufferSize int `yaml:"copy_buffer_size"`
	// Cache configures the read-path stat cache.
	Cache CacheConfig `yaml:"cache"`
}

// CacheConfig configures the read-path stat cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// UnmarshalYAML accepts the TTL in time.ParseDuration form ("5s",
// "100ms") rather than raw nanoseconds.
func (c *CacheConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Enabled bool   `yaml:"enabled"`
		TTL     string `yaml:"ttl"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.Enabled = raw.Enabled
	if raw.TTL != "" {
		d, err := time.ParseDuration(raw.TTL)
		if err != nil {
			return fmt.Errorf("cache ttl: %w", err)
		}
		c.TTL = d
	}
	return nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ListenAddr:     "127.0.0.1:8377",
		CopyBufferSize: 32 * 1024,
		Cache: CacheConfig{
			Enabled: false,
			TTL:     time.Second,
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if cfg.CopyBufferSize <= 0 {
		cfg.CopyBufferSize = Default().CopyBufferSize
	}
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = Default().Cache.TTL
	}
	return cfg, nil
}
