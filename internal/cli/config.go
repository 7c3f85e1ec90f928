package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/FezVrasta/hassflow/pkg/transpile"
)

// Config holds the optional settings read from config.toml.
//
// Example:
//
//	[limits]
//	max_nodes = 500
//	iteration_ceiling = 100
//
//	[cache]
//	dir = "/var/cache/hassflow"
//
//	[server]
//	addr = ":8089"
//	redis_url = "redis://localhost:6379/0"
type Config struct {
	Limits transpile.Limits `toml:"limits"`
	Cache  CacheConfig      `toml:"cache"`
	Server ServerConfig     `toml:"server"`
}

// CacheConfig controls the result cache.
type CacheConfig struct {
	Dir      string `toml:"dir"`
	Disabled bool   `toml:"disabled"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr     string `toml:"addr"`
	RedisURL string `toml:"redis_url"`
}

// defaultConfig returns the configuration used when no file exists.
func defaultConfig() Config {
	return Config{
		Limits: transpile.DefaultLimits(),
		Server: ServerConfig{Addr: ":8089"},
	}
}

// configPath returns the default config file location,
// typically ~/.config/hassflow/config.toml.
func configPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "hassflow", "config.toml"), nil
}

// loadConfig reads the configuration from path. When path is empty the
// default location is tried; a missing file yields the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		var err error
		path, err = configPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return cfg, fmt.Errorf("config file not found: %s", path)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8089"
	}
	return cfg, nil
}

// cacheDir returns the directory for the result cache, creating the
// default under the user cache dir when the config leaves it unset.
func (c Config) cacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("get cache dir: %w", err)
	}
	return filepath.Join(base, "hassflow"), nil
}
