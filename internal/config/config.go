// Package config loads the sync engine's process constants: YAML file
// as the base, environment variables as overrides layered on top.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the three process constants the sync engine reads on
// every tick.
type Config struct {
	RemoteLoopWait      time.Duration `yaml:"-"`
	PullOverlapSeconds  time.Duration `yaml:"-"`
	StoragePrefix       string        `yaml:"storage-prefix"`
	RemoteLoopWaitSecs  int           `yaml:"remote-loop-wait-seconds"`
	PullOverlapSecsYAML int           `yaml:"pull-overlap-seconds"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		RemoteLoopWait:      5 * time.Second,
		PullOverlapSeconds:  30 * time.Second,
		StoragePrefix:       "health",
		RemoteLoopWaitSecs:  5,
		PullOverlapSecsYAML: 30,
	}
}

// Load reads an optional YAML override file, then applies environment
// variable overrides on top (env wins). A missing file is not an
// error: every field already has a compiled-in default.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
		if err == nil {
			var fromFile Config
			if err := yaml.Unmarshal(data, &fromFile); err != nil {
				return Config{}, err
			}
			if fromFile.StoragePrefix != "" {
				cfg.StoragePrefix = fromFile.StoragePrefix
			}
			if fromFile.RemoteLoopWaitSecs != 0 {
				cfg.RemoteLoopWaitSecs = fromFile.RemoteLoopWaitSecs
			}
			if fromFile.PullOverlapSecsYAML != 0 {
				cfg.PullOverlapSecsYAML = fromFile.PullOverlapSecsYAML
			}
		} else if !os.IsNotExist(err) {
			return Config{}, err
		}
	}

	applyEnvOverrides(&cfg)
	cfg.RemoteLoopWait = time.Duration(cfg.RemoteLoopWaitSecs) * time.Second
	cfg.PullOverlapSeconds = time.Duration(cfg.PullOverlapSecsYAML) * time.Second
	return cfg, nil
}

// applyEnvOverrides reads HEALTHSYNC_* environment variables; env
// beats the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HEALTHSYNC_STORAGE_PREFIX"); v != "" {
		cfg.StoragePrefix = v
	}
	if v := os.Getenv("HEALTHSYNC_REMOTE_LOOP_WAIT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RemoteLoopWaitSecs = n
		}
	}
	if v := os.Getenv("HEALTHSYNC_PULL_OVERLAP_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PullOverlapSecsYAML = n
		}
	}
}
