// Package settings loads tool-level configuration: foundry.toml discovered
// from the working directory upward, then ~/.foundry/foundry.toml, then
// FOUNDRY_* environment variables. Pipeline documents are config's concern;
// settings covers the knobs that belong to the installation, not the run.
package settings

import (
	"time"
)

// Config is the tool configuration.
type Config struct {
	Log LogConfig `mapstructure:"log" toml:"log"`
	Run RunConfig `mapstructure:"run" toml:"run"`
	Hub HubConfig `mapstructure:"hub" toml:"hub"`
}

// LogConfig configures log output.
type LogConfig struct {
	JSON  bool   `mapstructure:"json" toml:"json"`   // machine-readable JSON lines instead of console output
	Theme string `mapstructure:"theme" toml:"theme"` // console color theme: gruvbox, everforest
}

// RunConfig configures stage execution.
type RunConfig struct {
	ShardSize int `mapstructure:"shard_size" toml:"shard_size"` // rows per materialized shard (default: 10000)
	Workers   int `mapstructure:"workers" toml:"workers"`       // concurrent shards per stage (default: 1)
}

// HubConfig configures remote dataset fetching.
type HubConfig struct {
	CacheDir       string `mapstructure:"cache_dir" toml:"cache_dir"`             // snapshot cache (default: ~/.foundry/hub)
	TimeoutSeconds int    `mapstructure:"timeout_seconds" toml:"timeout_seconds"` // per-fetch timeout, 0 = no limit
}

// HubTimeout returns the hub fetch timeout as a duration.
func (c *Config) HubTimeout() time.Duration {
	return time.Duration(c.Hub.TimeoutSeconds) * time.Second
}
