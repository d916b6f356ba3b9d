package settings

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/teranos/foundry/materialize"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("log.json", false)
	v.SetDefault("log.theme", "")

	// Run defaults
	v.SetDefault("run.shard_size", materialize.DefaultShardSize)
	v.SetDefault("run.workers", 1) // shard-ordered delivery; >1 opts into concurrency

	// Hub defaults
	v.SetDefault("hub.cache_dir", defaultHubCacheDir())
	v.SetDefault("hub.timeout_seconds", 300)
}

// Default returns the built-in configuration, ignoring files and env vars.
func Default() *Config {
	return &Config{
		Run: RunConfig{
			ShardSize: materialize.DefaultShardSize,
			Workers:   1,
		},
		Hub: HubConfig{
			CacheDir:       defaultHubCacheDir(),
			TimeoutSeconds: 300,
		},
	}
}

// defaultHubCacheDir is ~/.foundry/hub, or empty when the home directory
// cannot be determined (hub sources then require explicit configuration).
func defaultHubCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".foundry", "hub")
}
