package settings

import "github.com/teranos/foundry/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Run.ShardSize <= 0 {
		return errors.Newf("run.shard_size must be > 0, got %d", c.Run.ShardSize)
	}

	// Workers: 0 = sequential (same as 1), negative = invalid
	if c.Run.Workers < 0 {
		return errors.Newf("run.workers must be >= 0, got %d", c.Run.Workers)
	}

	if c.Hub.TimeoutSeconds < 0 {
		return errors.Newf("hub.timeout_seconds must be >= 0, got %d", c.Hub.TimeoutSeconds)
	}

	return nil
}
