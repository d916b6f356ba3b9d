package settings

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/foundry/errors"
)

// DefaultUserConfigPath returns ~/.foundry/foundry.toml, or empty string
// when the home directory cannot be determined.
func DefaultUserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".foundry", "foundry.toml")
}

// Save writes the configuration to path as TOML, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	if path == "" {
		return errors.New("settings path must not be empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create settings directory")
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal settings")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write settings to %s", path)
	}

	return nil
}
