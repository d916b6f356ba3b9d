package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	// Create isolated viper instance without loading user/project config
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	if err != nil {
		t.Fatalf("LoadWithViper() failed: %v", err)
	}

	if cfg.Log.JSON {
		t.Error("expected console logging by default")
	}
	if cfg.Run.ShardSize != 10000 {
		t.Errorf("expected default shard size 10000, got %d", cfg.Run.ShardSize)
	}
	if cfg.Run.Workers != 1 {
		t.Errorf("expected default workers 1, got %d", cfg.Run.Workers)
	}
	if cfg.Hub.TimeoutSeconds != 300 {
		t.Errorf("expected default hub timeout 300, got %d", cfg.Hub.TimeoutSeconds)
	}
	if cfg.HubTimeout() != 300*time.Second {
		t.Errorf("expected HubTimeout 300s, got %s", cfg.HubTimeout())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			config:  Config{Run: RunConfig{ShardSize: 10000, Workers: 1}},
			wantErr: false,
		},
		{
			name:    "zero workers is valid (sequential)",
			config:  Config{Run: RunConfig{ShardSize: 100, Workers: 0}},
			wantErr: false,
		},
		{
			name:    "negative workers is invalid",
			config:  Config{Run: RunConfig{ShardSize: 100, Workers: -1}},
			wantErr: true,
		},
		{
			name:    "zero shard size is invalid",
			config:  Config{Run: RunConfig{ShardSize: 0}},
			wantErr: true,
		},
		{
			name:    "negative hub timeout is invalid",
			config:  Config{Run: RunConfig{ShardSize: 100}, Hub: HubConfig{TimeoutSeconds: -1}},
			wantErr: true,
		},
		{
			name:    "zero hub timeout is valid (no limit)",
			config:  Config{Run: RunConfig{ShardSize: 100}, Hub: HubConfig{TimeoutSeconds: 0}},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "foundry.toml")
	doc := `[run]
shard_size = 500
workers = 4

[hub]
cache_dir = "/tmp/hub"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}

	if cfg.Run.ShardSize != 500 {
		t.Errorf("expected shard size 500, got %d", cfg.Run.ShardSize)
	}
	if cfg.Run.Workers != 4 {
		t.Errorf("expected workers 4, got %d", cfg.Run.Workers)
	}
	if cfg.Hub.CacheDir != "/tmp/hub" {
		t.Errorf("expected cache dir /tmp/hub, got %q", cfg.Hub.CacheDir)
	}
	// Defaults fill in what the file omits.
	if cfg.Hub.TimeoutSeconds != 300 {
		t.Errorf("expected default hub timeout 300, got %d", cfg.Hub.TimeoutSeconds)
	}

	if _, err := LoadFromFile(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("FOUNDRY_RUN_WORKERS", "8")
	Reset()
	defer Reset()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Run.Workers != 8 {
		t.Errorf("expected env override workers 8, got %d", cfg.Run.Workers)
	}
}

func TestFindProjectConfig(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("finds config walking up", func(t *testing.T) {
		subDir := filepath.Join(tmpDir, "test1", "subdir")
		os.MkdirAll(subDir, 0o755)
		os.WriteFile(filepath.Join(tmpDir, "test1", "foundry.toml"), []byte(""), 0o644)

		oldWd, _ := os.Getwd()
		defer os.Chdir(oldWd)
		os.Chdir(subDir)

		result := findProjectConfig()
		if result == "" {
			t.Fatal("expected to find config file")
		}
		if filepath.Base(result) != "foundry.toml" {
			t.Errorf("expected foundry.toml, got %s", filepath.Base(result))
		}
	})

	t.Run("no config found", func(t *testing.T) {
		subDir := filepath.Join(tmpDir, "test2", "subdir")
		os.MkdirAll(subDir, 0o755)

		oldWd, _ := os.Getwd()
		defer os.Chdir(oldWd)
		os.Chdir(subDir)

		if result := findProjectConfig(); result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "foundry.toml")

	cfg := &Config{
		Log: LogConfig{JSON: true},
		Run: RunConfig{ShardSize: 2500, Workers: 2},
		Hub: HubConfig{CacheDir: "/data/hub", TimeoutSeconds: 60},
	}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch: saved %+v, loaded %+v", cfg, loaded)
	}

	if err := (&Config{}).Save(""); err == nil {
		t.Error("expected error for empty path")
	}
}
