package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()

	if config.Server.Port != 20301 {
		t.Fatalf("unexpected port: %d", config.Server.Port)
	}
	if config.Data.DataDir != "data" {
		t.Fatalf("unexpected data dir: %q", config.Data.DataDir)
	}
	if config.Data.MaxUploadMB != 10 {
		t.Fatalf("unexpected upload limit: %d", config.Data.MaxUploadMB)
	}
	if config.Analysis.TopN != 20 {
		t.Fatalf("unexpected top n: %d", config.Analysis.TopN)
	}
}

func TestConfigTomlRoundTrip(t *testing.T) {
	t.Parallel()

	orig := DefaultConfig()
	orig.Server.Port = 9000
	orig.Server.DevMode = true
	orig.Analysis.TopN = 5

	data, err := toml.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	loaded := DefaultConfig()
	if err := toml.Unmarshal(data, loaded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if loaded.Server.Port != 9000 || !loaded.Server.DevMode || loaded.Analysis.TopN != 5 {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SHOP_ANALYZER_PORT", "18080")
	t.Setenv("SHOP_ANALYZER_DATA_DIR", "/tmp/shop-data")

	config := DefaultConfig()
	applyEnv(config)

	if config.Server.Port != 18080 {
		t.Fatalf("env port not applied: %d", config.Server.Port)
	}
	if config.Data.DataDir != "/tmp/shop-data" {
		t.Fatalf("env data dir not applied: %q", config.Data.DataDir)
	}
}

func TestApplyEnv_InvalidPort(t *testing.T) {
	t.Setenv("SHOP_ANALYZER_PORT", "not-a-port")

	config := DefaultConfig()
	applyEnv(config)

	if config.Server.Port != 20301 {
		t.Fatalf("invalid port must keep default, got %d", config.Server.Port)
	}
}

func TestEnsureDataDir(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()
	config.Data.DataDir = filepath.Join(t.TempDir(), "data")

	dataDir, err := EnsureDataDir(config)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	for _, subdir := range []string{"uploads", "exports"} {
		info, err := os.Stat(filepath.Join(dataDir, subdir))
		if err != nil {
			t.Fatalf("stat %s: %v", subdir, err)
		}
		if !info.IsDir() {
			t.Fatalf("%s is not a directory", subdir)
		}
	}
}
