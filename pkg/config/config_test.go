package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvFileVar, filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("MONGO_URI", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.URI != "" {
		t.Errorf("Load() URI = %q, want empty", cfg.URI)
	}
	if cfg.ConnectTimeout != 10*time.Second {
		t.Errorf("Load() ConnectTimeout = %v, want 10s", cfg.ConnectTimeout)
	}
	if cfg.OperationTimeout != time.Minute {
		t.Errorf("Load() OperationTimeout = %v, want 1m", cfg.OperationTimeout)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(EnvFileVar, filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("MONGO_URI", "mongodb://env:27017")
	t.Setenv("MONGOKIT_PING_TIMEOUT", "250ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.URI != "mongodb://env:27017" {
		t.Errorf("Load() URI = %q", cfg.URI)
	}
	if cfg.PingTimeout != 250*time.Millisecond {
		t.Errorf("Load() PingTimeout = %v, want 250ms", cfg.PingTimeout)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(envFile, []byte("MONGO_URI=mongodb://file:27017\n"), 0600); err != nil {
		t.Fatalf("Failed to create env file: %v", err)
	}
	t.Setenv(EnvFileVar, envFile)
	// t.Setenv registers the restore; unset so the file value can apply.
	t.Setenv("MONGO_URI", "")
	os.Unsetenv("MONGO_URI")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.URI != "mongodb://file:27017" {
		t.Errorf("Load() URI = %q, want value from env file", cfg.URI)
	}
}

func TestLoadEnvWinsOverFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(envFile, []byte("MONGO_URI=mongodb://file:27017\n"), 0600); err != nil {
		t.Fatalf("Failed to create env file: %v", err)
	}
	t.Setenv(EnvFileVar, envFile)
	t.Setenv("MONGO_URI", "mongodb://env:27017")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.URI != "mongodb://env:27017" {
		t.Errorf("Load() URI = %q, want the environment value", cfg.URI)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv(EnvFileVar, filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("MONGOKIT_OPERATION_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for invalid duration")
	}
}

func TestUsage(t *testing.T) {
	usage, err := Usage()
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if !strings.Contains(usage, "MONGO_URI") {
		t.Errorf("Usage() should mention MONGO_URI, got %q", usage)
	}
}
