package config

import (
	"os"
	"testing"
)

func TestConfigLoad_Defaults(t *testing.T) {
	_ = os.Unsetenv("DEVSHELF_BUILD_TARGET")
	_ = os.Unsetenv("DEVSHELF_DB_DRIVER")
	_ = os.Unsetenv("DEVSHELF_HTTP_PORT")
	_ = os.Unsetenv("DEVSHELF_SQLITE_PATH")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.BuildTarget != "local" || cfg.DBDriver != "sqlite" {
		t.Fatalf("unexpected driver derivation: %+v", cfg)
	}
	if cfg.HTTPPort != 8080 || cfg.Partition != "resources" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.SQLitePath != "" {
		t.Fatalf("sqlite path should stay empty until the factory resolves it, got %s", cfg.SQLitePath)
	}
}

func TestConfigLoad_CloudTargetDerivesPostgres(t *testing.T) {
	_ = os.Setenv("DEVSHELF_BUILD_TARGET", "cloud-dev")
	defer func() { _ = os.Unsetenv("DEVSHELF_BUILD_TARGET") }()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("db driver = %s, want postgres", cfg.DBDriver)
	}
}

func TestConfigLoad_DriverOverride(t *testing.T) {
	_ = os.Setenv("DEVSHELF_BUILD_TARGET", "cloud")
	_ = os.Setenv("DEVSHELF_DB_DRIVER", "sqlite")
	defer func() {
		_ = os.Unsetenv("DEVSHELF_BUILD_TARGET")
		_ = os.Unsetenv("DEVSHELF_DB_DRIVER")
	}()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("driver override failed, got %s", cfg.DBDriver)
	}
}

func TestConfigLoad_RejectsUnknownTarget(t *testing.T) {
	_ = os.Setenv("DEVSHELF_BUILD_TARGET", "mainframe")
	defer func() { _ = os.Unsetenv("DEVSHELF_BUILD_TARGET") }()

	if _, err := New(); err == nil {
		t.Fatalf("expected error for unknown build target")
	}
}

func TestConfigLoad_TaskTimeoutEnvOverride(t *testing.T) {
	_ = os.Setenv("DEVSHELF_TASK_TIMEOUT_SECONDS", "11")
	defer func() { _ = os.Unsetenv("DEVSHELF_TASK_TIMEOUT_SECONDS") }()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.TaskTimeoutSeconds != 11 {
		t.Fatalf("task timeout env override failed, got %d", cfg.TaskTimeoutSeconds)
	}
}
