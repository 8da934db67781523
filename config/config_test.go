package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/azqeurio/sequential-selecter/internal"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != internal.DefaultDatabasePath {
		t.Errorf("Expected default database path, got %s", cfg.Database.Path)
	}
	if cfg.Performance.Workers != internal.DefaultWorkers {
		t.Errorf("Expected %d workers, got %d", internal.DefaultWorkers, cfg.Performance.Workers)
	}
	if cfg.Mover.MaxAttempts != internal.DefaultMaxAttempts {
		t.Errorf("Expected max attempts %d, got %d", internal.DefaultMaxAttempts, cfg.Mover.MaxAttempts)
	}
	if !cfg.Session.PairMode {
		t.Error("Pair mode should be on by default")
	}
	if !reflect.DeepEqual(cfg.Sorter.Structure, []string{"camera", "date", "kind"}) {
		t.Errorf("Unexpected default structure %v", cfg.Sorter.Structure)
	}
	if Get().Logging.Level != "info" {
		t.Errorf("Get() should return the loaded config")
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: debug
mover:
  max_attempts: 50
journal:
  verify: true
session:
  pair_mode: false
  target1: /photos/keep
  target2: /photos/reject
sorter:
  structure: [year, camera]
  action: move
  policy: skip
  skip_identical: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("创建配置文件失败: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected debug level, got %s", cfg.Logging.Level)
	}
	if cfg.Mover.MaxAttempts != 50 {
		t.Errorf("Expected max attempts 50, got %d", cfg.Mover.MaxAttempts)
	}
	if !cfg.Journal.Verify || cfg.Session.PairMode {
		t.Error("Boolean settings not loaded")
	}
	if cfg.Session.Target1 != "/photos/keep" || cfg.Session.Target2 != "/photos/reject" {
		t.Errorf("Unexpected targets %s %s", cfg.Session.Target1, cfg.Session.Target2)
	}
	if !reflect.DeepEqual(cfg.Sorter.Structure, []string{"year", "camera"}) {
		t.Errorf("Unexpected structure %v", cfg.Sorter.Structure)
	}
	if cfg.Sorter.Action != "move" || cfg.Sorter.Policy != "skip" || !cfg.Sorter.SkipIdentical {
		t.Errorf("Unexpected sorter settings %+v", cfg.Sorter)
	}
	if cfg.Performance.Workers != internal.DefaultWorkers {
		t.Error("Missing keys should keep their defaults")
	}
}

func TestLoad_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SEQSEL_LOGGING_LEVEL", "warn")
	t.Setenv("SEQSEL_PERFORMANCE_WORKERS", "8")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Level != "warn" || cfg.Performance.Workers != 8 {
		t.Errorf("Environment overrides not applied: %s %d", cfg.Logging.Level, cfg.Performance.Workers)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing explicit config file")
	}
}
