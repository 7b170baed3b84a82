package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr != ":8089" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Turn.CallTimeoutMS != 30000 {
		t.Errorf("call timeout = %d", cfg.Turn.CallTimeoutMS)
	}
	if cfg.Turn.AutoExecute {
		t.Error("auto execute should default off")
	}
	if !cfg.Turn.RepetitionWarning || cfg.Turn.RepetitionWindow != 10 {
		t.Errorf("repetition defaults wrong: %+v", cfg.Turn)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log defaults wrong: %+v", cfg.Log)
	}
}

func TestFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parley.yaml")
	body := `
server:
  addr: ":9000"
model:
  provider: anthropic
  name: claude-sonnet-4-5
turn:
  auto_execute: true
  call_timeout_ms: 5000
  repetition_warning: false
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Model.Provider != "anthropic" || cfg.Model.Name != "claude-sonnet-4-5" {
		t.Errorf("model = %+v", cfg.Model)
	}
	if !cfg.Turn.AutoExecute || cfg.Turn.CallTimeoutMS != 5000 {
		t.Errorf("turn = %+v", cfg.Turn)
	}
	if cfg.Turn.RepetitionWarning {
		t.Error("file should disable the repetition warning")
	}
	// Untouched fields keep defaults.
	if cfg.Turn.RepetitionWindow != 10 {
		t.Errorf("window = %d", cfg.Turn.RepetitionWindow)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parley.yaml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":9000\"\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PARLEY_ADDR", ":7000")
	t.Setenv("PARLEY_MODEL", "gpt-5.2")
	t.Setenv("PARLEY_AUTO_EXECUTE", "true")
	t.Setenv("PARLEY_CALL_TIMEOUT_MS", "1500")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Model.Name != "gpt-5.2" {
		t.Errorf("model = %q", cfg.Model.Name)
	}
	if !cfg.Turn.AutoExecute || cfg.Turn.CallTimeoutMS != 1500 {
		t.Errorf("turn = %+v", cfg.Turn)
	}
}

func TestEnvIgnoresUnparseable(t *testing.T) {
	t.Setenv("PARLEY_AUTO_EXECUTE", "definitely")
	t.Setenv("PARLEY_CALL_TIMEOUT_MS", "soon")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Turn.AutoExecute {
		t.Error("junk bool should keep the default")
	}
	if cfg.Turn.CallTimeoutMS != 30000 {
		t.Errorf("junk int should keep the default, got %d", cfg.Turn.CallTimeoutMS)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestNonPositiveValuesFallBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parley.yaml")
	if err := os.WriteFile(path, []byte("turn:\n  call_timeout_ms: -5\n  repetition_window: 0\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Turn.CallTimeoutMS != 30000 || cfg.Turn.RepetitionWindow != 10 {
		t.Errorf("non-positive values not defaulted: %+v", cfg.Turn)
	}
}
