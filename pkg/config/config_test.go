package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	sdkerrors "github.com/blocksecops/editor-sdk/pkg/errors"
	"github.com/blocksecops/editor-sdk/pkg/shared/severity"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CLIPath != "blocksecops" {
		t.Errorf("CLIPath = %q", cfg.CLIPath)
	}
	if cfg.ScanTimeout != 60*time.Second {
		t.Errorf("ScanTimeout = %v", cfg.ScanTimeout)
	}
	if cfg.SeverityThreshold != severity.Hint {
		t.Errorf("SeverityThreshold = %v", cfg.SeverityThreshold)
	}
	if cfg.ScanOnSave {
		t.Error("ScanOnSave should default to false")
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	content := `
cli_path: /opt/blocksecops/bin/blocksecops
scan_on_save: true
severity_threshold: warning
scan_timeout: 30s
`
	if err := os.WriteFile(filepath.Join(dir, DefaultFileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CLIPath != "/opt/blocksecops/bin/blocksecops" {
		t.Errorf("CLIPath = %q", cfg.CLIPath)
	}
	if !cfg.ScanOnSave {
		t.Error("ScanOnSave should be true")
	}
	if cfg.SeverityThreshold != severity.Warning {
		t.Errorf("SeverityThreshold = %v", cfg.SeverityThreshold)
	}
	if cfg.ScanTimeout != 30*time.Second {
		t.Errorf("ScanTimeout = %v", cfg.ScanTimeout)
	}
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	if _, err := Load(t.TempDir()); err != nil {
		t.Fatalf("missing config file should not error: %v", err)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultFileName), []byte("cli_path: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(dir)
	if err == nil {
		t.Fatal("malformed config should error")
	}
	if sdkerrors.GetKind(err) != sdkerrors.KindInvalidInput {
		t.Errorf("kind = %v, want KindInvalidInput", sdkerrors.GetKind(err))
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvCLIPath, "/usr/local/bin/blocksecops")
	t.Setenv(EnvSeverityThreshold, "high")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CLIPath != "/usr/local/bin/blocksecops" {
		t.Errorf("CLIPath = %q", cfg.CLIPath)
	}
	if cfg.SeverityThreshold != severity.Error {
		t.Errorf("threshold = %v, want Error (high alias)", cfg.SeverityThreshold)
	}
}

func TestLoad_OptionsWinOverEnv(t *testing.T) {
	t.Setenv(EnvCLIPath, "/from/env")

	cfg, err := Load("", WithCLIPath("/from/option"), WithScanOnSave(true), WithVerbose(true))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CLIPath != "/from/option" {
		t.Errorf("CLIPath = %q, options should win", cfg.CLIPath)
	}
	if !cfg.ScanOnSave || !cfg.Verbose {
		t.Error("options not applied")
	}
}
