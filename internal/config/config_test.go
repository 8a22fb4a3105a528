package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_FromProjectRoot(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte("[project]\nname = \"test\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".proctor"), []byte("version: 1\ntimeout: 10m\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.ProjectRoot != dir {
		t.Errorf("ProjectRoot = %q, want %q", res.ProjectRoot, dir)
	}
	if res.Config.Version != 1 {
		t.Errorf("Config.Version = %d, want 1", res.Config.Version)
	}
	if res.Config.Timeout() != 10*time.Minute {
		t.Errorf("Timeout = %v, want 10m", res.Config.Timeout())
	}
}

func TestLoad_FromSubdirectory(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "setup.py"), []byte("from setuptools import setup\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".proctor"), []byte("version: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sub := filepath.Join(root, "src", "pkg")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := Load(sub)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.ProjectRoot != root {
		t.Errorf("ProjectRoot = %q, want %q", res.ProjectRoot, root)
	}
	if res.Config.Version != 2 {
		t.Errorf("Config.Version = %d, want 2", res.Config.Version)
	}
}

func TestLoad_NoProjectMarker(t *testing.T) {
	dir := t.TempDir()

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.ProjectRoot != dir {
		t.Errorf("ProjectRoot = %q, want %q (fallback to workspace)", res.ProjectRoot, dir)
	}
	if res.Config.RawTimeout != "" {
		t.Errorf("expected default config, got RawTimeout = %q", res.Config.RawTimeout)
	}
}

func TestLoad_NoProctorFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Config.Timeout() != DefaultTimeout {
		t.Errorf("Timeout = %v, want default %v", res.Config.Timeout(), DefaultTimeout)
	}
	if res.Config.MaxOutputBytes() != DefaultMaxOutput {
		t.Errorf("MaxOutputBytes = %d, want default %d", res.Config.MaxOutputBytes(), DefaultMaxOutput)
	}
}

func TestInterpreter_ExplicitPython(t *testing.T) {
	cfg := &Config{Python: "/opt/python/bin/python3"}
	if got := cfg.Interpreter(t.TempDir()); got != "/opt/python/bin/python3" {
		t.Errorf("Interpreter = %q, want explicit python setting", got)
	}
}

func TestInterpreter_ConfiguredVenv(t *testing.T) {
	root := t.TempDir()
	bin := filepath.Join(root, "env", "bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		t.Fatal(err)
	}
	py := filepath.Join(bin, "python")
	if err := os.WriteFile(py, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{Venv: "env"}
	if got := cfg.Interpreter(root); got != py {
		t.Errorf("Interpreter = %q, want %q", got, py)
	}
}

func TestInterpreter_ConventionalVenv(t *testing.T) {
	root := t.TempDir()
	bin := filepath.Join(root, ".venv", "bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		t.Fatal(err)
	}
	py := filepath.Join(bin, "python")
	if err := os.WriteFile(py, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{}
	if got := cfg.Interpreter(root); got != py {
		t.Errorf("Interpreter = %q, want %q", got, py)
	}
}

func TestInterpreter_Fallback(t *testing.T) {
	cfg := &Config{}
	if got := cfg.Interpreter(t.TempDir()); got != "python3" {
		t.Errorf("Interpreter = %q, want 'python3'", got)
	}
}

func TestSteps_Defaults(t *testing.T) {
	cfg := &Config{}
	if got := cfg.CheckSteps(); len(got) != 3 || got[0] != "test" {
		t.Errorf("CheckSteps = %v, want defaults", got)
	}
	if got := cfg.AuditSteps(); len(got) != 4 || got[0] != "coverage" {
		t.Errorf("AuditSteps = %v, want defaults", got)
	}
	if got := cfg.MinComplexityRank(); got != "C" {
		t.Errorf("MinComplexityRank = %q, want 'C'", got)
	}
}
