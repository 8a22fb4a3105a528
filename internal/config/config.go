// Package config loads and validates the optional .proctor YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for runner configuration.
const (
	DefaultTimeout   = 5 * time.Minute
	DefaultMaxOutput = 1 << 20 // 1 MB
)

// rootMarkers identify a Python project root, in lookup order.
var rootMarkers = []string{"pyproject.toml", "setup.py", "setup.cfg", ".git"}

// Config holds the parsed .proctor configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int             `yaml:"version"`
	RawTimeout   string          `yaml:"timeout"`    // e.g. "5m", "30s"
	RawMaxOutput int             `yaml:"max_output"` // bytes
	Python       string          `yaml:"python"`     // interpreter path override
	Venv         string          `yaml:"venv"`       // virtualenv directory, relative to the project root
	Test         TestConfig      `yaml:"test"`
	Lint         LintConfig      `yaml:"lint"`
	Typecheck    TypecheckConfig `yaml:"typecheck"`
	Format       FormatConfig    `yaml:"format"`
	Check        CheckConfig     `yaml:"check"`
	Audit        AuditConfig     `yaml:"audit"`
}

// Timeout returns the configured timeout or the default.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// TestConfig controls how pytest is executed.
type TestConfig struct {
	Args []string `yaml:"args"` // extra flags appended to pytest (e.g. -x, --maxfail=5)
}

// LintConfig controls how pylint is executed.
type LintConfig struct {
	RcFile string   `yaml:"rcfile"` // path to a pylintrc file
	Args   []string `yaml:"args"`   // extra flags (e.g. --disable=C0114)
}

// TypecheckConfig controls how mypy is executed.
type TypecheckConfig struct {
	ConfigFile string   `yaml:"config"` // path to a mypy config file
	Args       []string `yaml:"args"`   // extra flags (e.g. --strict)
}

// FormatConfig controls how black is executed during the fix phase.
type FormatConfig struct {
	Args []string `yaml:"args"` // extra flags (e.g. --line-length=100)
}

// CheckConfig defines the steps for py_check.
type CheckConfig struct {
	Steps []string `yaml:"steps"` // default: [test, lint, typecheck]
}

// AuditConfig defines the steps and per-check settings for py_audit.
type AuditConfig struct {
	Steps      []string         `yaml:"steps"` // default: [coverage, complexity, security, depaudit]
	Coverage   CoverageConfig   `yaml:"coverage"`
	Complexity ComplexityConfig `yaml:"complexity"`
	Security   SecurityConfig   `yaml:"security"`
	DepAudit   DepAuditConfig   `yaml:"depaudit"`
}

// CoverageConfig controls how test coverage is collected.
type CoverageConfig struct {
	Args []string `yaml:"args"` // extra flags for pytest --cov
}

// ComplexityConfig controls how cyclomatic complexity is measured.
type ComplexityConfig struct {
	MinRank string   `yaml:"min_rank"` // lowest radon rank reported (default: "C")
	Args    []string `yaml:"args"`     // extra flags for radon
}

// SecurityConfig controls how bandit is executed.
type SecurityConfig struct {
	Args []string `yaml:"args"` // extra flags for bandit
}

// DepAuditConfig controls how pip-audit is executed.
type DepAuditConfig struct {
	Args []string `yaml:"args"` // extra flags for pip-audit
}

// DefaultCheckSteps are used when no steps are configured.
var DefaultCheckSteps = []string{"test", "lint", "typecheck"}

// DefaultAuditSteps are used when no audit steps are configured.
var DefaultAuditSteps = []string{"coverage", "complexity", "security", "depaudit"}

// CheckSteps returns the configured check steps, falling back to defaults.
func (c *Config) CheckSteps() []string {
	if len(c.Check.Steps) > 0 {
		return c.Check.Steps
	}
	return DefaultCheckSteps
}

// AuditSteps returns the configured audit steps, falling back to defaults.
func (c *Config) AuditSteps() []string {
	if len(c.Audit.Steps) > 0 {
		return c.Audit.Steps
	}
	return DefaultAuditSteps
}

// MinComplexityRank returns the configured radon rank, falling back to "C".
func (c *Config) MinComplexityRank() string {
	if c.Audit.Complexity.MinRank != "" {
		return c.Audit.Complexity.MinRank
	}
	return "C"
}

// Interpreter resolves the Python interpreter for the project rooted at
// root. Precedence: explicit python setting, the configured virtualenv's
// interpreter, then python3 from PATH.
func (c *Config) Interpreter(root string) string {
	if c.Python != "" {
		return c.Python
	}
	if c.Venv != "" {
		venv := c.Venv
		if !filepath.IsAbs(venv) {
			venv = filepath.Join(root, venv)
		}
		py := venvInterpreter(venv)
		if _, err := os.Stat(py); err == nil {
			return py
		}
	}
	// Conventional virtualenv locations.
	for _, name := range []string{".venv", "venv"} {
		py := venvInterpreter(filepath.Join(root, name))
		if _, err := os.Stat(py); err == nil {
			return py
		}
	}
	return "python3"
}

func venvInterpreter(venv string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(venv, "Scripts", "python.exe")
	}
	return filepath.Join(venv, "bin", "python")
}

// LoadResult holds the parsed config and the discovered project root.
type LoadResult struct {
	Config      *Config
	ProjectRoot string // directory containing pyproject.toml etc.; falls back to workspace
}

// Load reads the .proctor file from the project root. The project root is
// discovered by walking upward from workspace looking for a Python project
// marker. If no .proctor file exists, a default Config is returned.
func Load(workspace string) (*LoadResult, error) {
	root, err := findProjectRoot(workspace)
	if err != nil {
		// No project marker found; use workspace as root.
		root = workspace
	}

	path := filepath.Join(root, ".proctor")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &LoadResult{Config: &Config{}, ProjectRoot: root}, nil
		}
		return nil, fmt.Errorf("reading .proctor: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing .proctor: %w", err)
	}
	return &LoadResult{Config: cfg, ProjectRoot: root}, nil
}

// findProjectRoot walks upward from dir looking for a Python project marker.
func findProjectRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, marker := range rootMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no Python project marker found")
		}
		dir = parent
	}
}
