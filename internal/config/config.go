package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/shlex"
	"gopkg.in/yaml.v3"

	"github.com/signalnine/labgrader/internal/result"
	"github.com/signalnine/labgrader/internal/validation"
)

const (
	BackendLocal  = "local"
	BackendDocker = "docker"

	// ShellNone makes the local backend exec the command's argv directly.
	ShellNone = "none"

	DefaultResultsPath    = "/autograder/results/results.json"
	DefaultResultsDir     = "results"
	DefaultTestCmd        = "cargo test"
	DefaultBenchCmd       = "cargo bench"
	DefaultTimeoutSeconds = 600
	DefaultImage          = "rust:1.83"
	DefaultGateID         = "0.0"
	DefaultGateLabel      = "Testing cargo clippy"
	DefaultLeaderboardID  = "99.0"
)

type Config struct {
	Executor         Executor     `yaml:"executor"`
	Results          Results      `yaml:"results"`
	Log              Log          `yaml:"log"`
	Visibility       string       `yaml:"visibility"`
	StdoutVisibility string       `yaml:"stdout_visibility"`
	Toolchain        Toolchain    `yaml:"toolchain"`
	Assignments      []Assignment `yaml:"assignments"`
}

type Executor struct {
	Backend        string            `yaml:"backend"`
	Shell          string            `yaml:"shell"`
	Image          string            `yaml:"image"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	Env            map[string]string `yaml:"env"`
}

type Results struct {
	Path string `yaml:"path"`
	Dir  string `yaml:"dir"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Toolchain struct {
	TestCmd  string `yaml:"test_cmd"`
	BenchCmd string `yaml:"bench_cmd"`
}

type Assignment struct {
	Name           string       `yaml:"name"`
	WorkDir        string       `yaml:"work_dir"`
	TotalPoints    float64      `yaml:"total_points"`
	TimeoutSeconds int          `yaml:"timeout_seconds"`
	Gate           *Gate        `yaml:"gate"`
	Checks         []Check      `yaml:"checks"`
	Leaderboard    *Leaderboard `yaml:"leaderboard"`
}

type Gate struct {
	ID             string `yaml:"id"`
	Label          string `yaml:"label"`
	Lint           string `yaml:"lint"`
	Format         string `yaml:"format"`
	Hint           string `yaml:"hint"`
	Mode           string `yaml:"mode"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Check struct {
	ID             string  `yaml:"id"`
	Label          string  `yaml:"label"`
	Command        string  `yaml:"command"`
	Filter         string  `yaml:"filter"`
	Release        bool    `yaml:"release"`
	Exact          bool    `yaml:"exact"`
	Doc            bool    `yaml:"doc"`
	Weight         float64 `yaml:"weight"`
	Verify         string  `yaml:"verify"`
	Expect         string  `yaml:"expect"`
	Gated          *bool   `yaml:"gated"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

type Leaderboard struct {
	ID             string `yaml:"id"`
	Label          string `yaml:"label"`
	Name           string `yaml:"name"`
	Command        string `yaml:"command"`
	Order          string `yaml:"order"`
	Gated          *bool  `yaml:"gated"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse unmarshals, validates and fills defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &cfg, nil
}

// Assignment looks up an assignment by name.
func (c *Config) Assignment(name string) (*Assignment, error) {
	for i := range c.Assignments {
		if c.Assignments[i].Name == name {
			return &c.Assignments[i], nil
		}
	}
	return nil, fmt.Errorf("unknown assignment %q", name)
}

// CommandLine joins lint and format so the format check only runs after lint
// succeeds.
func (g *Gate) CommandLine() string {
	if g == nil {
		return ""
	}
	switch {
	case g.Lint != "" && g.Format != "":
		return g.Lint + " && " + g.Format
	case g.Lint != "":
		return g.Lint
	default:
		return g.Format
	}
}

// IsGated reports whether the check is zeroed by a failing gate. Checks are
// gated unless they opt out.
func (c *Check) IsGated() bool {
	return c.Gated == nil || *c.Gated
}

func (l *Leaderboard) IsGated() bool {
	return l.Gated == nil || *l.Gated
}

// CommandLine returns the explicit command, or builds one from the
// toolchain's test command: `test_cmd [--release] [--doc] [filter] [-- --exact]`.
func (c *Check) CommandLine(tc Toolchain) string {
	if c.Command != "" {
		return c.Command
	}
	parts := []string{tc.TestCmd}
	if c.Release {
		parts = append(parts, "--release")
	}
	if c.Doc {
		parts = append(parts, "--doc")
	}
	if c.Filter != "" {
		parts = append(parts, c.Filter)
	}
	if c.Exact {
		parts = append(parts, "--", "--exact")
	}
	return strings.Join(parts, " ")
}

// Timeout resolves a per-command timeout: the command's own, then the
// assignment's, then the executor default.
func (c *Config) Timeout(a *Assignment, seconds int) time.Duration {
	switch {
	case seconds > 0:
		return time.Duration(seconds) * time.Second
	case a != nil && a.TimeoutSeconds > 0:
		return time.Duration(a.TimeoutSeconds) * time.Second
	default:
		return time.Duration(c.Executor.TimeoutSeconds) * time.Second
	}
}

func validate(cfg *Config) error {
	switch cfg.Executor.Backend {
	case "":
		cfg.Executor.Backend = BackendLocal
	case BackendLocal, BackendDocker:
	default:
		return fmt.Errorf("executor: unknown backend %q (want local or docker)", cfg.Executor.Backend)
	}
	if cfg.Executor.Backend == BackendDocker && cfg.Executor.Image == "" {
		cfg.Executor.Image = DefaultImage
	}
	if cfg.Executor.TimeoutSeconds < 0 {
		return fmt.Errorf("executor: timeout_seconds must not be negative")
	}
	if cfg.Executor.TimeoutSeconds == 0 {
		cfg.Executor.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.Results.Path == "" {
		cfg.Results.Path = DefaultResultsPath
	}
	if cfg.Results.Dir == "" {
		cfg.Results.Dir = DefaultResultsDir
	}
	if cfg.Toolchain.TestCmd == "" {
		cfg.Toolchain.TestCmd = DefaultTestCmd
	}
	if cfg.Toolchain.BenchCmd == "" {
		cfg.Toolchain.BenchCmd = DefaultBenchCmd
	}
	if _, err := result.ParseVisibility(cfg.Visibility); err != nil {
		return err
	}
	if _, err := result.ParseVisibility(cfg.StdoutVisibility); err != nil {
		return fmt.Errorf("stdout_visibility: %w", err)
	}

	if len(cfg.Assignments) == 0 {
		return fmt.Errorf("no assignments defined")
	}
	names := make(map[string]bool, len(cfg.Assignments))
	for i := range cfg.Assignments {
		a := &cfg.Assignments[i]
		if a.Name == "" {
			return fmt.Errorf("assignment %d: name is required", i)
		}
		if names[a.Name] {
			return fmt.Errorf("assignment %q: duplicate name", a.Name)
		}
		names[a.Name] = true
		if err := validateAssignment(a, cfg.Toolchain); err != nil {
			return fmt.Errorf("assignment %q: %w", a.Name, err)
		}
	}
	return nil
}

func validateAssignment(a *Assignment, tc Toolchain) error {
	if a.TotalPoints < 0 {
		return fmt.Errorf("total_points must not be negative")
	}
	if len(a.Checks) == 0 {
		return fmt.Errorf("no checks defined")
	}

	var errs []error
	if g := a.Gate; g != nil {
		if g.ID == "" {
			g.ID = DefaultGateID
		}
		if g.Label == "" {
			g.Label = DefaultGateLabel
		}
		if g.CommandLine() == "" {
			errs = append(errs, fmt.Errorf("gate: lint or format command is required"))
		}
		if _, err := validation.ParseGateMode(g.Mode); err != nil {
			errs = append(errs, fmt.Errorf("gate: %w", err))
		}
	}

	seen := make(map[string]bool, len(a.Checks))
	for i := range a.Checks {
		c := &a.Checks[i]
		if _, err := validation.ParseID(c.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[c.ID] {
			errs = append(errs, fmt.Errorf("duplicate check id %q", c.ID))
		}
		seen[c.ID] = true
		if c.Weight < 0 {
			errs = append(errs, fmt.Errorf("check %s: weight must not be negative", c.ID))
		}
		if c.Label == "" {
			c.Label = "Check " + c.ID
		}
		if c.Command != "" && (c.Filter != "" || c.Release || c.Exact || c.Doc) {
			errs = append(errs, fmt.Errorf("check %s: command cannot be combined with filter/release/exact/doc", c.ID))
		}
		if _, err := shlex.Split(c.CommandLine(tc)); err != nil {
			errs = append(errs, fmt.Errorf("check %s: command: %w", c.ID, err))
		}
		if _, err := validation.ParseVerifier(c.Verify, c.Expect); err != nil {
			errs = append(errs, fmt.Errorf("check %s: %w", c.ID, err))
		}
		if c.TimeoutSeconds < 0 {
			errs = append(errs, fmt.Errorf("check %s: timeout_seconds must not be negative", c.ID))
		}
	}

	if l := a.Leaderboard; l != nil {
		if l.ID == "" {
			l.ID = DefaultLeaderboardID
		}
		if l.Name == "" {
			errs = append(errs, fmt.Errorf("leaderboard: name is required"))
		}
		if l.Label == "" {
			l.Label = "Leaderboard: " + l.Name
		}
		if l.Command == "" {
			l.Command = tc.BenchCmd
		}
		if _, err := result.ParseSortOrder(l.Order); err != nil {
			errs = append(errs, fmt.Errorf("leaderboard: %w", err))
		}
		if seen[l.ID] {
			errs = append(errs, fmt.Errorf("leaderboard id %q collides with a check", l.ID))
		}
	}
	return errors.Join(errs...)
}
