package runner

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/signalnine/labgrader/internal/config"
	"github.com/signalnine/labgrader/internal/docker"
	"github.com/signalnine/labgrader/internal/executor"
	"github.com/signalnine/labgrader/internal/result"
	"github.com/signalnine/labgrader/internal/validation"
)

// Plan is everything a session needs to grade one submission. Checks are
// sorted by id.
type Plan struct {
	Assignment       string
	WorkDir          string
	TotalPoints      float64
	Gate             *validation.QualityGate
	Checks           []*validation.CheckSpec
	Leaderboard      *validation.LeaderboardCheck
	Visibility       result.Visibility
	StdoutVisibility result.Visibility
}

// BuildPlan turns an assignment's configuration into check specs. workDir
// overrides the assignment's work_dir when set.
func BuildPlan(cfg *config.Config, assignment, workDir string) (*Plan, error) {
	a, err := cfg.Assignment(assignment)
	if err != nil {
		return nil, err
	}
	if workDir == "" {
		workDir = a.WorkDir
	}
	if workDir == "" {
		return nil, fmt.Errorf("assignment %q: no work dir configured", a.Name)
	}

	p := &Plan{
		Assignment:  a.Name,
		WorkDir:     workDir,
		TotalPoints: a.TotalPoints,
	}
	if p.Visibility, err = result.ParseVisibility(cfg.Visibility); err != nil {
		return nil, err
	}
	if cfg.StdoutVisibility != "" {
		if p.StdoutVisibility, err = result.ParseVisibility(cfg.StdoutVisibility); err != nil {
			return nil, err
		}
	}

	if g := a.Gate; g != nil {
		mode, err := validation.ParseGateMode(g.Mode)
		if err != nil {
			return nil, err
		}
		p.Gate = &validation.QualityGate{
			ID:      g.ID,
			Label:   g.Label,
			Command: g.CommandLine(),
			Hint:    g.Hint,
			Mode:    mode,
			Timeout: cfg.Timeout(a, g.TimeoutSeconds),
		}
	}

	for i := range a.Checks {
		c := &a.Checks[i]
		v, err := validation.ParseVerifier(c.Verify, c.Expect)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", c.ID, err)
		}
		p.Checks = append(p.Checks, &validation.CheckSpec{
			ID:       c.ID,
			Label:    c.Label,
			Weight:   c.Weight,
			Command:  c.CommandLine(cfg.Toolchain),
			Verifier: v,
			Gated:    c.IsGated(),
			Timeout:  cfg.Timeout(a, c.TimeoutSeconds),
		})
	}
	if err := validation.ValidateChecks(p.Checks); err != nil {
		return nil, fmt.Errorf("assignment %q: %w", a.Name, err)
	}
	validation.SortChecks(p.Checks)

	if l := a.Leaderboard; l != nil {
		order, err := result.ParseSortOrder(l.Order)
		if err != nil {
			return nil, err
		}
		p.Leaderboard = &validation.LeaderboardCheck{
			ID:      l.ID,
			Label:   l.Label,
			Name:    l.Name,
			Command: l.Command,
			Order:   order,
			Gated:   l.IsGated(),
			Timeout: cfg.Timeout(a, l.TimeoutSeconds),
		}
	}
	return p, nil
}

// NewExecutor picks the configured backend.
func NewExecutor(cfg *config.Config, logger *zap.Logger) (executor.Executor, error) {
	switch cfg.Executor.Backend {
	case "", config.BackendLocal:
		ex := executor.NewLocal(logger)
		switch cfg.Executor.Shell {
		case "":
		case config.ShellNone:
			ex.Shell = ""
		default:
			ex.Shell = cfg.Executor.Shell
		}
		ex.Env = cfg.Executor.Env
		return ex, nil
	case config.BackendDocker:
		return docker.New(cfg.Executor.Image, cfg.Executor.Env, logger), nil
	default:
		return nil, fmt.Errorf("unknown executor backend %q", cfg.Executor.Backend)
	}
}
