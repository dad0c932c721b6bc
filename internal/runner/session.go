package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/signalnine/labgrader/internal/executor"
	"github.com/signalnine/labgrader/internal/result"
)

// Session grades one submission. It is sequential: the gate runs once, then
// every check in id order, then the leaderboard benchmark.
type Session struct {
	Plan     *Plan
	Executor executor.Executor
	Logger   *zap.Logger
}

// InfraFailureOutput prefixes the report output when grading was aborted.
const InfraFailureOutput = "The autograder could not finish grading this submission " +
	"because of an infrastructure error. Please contact course staff.\n\n"

// Run executes the plan. On an infrastructure error the returned report is
// still non-nil: it holds the outcomes recorded so far and an output
// explaining the failure, and the error is returned alongside it.
func (s *Session) Run(ctx context.Context) (*result.Report, error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(
		zap.String("run_id", uuid.NewString()),
		zap.String("assignment", s.Plan.Assignment))

	start := time.Now()
	agg := &result.Aggregator{}
	runErr := s.grade(ctx, agg, logger)

	opts := result.BuildOpts{
		Visibility:       s.Plan.Visibility,
		StdoutVisibility: s.Plan.StdoutVisibility,
		ExecutionTime:    time.Since(start),
	}
	if runErr != nil {
		opts.Output = InfraFailureOutput + runErr.Error()
		logger.Error("grading aborted", zap.Error(runErr))
	}
	report, err := agg.Build(opts)
	if err != nil {
		return nil, err
	}
	logger.Info("grading finished",
		zap.Float64("score", report.Score),
		zap.Float64("max_score", report.MaxScore()),
		zap.Duration("duration", time.Since(start)))
	return report, runErr
}

func (s *Session) grade(ctx context.Context, agg *result.Aggregator, logger *zap.Logger) error {
	p := s.Plan

	gr, err := p.Gate.Evaluate(ctx, s.Executor, p.WorkDir)
	if err != nil {
		return err
	}
	if gr.Ran {
		o := p.Gate.Outcome(gr)
		logOutcome(logger, o)
		if err := agg.Add(o); err != nil {
			return err
		}
	}

	for _, c := range p.Checks {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("grading interrupted before check %s: %w", c.ID, err)
		}
		o, err := c.Execute(ctx, s.Executor, p.WorkDir, gr)
		if err != nil {
			return err
		}
		logOutcome(logger, o)
		if err := agg.Add(o); err != nil {
			return err
		}
	}

	if p.Leaderboard == nil {
		return nil
	}
	o, entry, err := p.Leaderboard.Run(ctx, s.Executor, p.WorkDir, gr)
	if err != nil {
		return err
	}
	logOutcome(logger, o)
	if err := agg.Add(o); err != nil {
		return err
	}
	if entry != nil {
		logger.Info("leaderboard value",
			zap.String("name", entry.Name),
			zap.Float64("value", entry.Value))
		return agg.AddLeaderboard(entry)
	}
	return nil
}

func logOutcome(logger *zap.Logger, o *result.Outcome) {
	logger.Info("check finished",
		zap.String("check", o.ID),
		zap.String("label", o.Label),
		zap.String("status", string(o.Status)),
		zap.Float64("score", o.Score),
		zap.Float64("max_score", o.MaxScore),
		zap.Duration("duration", o.Duration))
}
