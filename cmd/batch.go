package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/signalnine/labgrader/internal/config"
	"github.com/signalnine/labgrader/internal/executor"
	"github.com/signalnine/labgrader/internal/gitops"
	"github.com/signalnine/labgrader/internal/report"
	"github.com/signalnine/labgrader/internal/result"
	"github.com/signalnine/labgrader/internal/runner"
)

var flagParallel int

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch SUBMISSION...",
		Short: "Grade many submissions into a run directory",
		Long: "Each SUBMISSION is a local directory or a git URL with an optional @ref. " +
			"Submissions are staged under the run directory and graded concurrently.",
		Args: cobra.MinimumNArgs(1),
		RunE: runBatch,
	}
	cmd.Flags().StringVar(&flagAssignment, "assignment", "", "assignment to grade (required)")
	cmd.Flags().IntVar(&flagParallel, "parallel", 1, "max submissions graded at once")
	cmd.MarkFlagRequired("assignment")
	return cmd
}

type submission struct {
	Name   string
	Source gitops.Source
}

// planSubmissions parses sources and gives each a unique directory name.
func planSubmissions(args []string) ([]submission, error) {
	seen := make(map[string]bool, len(args))
	subs := make([]submission, 0, len(args))
	for _, arg := range args {
		src, err := gitops.ParseSource(arg)
		if err != nil {
			return nil, err
		}
		name := src.Name()
		if seen[name] {
			name += "-" + uuid.NewString()[:8]
		}
		seen[name] = true
		subs = append(subs, submission{Name: name, Source: src})
	}
	return subs, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if _, err := cfg.Assignment(flagAssignment); err != nil {
		return err
	}
	subs, err := planSubmissions(args)
	if err != nil {
		return err
	}
	ex, err := runner.NewExecutor(cfg, logger)
	if err != nil {
		return err
	}

	runDir, err := result.CreateRunDir(cfg.Results.Dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Run directory: %s\n", runDir)

	jobs := make([]runner.Job, 0, len(subs))
	for _, sub := range subs {
		jobs = append(jobs, func(ctx context.Context) error {
			return gradeSubmission(ctx, cfg, ex, logger, runDir, sub)
		})
	}
	errs := runner.RunPool(cmd.Context(), flagParallel, jobs)
	for _, err := range errs {
		fmt.Fprintf(cmd.ErrOrStderr(), "  ERROR: %v\n", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "\n--- Results ---")
	if err := report.Generate(runDir, "table", cmd.OutOrStdout()); err != nil {
		return err
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d submissions failed to grade", len(errs), len(subs))
	}
	return nil
}

func gradeSubmission(ctx context.Context, cfg *config.Config, ex executor.Executor, logger *zap.Logger, runDir string, sub submission) error {
	subDir := result.SubmissionDir(runDir, flagAssignment, sub.Name)
	workDir := filepath.Join(subDir, "workspace")
	logger = logger.With(zap.String("submission", sub.Name))

	if err := gitops.Stage(sub.Source, workDir); err != nil {
		return fmt.Errorf("%s: staging: %w", sub.Name, err)
	}
	if sub.Source.Repo != "" {
		if commit, err := gitops.HeadCommit(workDir); err == nil {
			logger.Info("staged submission", zap.String("repo", sub.Source.Repo), zap.String("commit", commit))
		}
	}

	plan, err := runner.BuildPlan(cfg, flagAssignment, workDir)
	if err != nil {
		return fmt.Errorf("%s: %w", sub.Name, err)
	}
	r, runErr := (&runner.Session{Plan: plan, Executor: ex, Logger: logger}).Run(ctx)
	if r != nil {
		if err := result.WriteReport(filepath.Join(subDir, result.ReportFile), r); err != nil {
			return fmt.Errorf("%s: writing report: %w", sub.Name, err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("%s: %w", sub.Name, runErr)
	}
	return nil
}
