package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/signalnine/labgrader/internal/result"
	"github.com/signalnine/labgrader/internal/runner"
)

var (
	flagAssignment string
	flagWorkDir    string
	flagOutput     string
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Grade one submission and write results.json",
		RunE:  runGrade,
	}
	cmd.Flags().StringVar(&flagAssignment, "assignment", "", "assignment to grade (required)")
	cmd.Flags().StringVar(&flagWorkDir, "work-dir", "", "submission crate root; overrides the assignment's work_dir")
	cmd.Flags().StringVar(&flagOutput, "output", "", "results file; defaults to results.path from the config")
	cmd.MarkFlagRequired("assignment")
	return cmd
}

func runGrade(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	plan, err := runner.BuildPlan(cfg, flagAssignment, flagWorkDir)
	if err != nil {
		return err
	}
	ex, err := runner.NewExecutor(cfg, logger)
	if err != nil {
		return err
	}

	session := &runner.Session{Plan: plan, Executor: ex, Logger: logger}
	report, runErr := session.Run(cmd.Context())
	if report == nil {
		return runErr
	}

	out := flagOutput
	if out == "" {
		out = cfg.Results.Path
	}
	if err := result.WriteReport(out, report); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	logger.Info("report written", zap.String("path", out))
	fmt.Fprintf(cmd.OutOrStdout(), "Score: %g/%g\nResults: %s\n", report.Score, report.MaxScore(), out)
	return runErr
}
