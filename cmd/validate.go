package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/labgrader/internal/config"
	"github.com/signalnine/labgrader/internal/runner"
	"github.com/signalnine/labgrader/internal/validation"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config for errors and weight mismatches",
		Long:  "Load the config, build every assignment's plan, and report check weights that do not add up to the assignment's total_points.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			warnings, err := auditConfig(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, w := range warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			fmt.Fprintf(out, "%s: %d assignments OK, %d warnings\n", cfgFile, len(cfg.Assignments), len(warnings))
			return nil
		},
	}
}

// auditConfig builds every plan. Weight mismatches are warnings; they never
// block grading.
func auditConfig(cfg *config.Config) ([]string, error) {
	var warnings []string
	for _, a := range cfg.Assignments {
		plan, err := runner.BuildPlan(cfg, a.Name, placeholderWorkDir(a))
		if err != nil {
			return nil, err
		}
		if a.WorkDir == "" {
			warnings = append(warnings, fmt.Sprintf("%s: no work_dir; pass --work-dir when grading", a.Name))
		}
		if err := validation.AuditWeights(plan.Checks, plan.TotalPoints); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", a.Name, err))
		}
	}
	return warnings, nil
}
