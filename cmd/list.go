package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/signalnine/labgrader/internal/config"
	"github.com/signalnine/labgrader/internal/runner"
)

func newListCmd() *cobra.Command {
	var assignment string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assignments and their checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			return writeList(cfg, assignment, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&assignment, "assignment", "", "only list this assignment")
	return cmd
}

func writeList(cfg *config.Config, only string, w io.Writer) error {
	for _, a := range cfg.Assignments {
		if only != "" && a.Name != only {
			continue
		}
		// List is informational, so a missing work dir is not an error here.
		plan, err := runner.BuildPlan(cfg, a.Name, placeholderWorkDir(a))
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s (%g points)\n", a.Name, a.TotalPoints)
		if plan.Gate != nil {
			fmt.Fprintf(w, "  %-6s gate    %s\n", plan.Gate.ID, plan.Gate.Command)
		}
		for _, c := range plan.Checks {
			fmt.Fprintf(w, "  %-6s %-7g %s: %s\n", c.ID, c.Weight, c.Label, c.Command)
		}
		if l := plan.Leaderboard; l != nil {
			fmt.Fprintf(w, "  %-6s board   %s (%s): %s\n", l.ID, l.Name, l.Order, l.Command)
		}
	}
	return nil
}

func placeholderWorkDir(a config.Assignment) string {
	if a.WorkDir != "" {
		return a.WorkDir
	}
	return "."
}
