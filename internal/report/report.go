package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/signalnine/labgrader/internal/result"
)

type SubmissionSummary struct {
	Submission  string                    `json:"submission"`
	Score       float64                   `json:"score"`
	MaxScore    float64                   `json:"max_score"`
	Percent     float64                   `json:"percent"`
	Passed      int                       `json:"passed"`
	Tests       int                       `json:"tests"`
	Aborted     bool                      `json:"aborted"`
	Leaderboard []result.LeaderboardEntry `json:"leaderboard,omitempty"`
}

type CheckRow struct {
	Number   string  `json:"number"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	MaxScore float64 `json:"max_score"`
	Status   string  `json:"status"`
}

// Generate renders a single results file as a per-check breakdown, or a
// directory of them as a per-submission summary.
func Generate(path, format string, w io.Writer) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if !info.IsDir() {
		r, err := result.ReadReport(path)
		if err != nil {
			return err
		}
		return writeBreakdown(r, format, w)
	}

	summaries, err := collectSummaries(path)
	if err != nil {
		return err
	}
	switch format {
	case "markdown":
		return writeMarkdown(summaries, w)
	case "json":
		return writeJSON(summaries, w)
	default:
		return writeTable(summaries, w)
	}
}

func collectSummaries(dir string) ([]SubmissionSummary, error) {
	var summaries []SubmissionSummary
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && info.Name() == "workspace" {
			return filepath.SkipDir
		}
		if info.Name() != result.ReportFile {
			return nil
		}
		r, err := result.ReadReport(path)
		if err != nil {
			return nil
		}
		name, err := filepath.Rel(dir, filepath.Dir(path))
		if err != nil {
			name = filepath.Dir(path)
		}
		summaries = append(summaries, Summarize(filepath.ToSlash(name), r))
		return nil
	})
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Submission < summaries[j].Submission
	})
	return summaries, err
}

// Summarize reduces a report to one row.
func Summarize(name string, r *result.Report) SubmissionSummary {
	s := SubmissionSummary{
		Submission:  name,
		Score:       r.Score,
		MaxScore:    r.MaxScore(),
		Tests:       len(r.Tests),
		Aborted:     r.Output != "",
		Leaderboard: r.Leaderboard,
	}
	for _, t := range r.Tests {
		if t.Status == string(result.StatusPassed) {
			s.Passed++
		}
	}
	if s.MaxScore > 0 {
		s.Percent = s.Score / s.MaxScore * 100
	}
	return s
}

// Breakdown lists a report's checks in report order.
func Breakdown(r *result.Report) []CheckRow {
	rows := make([]CheckRow, 0, len(r.Tests))
	for _, t := range r.Tests {
		rows = append(rows, CheckRow{
			Number:   t.Number,
			Name:     t.Name,
			Score:    t.Score,
			MaxScore: t.MaxScore,
			Status:   t.Status,
		})
	}
	return rows
}

func leaderboardText(entries []result.LeaderboardEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%s=%g", e.Name, e.Value))
	}
	return strings.Join(parts, ", ")
}

func writeBreakdown(r *result.Report, format string, w io.Writer) error {
	rows := Breakdown(r)
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "markdown":
		fmt.Fprintln(w, "| # | Check | Score | Status |")
		fmt.Fprintln(w, "|---|---|---|---|")
		for _, row := range rows {
			fmt.Fprintf(w, "| %s | %s | %g/%g | %s |\n", row.Number, row.Name, row.Score, row.MaxScore, row.Status)
		}
		fmt.Fprintf(w, "\n**Total: %g/%g**\n", r.Score, r.MaxScore())
		if len(r.Leaderboard) > 0 {
			fmt.Fprintf(w, "\nLeaderboard: %s\n", leaderboardText(r.Leaderboard))
		}
		return nil
	default:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tCHECK\tSCORE\tSTATUS")
		fmt.Fprintln(tw, strings.Repeat("-", 60))
		for _, row := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%g/%g\t%s\n", row.Number, row.Name, row.Score, row.MaxScore, row.Status)
		}
		fmt.Fprintf(tw, "\tTOTAL\t%g/%g\t\n", r.Score, r.MaxScore())
		if err := tw.Flush(); err != nil {
			return err
		}
		if r.Output != "" {
			fmt.Fprintf(w, "\n%s\n", r.Output)
		}
		if len(r.Leaderboard) > 0 {
			fmt.Fprintf(w, "\nLeaderboard: %s\n", leaderboardText(r.Leaderboard))
		}
		return nil
	}
}

func writeTable(summaries []SubmissionSummary, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBMISSION\tSCORE\tPERCENT\tPASSED\tLEADERBOARD\tNOTE")
	fmt.Fprintln(tw, strings.Repeat("-", 80))
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%g/%g\t%.0f%%\t%d/%d\t%s\t%s\n",
			s.Submission, s.Score, s.MaxScore, s.Percent, s.Passed, s.Tests, leaderboardText(s.Leaderboard), note(s))
	}
	return tw.Flush()
}

func writeMarkdown(summaries []SubmissionSummary, w io.Writer) error {
	fmt.Fprintln(w, "| Submission | Score | Percent | Passed | Leaderboard | Note |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|")
	for _, s := range summaries {
		fmt.Fprintf(w, "| %s | %g/%g | %.0f%% | %d/%d | %s | %s |\n",
			s.Submission, s.Score, s.MaxScore, s.Percent, s.Passed, s.Tests, leaderboardText(s.Leaderboard), note(s))
	}
	return nil
}

func writeJSON(summaries []SubmissionSummary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}

func note(s SubmissionSummary) string {
	if s.Aborted {
		return "aborted"
	}
	return ""
}
