package result

import (
	"fmt"
	"time"
)

// Status records how a check ended.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusTimeout Status = "timeout"
	StatusGated   Status = "gated"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Outcome is the recorded result of one check. Score is zero unless Passed.
type Outcome struct {
	ID        string
	Label     string
	Command   string
	RawOutput string
	Passed    bool
	Score     float64
	MaxScore  float64
	Status    Status
	Message   string
	Duration  time.Duration
}

// Display renders the text shown to the submitter: the outcome message, the
// command that ran, and its full output.
func (o *Outcome) Display() string {
	var out string
	if o.Message != "" {
		out = o.Message + "\n\n"
	}
	if o.Command != "" {
		out += fmt.Sprintf("Running `%s`...\n\n", o.Command)
	}
	out += o.RawOutput
	if o.Status == StatusTimeout {
		out += fmt.Sprintf("\n\nCommand timed out after %s.", o.Duration.Round(time.Second))
	}
	return out
}

// SortOrder ranks leaderboard values.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ParseSortOrder accepts asc, desc, or empty (asc).
func ParseSortOrder(s string) (SortOrder, error) {
	switch s {
	case "", string(OrderAsc):
		return OrderAsc, nil
	case string(OrderDesc):
		return OrderDesc, nil
	default:
		return "", fmt.Errorf("unknown sort order %q (want asc or desc)", s)
	}
}

// Visibility controls when the grading platform shows a test to students.
type Visibility string

const (
	VisibilityHidden         Visibility = "hidden"
	VisibilityAfterDue       Visibility = "after_due_date"
	VisibilityAfterPublished Visibility = "after_published"
	VisibilityVisible        Visibility = "visible"
)

// ParseVisibility accepts the platform's visibility names; empty means visible.
func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(s); v {
	case "":
		return VisibilityVisible, nil
	case VisibilityHidden, VisibilityAfterDue, VisibilityAfterPublished, VisibilityVisible:
		return v, nil
	default:
		return "", fmt.Errorf("unknown visibility %q", s)
	}
}

// Report is the results document read by the grading platform.
type Report struct {
	Score            float64            `json:"score"`
	ExecutionTime    *int               `json:"execution_time,omitempty"`
	Output           string             `json:"output,omitempty"`
	Visibility       Visibility         `json:"visibility,omitempty"`
	StdoutVisibility Visibility         `json:"stdout_visibility,omitempty"`
	Tests            []Test             `json:"tests"`
	Leaderboard      []LeaderboardEntry `json:"leaderboard,omitempty"`
}

// Test is one check as the platform displays it.
type Test struct {
	Name       string     `json:"name"`
	Score      float64    `json:"score"`
	MaxScore   float64    `json:"max_score"`
	Number     string     `json:"number"`
	Output     string     `json:"output"`
	Status     string     `json:"status,omitempty"`
	Visibility Visibility `json:"visibility"`
}

// LeaderboardEntry is a single ranked metric.
type LeaderboardEntry struct {
	Name  string    `json:"name"`
	Value float64   `json:"value"`
	Order SortOrder `json:"order"`
}

// MaxScore sums the max_score of every test.
func (r *Report) MaxScore() float64 {
	var total float64
	for _, t := range r.Tests {
		total += t.MaxScore
	}
	return total
}
