package validation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/signalnine/labgrader/internal/executor"
	"github.com/signalnine/labgrader/internal/result"
)

// Messages prefixed to check output, matching what students see on the
// grading platform.
const (
	MsgGatePassed = "Lint and format checks succeeded, moving on to tests:"
	MsgGateFailed = "Detected warnings and/or errors in the lint and format check output! " +
		"Setting score to 0 and moving on to tests:"
	MsgGateSkipped = "Detected warnings and/or errors in the lint and format check output! " +
		"Skipping this test."
	MsgCheckFailed = "Error detected! Please review the above to see what went wrong."
)

// CheckSpec is one weighted unit of grading work. It is built once from
// configuration and never mutated.
type CheckSpec struct {
	ID       string
	Label    string
	Weight   float64
	Command  string
	Verifier Verifier
	Gated    bool
	Timeout  time.Duration
}

// Execute runs the check and scores it against gate. A failed gate zeroes a
// gated check's score; under GateSkip the command is not run at all. Only
// infrastructure failures are returned as errors.
func (c *CheckSpec) Execute(ctx context.Context, ex executor.Executor, workDir string, gate *GateResult) (*result.Outcome, error) {
	gateFailed := c.Gated && gate != nil && !gate.Passed

	o := &result.Outcome{
		ID:       c.ID,
		Label:    c.Label,
		Command:  c.Command,
		MaxScore: c.Weight,
	}
	if gateFailed && gate.Mode == GateSkip {
		o.Status = result.StatusSkipped
		o.Message = MsgGateSkipped
		o.Command = ""
		return o, nil
	}

	res, err := ex.Run(ctx, &executor.Request{
		Command: c.Command,
		WorkDir: workDir,
		Timeout: c.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", c.ID, err)
	}
	o.RawOutput = res.Output
	o.Duration = res.Duration

	verifier := c.Verifier
	if verifier == nil {
		verifier = PolicyVerifier{Policy: ErrorsOnly}
	}
	passed := verifier.Verify(res)

	switch {
	case res.TimedOut:
		o.Status = result.StatusTimeout
	case !passed:
		o.Status = result.StatusFailed
	case gateFailed:
		o.Status = result.StatusGated
	default:
		o.Status = result.StatusPassed
	}

	if c.Gated && gate != nil && gate.Ran {
		if gateFailed {
			o.Message = MsgGateFailed
		} else {
			o.Message = MsgGatePassed
		}
	}

	o.Passed = passed && !gateFailed
	if o.Passed {
		o.Score = c.Weight
	}
	if !passed && !res.TimedOut {
		o.RawOutput += "\n\n" + MsgCheckFailed
	}
	return o, nil
}

// SortChecks orders checks by ascending dotted id, keeping declaration order
// for equal ids.
func SortChecks(checks []*CheckSpec) {
	sort.SliceStable(checks, func(i, j int) bool {
		return CompareIDs(checks[i].ID, checks[j].ID) < 0
	})
}

// ValidateChecks reports malformed ids, duplicate ids, negative weights and
// empty commands.
func ValidateChecks(checks []*CheckSpec) error {
	seen := make(map[string]bool, len(checks))
	var errs []error
	for _, c := range checks {
		if _, err := ParseID(c.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[c.ID] {
			errs = append(errs, fmt.Errorf("duplicate check id %q", c.ID))
		}
		seen[c.ID] = true
		if c.Weight < 0 {
			errs = append(errs, fmt.Errorf("check %s: weight %v is negative", c.ID, c.Weight))
		}
		if c.Command == "" {
			errs = append(errs, fmt.Errorf("check %s: command is required", c.ID))
		}
	}
	return errors.Join(errs...)
}
