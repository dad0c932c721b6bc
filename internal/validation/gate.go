package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/signalnine/labgrader/internal/executor"
	"github.com/signalnine/labgrader/internal/result"
)

// GateMode decides what happens to gated checks when the gate fails.
type GateMode int

const (
	// GateZero runs gated checks so the submitter sees real output, but
	// forces their score to zero.
	GateZero GateMode = iota
	// GateSkip does not run gated checks at all.
	GateSkip
)

// ParseGateMode accepts "zero" (default) or "skip".
func ParseGateMode(s string) (GateMode, error) {
	switch s {
	case "", "zero":
		return GateZero, nil
	case "skip":
		return GateSkip, nil
	default:
		return GateZero, fmt.Errorf("unknown gate mode %q (want zero or skip)", s)
	}
}

// DefaultGateHint is shown to the submitter when the gate fails.
const DefaultGateHint = "Please fix the lints above to receive credit for this assignment\n" +
	"Hint: run `cargo fmt` if you see a 'diff' warning, and `cargo clippy` otherwise!"

// QualityGate is the lint/format precondition consulted by every gated check.
type QualityGate struct {
	ID      string
	Label   string
	Command string
	Hint    string
	Mode    GateMode
	Timeout time.Duration
}

// GateResult is computed once per session and only read afterwards.
type GateResult struct {
	Output   string
	Passed   bool
	TimedOut bool
	Mode     GateMode
	Duration time.Duration
	// Ran is false when no gate command is configured.
	Ran bool
}

// Evaluate runs the gate command once and classifies it with
// ErrorsAndWarnings. A nil gate or empty command always passes.
func (g *QualityGate) Evaluate(ctx context.Context, ex executor.Executor, workDir string) (*GateResult, error) {
	if g == nil || g.Command == "" {
		return &GateResult{Passed: true}, nil
	}
	res, err := ex.Run(ctx, &executor.Request{
		Command: g.Command,
		WorkDir: workDir,
		Timeout: g.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("quality gate: %w", err)
	}
	return &GateResult{
		Output:   res.Output,
		Passed:   PolicyVerifier{Policy: ErrorsAndWarnings}.Verify(res),
		TimedOut: res.TimedOut,
		Mode:     g.Mode,
		Duration: res.Duration,
		Ran:      true,
	}, nil
}

// Outcome is the gate's own informational entry in the report. It carries
// no weight; on failure the remediation hint follows the output.
func (g *QualityGate) Outcome(gr *GateResult) *result.Outcome {
	o := &result.Outcome{
		ID:        g.ID,
		Label:     g.Label,
		Command:   g.Command,
		RawOutput: gr.Output,
		Passed:    gr.Passed,
		Status:    result.StatusPassed,
		Duration:  gr.Duration,
	}
	switch {
	case gr.TimedOut:
		o.Status = result.StatusTimeout
	case !gr.Passed:
		o.Status = result.StatusFailed
	}
	if !gr.Passed {
		hint := g.Hint
		if hint == "" {
			hint = DefaultGateHint
		}
		o.RawOutput += "\n\nDetected warnings and/or errors in the lint and format check output!\n" + hint
	}
	return o
}
