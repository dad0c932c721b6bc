package validation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/signalnine/labgrader/internal/executor"
	"github.com/signalnine/labgrader/internal/result"
)

// Errors returned by ExtractTiming.
var (
	// ErrTimingNotFound means the output has no `time: [...]` line.
	ErrTimingNotFound = errors.New("could not find `time` data in the expected criterion format")
	// ErrTimingGroups means the brackets did not hold exactly three measurements.
	ErrTimingGroups = errors.New("expected 3 time measurements")
	// ErrTimingParse means the middle measurement is not a finite number.
	ErrTimingParse = errors.New("time measurement is not a number")
)

// timeLineRe finds the bracketed estimate on a benchmark's `time:` line.
var timeLineRe = regexp.MustCompile(`time:\s*\[([^\]]*)\]`)

// Seconds per unit suffix. Criterion picks the unit per benchmark.
var timeUnits = map[string]float64{
	"s":  1,
	"ms": 1e-3,
	"us": 1e-6,
	"µs": 1e-6,
	"ns": 1e-9,
}

// ExtractTiming returns the middle value of a `time: [low mid high]` line,
// the benchmark's point estimate, in seconds.
func ExtractTiming(text string) (float64, error) {
	m := timeLineRe.FindStringSubmatch(text)
	if m == nil {
		return 0, ErrTimingNotFound
	}

	type group struct {
		value string
		unit  string
	}
	var groups []group
	for _, f := range strings.Fields(m[1]) {
		if _, ok := timeUnits[f]; ok {
			if len(groups) > 0 && groups[len(groups)-1].unit == "" {
				groups[len(groups)-1].unit = f
			}
			continue
		}
		g := group{value: f}
		for _, u := range []string{"ms", "us", "µs", "ns", "s"} {
			if v, ok := strings.CutSuffix(f, u); ok && v != "" {
				g = group{value: v, unit: u}
				break
			}
		}
		groups = append(groups, g)
	}
	if len(groups) != 3 {
		return 0, fmt.Errorf("%w, found %d", ErrTimingGroups, len(groups))
	}

	mid := groups[1]
	v, err := strconv.ParseFloat(mid.value, 64)
	if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
		err = strconv.ErrSyntax
	}
	if err != nil {
		return 0, fmt.Errorf("%w: failed to convert %q to a float", ErrTimingParse, mid.value)
	}
	unit := mid.unit
	if unit == "" {
		unit = "s"
	}
	return v * timeUnits[unit], nil
}

// LeaderboardCheck runs a benchmark and publishes its point estimate. It
// carries no score.
type LeaderboardCheck struct {
	ID      string
	Label   string
	Name    string
	Command string
	Order   result.SortOrder
	Gated   bool
	Timeout time.Duration
}

// Run executes the benchmark. A failed gate withholds the metric; under
// GateSkip the benchmark is not run. Parse failures are reported on the
// outcome rather than defaulted.
func (l *LeaderboardCheck) Run(ctx context.Context, ex executor.Executor, workDir string, gate *GateResult) (*result.Outcome, *result.LeaderboardEntry, error) {
	gateFailed := l.Gated && gate != nil && !gate.Passed
	o := &result.Outcome{
		ID:      l.ID,
		Label:   l.Label,
		Command: l.Command,
	}
	if gateFailed && gate.Mode == GateSkip {
		o.Status = result.StatusSkipped
		o.Message = MsgGateSkipped
		o.Command = ""
		return o, nil, nil
	}

	res, err := ex.Run(ctx, &executor.Request{
		Command: l.Command,
		WorkDir: workDir,
		Timeout: l.Timeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("leaderboard %s: %w", l.Name, err)
	}
	o.RawOutput = res.Output
	o.Duration = res.Duration

	if res.TimedOut {
		o.Status = result.StatusTimeout
		return o, nil, nil
	}
	if gateFailed {
		o.Status = result.StatusGated
		o.Message = MsgGateFailed
		return o, nil, nil
	}

	value, err := ExtractTiming(res.Output)
	if err != nil {
		o.Status = result.StatusError
		o.RawOutput += "\n\n" + err.Error()
		return o, nil, nil
	}
	o.Passed = true
	o.Status = result.StatusPassed
	return o, &result.LeaderboardEntry{Name: l.Name, Value: value, Order: l.Order}, nil
}
