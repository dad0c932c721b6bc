package result

import (
	"errors"
	"time"
)

// ErrSealed is returned when an aggregator is used after Build.
var ErrSealed = errors.New("report already built")

// BuildOpts carries report-level settings.
type BuildOpts struct {
	Visibility       Visibility
	StdoutVisibility Visibility
	ExecutionTime    time.Duration
	// Output is shown above all tests; used to explain infrastructure failures.
	Output string
}

// Aggregator collects outcomes in execution order and builds the report once.
type Aggregator struct {
	outcomes    []*Outcome
	leaderboard []LeaderboardEntry
	sealed      bool
}

// Add records an outcome.
func (a *Aggregator) Add(o *Outcome) error {
	if a.sealed {
		return ErrSealed
	}
	a.outcomes = append(a.outcomes, o)
	return nil
}

// AddLeaderboard records a leaderboard metric.
func (a *Aggregator) AddLeaderboard(e *LeaderboardEntry) error {
	if a.sealed {
		return ErrSealed
	}
	a.leaderboard = append(a.leaderboard, *e)
	return nil
}

// Outcomes returns the outcomes recorded so far.
func (a *Aggregator) Outcomes() []*Outcome {
	return append([]*Outcome(nil), a.outcomes...)
}

// Build produces the report and seals the aggregator.
func (a *Aggregator) Build(opts BuildOpts) (*Report, error) {
	if a.sealed {
		return nil, ErrSealed
	}
	a.sealed = true

	vis := opts.Visibility
	if vis == "" {
		vis = VisibilityVisible
	}

	r := &Report{
		Output:           opts.Output,
		Visibility:       vis,
		StdoutVisibility: opts.StdoutVisibility,
		Tests:            make([]Test, 0, len(a.outcomes)),
		Leaderboard:      a.leaderboard,
	}
	if opts.ExecutionTime > 0 {
		secs := int(opts.ExecutionTime.Round(time.Second) / time.Second)
		r.ExecutionTime = &secs
	}
	for _, o := range a.outcomes {
		score := o.Score
		if !o.Passed {
			score = 0
		}
		status := string(StatusFailed)
		if o.Passed {
			status = string(StatusPassed)
		}
		r.Score += score
		r.Tests = append(r.Tests, Test{
			Name:       o.Label,
			Score:      score,
			MaxScore:   o.MaxScore,
			Number:     o.ID,
			Output:     o.Display(),
			Status:     status,
			Visibility: vis,
		})
	}
	return r, nil
}
