package validation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/labgrader/internal/executor"
	"github.com/signalnine/labgrader/internal/result"
	"github.com/signalnine/labgrader/internal/validation"
)

const benchOutput = `running benchmarks
sum_rows                time:   [12.694 s 12.765 s 12.857 s]
                        change: [-1.2% +0.4% +2.1%] (p = 0.62 > 0.05)`

func TestExtractTiming(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"seconds", "time: [12.694 s 12.765 s 12.857 s]", 12.765},
		{"surrounding output", benchOutput, 12.765},
		{"milliseconds", "time:   [1.2000 ms 1.5000 ms 1.9000 ms]", 0.0015},
		{"microseconds", "time: [10 µs 20 µs 30 µs]", 20e-6},
		{"attached units", "time: [4ns 5ns 6ns]", 5e-9},
		{"bare numbers", "time: [1 2 3]", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validation.ExtractTiming(tt.text)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestExtractTimingErrors(t *testing.T) {
	_, err := validation.ExtractTiming("benchmark finished")
	assert.ErrorIs(t, err, validation.ErrTimingNotFound)

	_, err = validation.ExtractTiming("time: [1.0 s 2.0 s]")
	assert.ErrorIs(t, err, validation.ErrTimingGroups)
	assert.Contains(t, err.Error(), "found 2")

	_, err = validation.ExtractTiming("time: [1 s 2 s 3 s 4 s]")
	assert.ErrorIs(t, err, validation.ErrTimingGroups)

	for _, mid := range []string{"abc", "nan", "inf", "-Infinity", "NaNs"} {
		_, err = validation.ExtractTiming("brc time: [1.0 s " + mid + " s 3.0 s]")
		assert.ErrorIs(t, err, validation.ErrTimingParse, mid)
	}
}

func benchCheck() *validation.LeaderboardCheck {
	return &validation.LeaderboardCheck{
		ID:      "9.0",
		Label:   "Benchmark",
		Name:    "Runtime (s)",
		Command: "cargo bench",
		Order:   result.OrderAsc,
		Gated:   true,
	}
}

func TestLeaderboardRun(t *testing.T) {
	ex := newFake().on("cargo bench", benchOutput)
	o, entry, err := benchCheck().Run(context.Background(), ex, "/w", passingGate())
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "Runtime (s)", entry.Name)
	assert.InDelta(t, 12.765, entry.Value, 1e-9)
	assert.Equal(t, result.OrderAsc, entry.Order)
	assert.True(t, o.Passed)
	assert.Zero(t, o.MaxScore)
}

func TestLeaderboardRunParseError(t *testing.T) {
	ex := newFake().on("cargo bench", "time: [1.0 s 2.0 s]")
	o, entry, err := benchCheck().Run(context.Background(), ex, "/w", passingGate())
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Equal(t, result.StatusError, o.Status)
	assert.Contains(t, o.RawOutput, "expected 3 time measurements")
}

func TestLeaderboardRunGated(t *testing.T) {
	ex := newFake().on("cargo bench", benchOutput)
	o, entry, err := benchCheck().Run(context.Background(), ex, "/w", failingGate(validation.GateZero))
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Equal(t, result.StatusGated, o.Status)

	ex = newFake()
	o, entry, err = benchCheck().Run(context.Background(), ex, "/w", failingGate(validation.GateSkip))
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Equal(t, result.StatusSkipped, o.Status)
	assert.Empty(t, ex.calls)
}

func TestLeaderboardRunTimeout(t *testing.T) {
	ex := newFake()
	ex.results["cargo bench"] = &executor.Result{TimedOut: true, ExitCode: executor.TimeoutExitCode}
	o, entry, err := benchCheck().Run(context.Background(), ex, "/w", passingGate())
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Equal(t, result.StatusTimeout, o.Status)
}
