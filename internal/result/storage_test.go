package result_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/signalnine/labgrader/internal/result"
)

func TestWriteAndReadReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results", result.ReportFile)
	secs := 42
	r := &result.Report{
		Score:         25,
		ExecutionTime: &secs,
		Visibility:    result.VisibilityVisible,
		Tests: []result.Test{
			{Name: "Testing mean", Score: 25, MaxScore: 25, Number: "1.0", Output: "ok", Visibility: result.VisibilityVisible},
		},
		Leaderboard: []result.LeaderboardEntry{{Name: "runtime", Value: 12.765, Order: result.OrderAsc}},
	}
	if err := result.WriteReport(path, r); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	got, err := result.ReadReport(path)
	if err != nil {
		t.Fatalf("ReadReport: %v", err)
	}
	if got.Score != r.Score {
		t.Errorf("score: got %f, want %f", got.Score, r.Score)
	}
	if len(got.Tests) != 1 || got.Tests[0].Number != "1.0" {
		t.Errorf("tests: got %+v", got.Tests)
	}
	if len(got.Leaderboard) != 1 || got.Leaderboard[0].Value != 12.765 {
		t.Errorf("leaderboard: got %+v", got.Leaderboard)
	}
}

func TestReadReportMissing(t *testing.T) {
	if _, err := result.ReadReport(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing report")
	}
}

func TestCreateRunDir(t *testing.T) {
	base := t.TempDir()
	runDir, err := result.CreateRunDir(base)
	if err != nil {
		t.Fatalf("CreateRunDir: %v", err)
	}
	if _, err := os.Stat(runDir); os.IsNotExist(err) {
		t.Errorf("run directory not created: %s", runDir)
	}
	latest := filepath.Join(base, "latest")
	target, err := os.Readlink(latest)
	if err != nil {
		t.Fatalf("reading latest symlink: %v", err)
	}
	if target != runDir {
		t.Errorf("latest symlink: got %q, want %q", target, runDir)
	}
}

func TestSubmissionDir(t *testing.T) {
	base := t.TempDir()
	dir := result.SubmissionDir(base, "rowlab", "alice")
	expected := filepath.Join(base, "submissions", "rowlab", "alice")
	if dir != expected {
		t.Errorf("got %q, want %q", dir, expected)
	}
}
