package docker_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalnine/labgrader/internal/docker"
	"github.com/signalnine/labgrader/internal/executor"
)

func requireDocker(t *testing.T) {
	t.Helper()
	if os.Getenv("LABGRADER_DOCKER_TESTS") == "" {
		t.Skip("set LABGRADER_DOCKER_TESTS=1 to run Docker tests")
	}
}

func TestExecutorRun(t *testing.T) {
	requireDocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	workDir := t.TempDir()
	os.WriteFile(filepath.Join(workDir, "Cargo.toml"), []byte("[package]\n"), 0o644)

	ex := docker.New("alpine:latest", map[string]string{"GREETING": "Hello"}, nil)
	res, err := ex.Run(ctx, &executor.Request{
		Command: "ls && echo $GREETING >&2 && echo done > out.txt",
		WorkDir: workDir,
		Timeout: 30 * time.Second,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 0 || res.TimedOut {
		t.Fatalf("unexpected result %+v", res)
	}
	if want := "cargo.toml\r\nhello"; res.Output != want {
		t.Errorf("output: got %q, want %q", res.Output, want)
	}
	content, err := os.ReadFile(filepath.Join(workDir, "out.txt"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(content) != "done\n" {
		t.Errorf("work dir not shared: got %q", content)
	}
}

func TestExecutorTimeout(t *testing.T) {
	requireDocker(t)
	ex := docker.New("alpine:latest", nil, nil)
	res, err := ex.Run(context.Background(), &executor.Request{
		Command: "sleep 300",
		WorkDir: t.TempDir(),
		Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.TimedOut {
		t.Error("expected timeout")
	}
	if res.ExitCode != executor.TimeoutExitCode {
		t.Errorf("exit code: got %d, want %d", res.ExitCode, executor.TimeoutExitCode)
	}
}

func TestExecutorNonZeroExit(t *testing.T) {
	requireDocker(t)
	ex := docker.New("alpine:latest", nil, nil)
	res, err := ex.Run(context.Background(), &executor.Request{
		Command: "echo 'test result: FAILED' && exit 101",
		WorkDir: t.TempDir(),
		Timeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 101 {
		t.Errorf("exit code: got %d, want 101", res.ExitCode)
	}
	if res.Output != "test result: failed" {
		t.Errorf("output: got %q", res.Output)
	}
}

func TestExecutorMissingImage(t *testing.T) {
	requireDocker(t)
	ex := docker.New("labgrader-no-such-image:never", nil, nil)
	_, err := ex.Run(context.Background(), &executor.Request{Command: "true", WorkDir: t.TempDir()})
	if !errors.Is(err, executor.ErrSpawn) {
		t.Errorf("expected ErrSpawn, got %v", err)
	}
}

func TestExecutorRejectsBadRequest(t *testing.T) {
	ex := docker.New("alpine:latest", nil, nil)
	_, err := ex.Run(context.Background(), &executor.Request{Command: "true"})
	if !errors.Is(err, executor.ErrSpawn) {
		t.Errorf("expected ErrSpawn for missing work dir, got %v", err)
	}
	ex.Image = ""
	_, err = ex.Run(context.Background(), &executor.Request{Command: "true", WorkDir: t.TempDir()})
	if !errors.Is(err, executor.ErrSpawn) {
		t.Errorf("expected ErrSpawn for missing image, got %v", err)
	}
}
