package runner_test

import (
	"context"
	"errors"
	"sync"

	"github.com/signalnine/labgrader/internal/executor"
)

// fakeExecutor answers commands from a table and records the order they ran.
type fakeExecutor struct {
	mu      sync.Mutex
	outputs map[string]string
	timeout map[string]bool
	fail    map[string]error
	calls   []string
}

func newFake(outputs map[string]string) *fakeExecutor {
	return &fakeExecutor{outputs: outputs, timeout: map[string]bool{}, fail: map[string]error{}}
}

func (f *fakeExecutor) Run(ctx context.Context, req *executor.Request) (*executor.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req.Command)
	if err := f.fail[req.Command]; err != nil {
		return nil, err
	}
	if f.timeout[req.Command] {
		return &executor.Result{TimedOut: true, ExitCode: executor.TimeoutExitCode, Duration: req.Timeout}, nil
	}
	out, ok := f.outputs[req.Command]
	if !ok {
		return nil, &executor.SpawnError{Command: req.Command, Err: errors.New("command not found")}
	}
	return &executor.Result{Output: out}, nil
}
