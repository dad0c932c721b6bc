package validation_test

import (
	"context"
	"fmt"

	"github.com/signalnine/labgrader/internal/executor"
)

// fakeExecutor returns canned results keyed by command and records calls.
type fakeExecutor struct {
	results map[string]*executor.Result
	errs    map[string]error
	calls   []string
	dirs    []string
}

func newFake() *fakeExecutor {
	return &fakeExecutor{results: map[string]*executor.Result{}, errs: map[string]error{}}
}

func (f *fakeExecutor) on(cmd, output string) *fakeExecutor {
	f.results[cmd] = &executor.Result{Output: output}
	return f
}

func (f *fakeExecutor) Run(ctx context.Context, req *executor.Request) (*executor.Result, error) {
	f.calls = append(f.calls, req.Command)
	f.dirs = append(f.dirs, req.WorkDir)
	if err, ok := f.errs[req.Command]; ok {
		return nil, err
	}
	res, ok := f.results[req.Command]
	if !ok {
		return nil, &executor.SpawnError{Command: req.Command, Err: fmt.Errorf("unexpected command")}
	}
	cp := *res
	return &cp, nil
}

func (f *fakeExecutor) count(cmd string) int {
	n := 0
	for _, c := range f.calls {
		if c == cmd {
			n++
		}
	}
	return n
}
