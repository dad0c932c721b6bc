// Package executor runs toolchain commands for a grading session and returns
// their merged, normalized output.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimeoutExitCode is reported for commands killed after exceeding their timeout.
const TimeoutExitCode = 124

// ErrSpawn marks infrastructure failures: the command could not be started at
// all, as opposed to a command that ran and reported failure.
var ErrSpawn = errors.New("command could not be spawned")

// SpawnError describes why a command never ran.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawning %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() []error {
	return []error{ErrSpawn, e.Err}
}

// Request is a single command invocation. WorkDir is required; executors never
// fall back to the process working directory.
type Request struct {
	Command string
	WorkDir string
	Timeout time.Duration
	Env     map[string]string
}

// Result holds what a command produced.
type Result struct {
	Output   string // normalized: trimmed and lower-cased
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// Executor runs one command to completion.
type Executor interface {
	Run(ctx context.Context, req *Request) (*Result, error)
}

// Normalize decodes merged process output for classification.
func Normalize(out []byte) string {
	return strings.ToLower(strings.TrimSpace(string(out)))
}

// ValidateRequest rejects requests no executor can run.
func ValidateRequest(req *Request) error {
	if req == nil || strings.TrimSpace(req.Command) == "" {
		return &SpawnError{Err: errors.New("empty command")}
	}
	if req.WorkDir == "" {
		return &SpawnError{Command: req.Command, Err: errors.New("work dir is required")}
	}
	return nil
}
