package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/google/shlex"
	"go.uber.org/zap"
)

// DefaultShell interprets check commands so that `&&` chains work.
const DefaultShell = "sh"

// DefaultWaitDelay bounds how long Wait blocks on pipes still held by
// orphaned grandchildren after the command itself exits or is killed.
const DefaultWaitDelay = 5 * time.Second

// Local runs commands as child processes of the grader.
type Local struct {
	// Shell runs the command as `Shell -c Command`. When empty the command is
	// split into argv and executed directly.
	Shell string
	// Env is added to every command's environment; Request.Env wins on
	// conflicts.
	Env map[string]string
	// WaitDelay overrides DefaultWaitDelay when positive.
	WaitDelay time.Duration
	Logger    *zap.Logger
}

// NewLocal returns a Local executor using the default shell.
func NewLocal(logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{Shell: DefaultShell, Logger: logger}
}

func (l *Local) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

func (l *Local) command(ctx context.Context, req *Request) (*exec.Cmd, error) {
	if l.Shell != "" {
		return exec.CommandContext(ctx, l.Shell, "-c", req.Command), nil
	}
	argv, err := shlex.Split(req.Command)
	if err != nil {
		return nil, fmt.Errorf("parsing command: %w", err)
	}
	if len(argv) == 0 {
		return nil, errors.New("command is empty after parsing")
	}
	return exec.CommandContext(ctx, argv[0], argv[1:]...), nil
}

// Run executes req.Command in req.WorkDir with stdout and stderr merged.
func (l *Local) Run(ctx context.Context, req *Request) (*Result, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	runCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd, err := l.command(runCtx, req)
	if err != nil {
		return nil, &SpawnError{Command: req.Command, Err: err}
	}
	cmd.Dir = req.WorkDir
	if len(l.Env) > 0 || len(req.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range l.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
		for k, v := range req.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	configureProcessGroup(cmd)
	cmd.WaitDelay = DefaultWaitDelay
	if l.WaitDelay > 0 {
		cmd.WaitDelay = l.WaitDelay
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	l.logger().Debug("running command",
		zap.String("command", req.Command),
		zap.String("work_dir", req.WorkDir),
		zap.Duration("timeout", req.Timeout))

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Command: req.Command, Err: err}
	}
	err = cmd.Wait()
	// Background helpers the command left behind die with it.
	killProcessGroup(cmd)
	res := &Result{
		Output:   Normalize(buf.Bytes()),
		Duration: time.Since(start),
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		res.TimedOut = true
		res.ExitCode = TimeoutExitCode
		l.logger().Warn("command timed out",
			zap.String("command", req.Command),
			zap.Duration("timeout", req.Timeout))
		return res, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("running %q: %w", req.Command, ctx.Err())
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case errors.Is(err, exec.ErrWaitDelay):
		// The command finished; an orphan kept the output pipe open.
		res.ExitCode = cmd.ProcessState.ExitCode()
		l.logger().Debug("command left background processes holding its output",
			zap.String("command", req.Command))
	default:
		return nil, &SpawnError{Command: req.Command, Err: err}
	}

	// A shell reports a missing or non-executable program through its exit
	// status rather than a start failure.
	if l.Shell != "" && (res.ExitCode == 126 || res.ExitCode == 127) {
		return nil, &SpawnError{
			Command: req.Command,
			Err:     fmt.Errorf("shell exited %d: %s", res.ExitCode, res.Output),
		}
	}
	return res, nil
}
