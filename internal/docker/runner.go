// Package docker runs check commands inside a toolchain container, for hosts
// where the toolchain is not installed next to the grader.
package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"
	"go.uber.org/zap"

	"github.com/signalnine/labgrader/internal/executor"
)

// ContainerWorkDir is where the request's work dir is mounted.
const ContainerWorkDir = "/workspace"

// Executor implements executor.Executor with one short-lived container per
// command. The work dir is bind-mounted read-write so build artifacts persist
// between checks.
type Executor struct {
	Image  string
	Env    map[string]string
	Logger *zap.Logger
}

func New(image string, env map[string]string, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{Image: image, Env: env, Logger: logger}
}

func (e *Executor) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func spawnErr(cmd string, err error) error {
	return &executor.SpawnError{Command: cmd, Err: err}
}

// Run executes req.Command with `sh -c` in the image. The container runs with
// a TTY so stdout and stderr arrive as one stream.
func (e *Executor) Run(ctx context.Context, req *executor.Request) (*executor.Result, error) {
	if err := executor.ValidateRequest(req); err != nil {
		return nil, err
	}
	if e.Image == "" {
		return nil, spawnErr(req.Command, errors.New("no container image configured"))
	}
	workDir, err := filepath.Abs(req.WorkDir)
	if err != nil {
		return nil, spawnErr(req.Command, fmt.Errorf("resolving work dir: %w", err))
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, spawnErr(req.Command, fmt.Errorf("creating docker client: %w", err))
	}
	defer cli.Close()

	envSlice := make([]string, 0, len(e.Env)+len(req.Env))
	for k, v := range e.Env {
		envSlice = append(envSlice, k+"="+v)
	}
	for k, v := range req.Env {
		envSlice = append(envSlice, k+"="+v)
	}

	initTrue := true
	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{
			{
				Type:   mount.TypeBind,
				Source: workDir,
				Target: ContainerWorkDir,
			},
		},
		Init: &initTrue,
	}
	containerCfg := &container.Config{
		Image:      e.Image,
		Cmd:        []string{"sh", "-c", req.Command},
		Env:        envSlice,
		WorkingDir: ContainerWorkDir,
		Tty:        true,
		Labels:     map[string]string{"labgrader": "true"},
	}

	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     containerCfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		return nil, spawnErr(req.Command, fmt.Errorf("creating container: %w", err))
	}
	containerID := createResp.ID
	defer func() {
		cli.ContainerRemove(context.Background(), containerID, client.ContainerRemoveOptions{Force: true})
	}()

	e.logger().Debug("running command in container",
		zap.String("command", req.Command),
		zap.String("image", e.Image),
		zap.String("container", containerID),
		zap.Duration("timeout", req.Timeout))

	start := time.Now()
	if _, err := cli.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return nil, spawnErr(req.Command, fmt.Errorf("starting container: %w", err))
	}

	waitCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	waitResult := cli.ContainerWait(waitCtx, containerID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	for {
		select {
		case err := <-waitResult.Error:
			if err == nil {
				// nil error means no error on this channel; wait for result
				continue
			}
			cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGKILL"})
			if ctx.Err() != nil {
				return nil, fmt.Errorf("running %q: %w", req.Command, ctx.Err())
			}
			if !errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
				return nil, spawnErr(req.Command, fmt.Errorf("waiting for container: %w", err))
			}
			e.logger().Warn("command timed out",
				zap.String("command", req.Command),
				zap.Duration("timeout", req.Timeout))
			return &executor.Result{
				Output:   e.logs(cli, containerID),
				ExitCode: executor.TimeoutExitCode,
				TimedOut: true,
				Duration: time.Since(start),
			}, nil
		case status := <-waitResult.Result:
			return &executor.Result{
				Output:   e.logs(cli, containerID),
				ExitCode: int(status.StatusCode),
				Duration: time.Since(start),
			}, nil
		}
	}
}

func (e *Executor) logs(cli *client.Client, containerID string) string {
	logReader, err := cli.ContainerLogs(context.Background(), containerID, client.ContainerLogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		e.logger().Warn("reading container logs", zap.String("container", containerID), zap.Error(err))
		return ""
	}
	defer logReader.Close()
	logData, _ := io.ReadAll(logReader)
	return executor.Normalize(logData)
}
