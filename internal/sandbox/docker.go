package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/rs/zerolog"

	"github.com/sempr/judgecore/internal/execution"
	"github.com/sempr/judgecore/internal/metrics"
)

// runGrace is added to the submission's time limit before the driver gives
// up waiting on the container and falls back to a hard kill; it absorbs
// container-start overhead that should not itself count against the
// submitter.
const runGrace = 2 * time.Second

// DockerSandbox drives submissions through the Docker Engine API: one
// hardened, network-disabled container per Execution, sources written in via
// exec rather than CopyToContainer (which does not work against the tmpfs
// workspace mount), and resource accounting read back from container
// inspection.
type DockerSandbox struct {
	cli          *client.Client
	logger       *zerolog.Logger
	buildTimeout time.Duration
}

// NewDockerSandbox connects to the Docker daemon using the environment's
// standard DOCKER_HOST configuration. buildTimeout bounds the build phase
// independently of any submission's own time limit; expiry there is reported
// as a Compilation Error, never a TLE.
func NewDockerSandbox(logger *zerolog.Logger, buildTimeout time.Duration) (*DockerSandbox, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSandboxUnavailable, err)
	}
	return &DockerSandbox{cli: cli, logger: logger, buildTimeout: buildTimeout}, nil
}

func (s *DockerSandbox) Build(ctx context.Context, exec *execution.Execution) (BuildResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.buildTimeout)
	defer cancel()

	pidsLimit := int64(64)
	creationStart := time.Now()
	resp, err := s.cli.ContainerCreate(ctx, &container.Config{
		Image:           exec.Policy.Image,
		Cmd:             []string{"sleep", "infinity"},
		OpenStdin:       true,
		StdinOnce:       true,
		NetworkDisabled: true,
		WorkingDir:      "/workspace",
		User:            "nobody",
	}, &container.HostConfig{
		Resources: container.Resources{
			Memory:     int64(exec.MemoryLimit) * 1024 * 1024,
			MemorySwap: int64(exec.MemoryLimit) * 1024 * 1024,
			CPUQuota:   100000,
			PidsLimit:  &pidsLimit,
		},
		NetworkMode: "none",
		SecurityOpt: []string{"no-new-privileges"},
		CapDrop:     []string{"ALL"},
		Tmpfs: map[string]string{
			"/workspace": "rw,exec,nosuid,size=64m,mode=1777",
			"/tmp":       "rw,noexec,nosuid,size=16m,mode=1777",
		},
	}, nil, nil, "")
	if err != nil {
		return BuildResult{}, fmt.Errorf("%w: create container: %v", ErrSandboxUnavailable, err)
	}
	exec.ContainerID = resp.ID

	if err := s.cli.ContainerStart(ctx, exec.ContainerID, container.StartOptions{}); err != nil {
		return BuildResult{}, fmt.Errorf("%w: start container: %v", ErrSandboxUnavailable, err)
	}
	metrics.ContainerCreationDuration.Observe(float64(time.Since(creationStart).Milliseconds()))

	if err := s.writeFile(ctx, exec.ContainerID, exec.SourceFile, exec); err != nil {
		return BuildResult{}, err
	}

	if !exec.Policy.RequiresCompilation {
		return BuildResult{OK: true}, nil
	}

	stdout, stderr, exitCode, err := s.exec(ctx, exec.ContainerID, exec.BuildCommand(), "")
	if err != nil {
		if ctx.Err() != nil {
			return BuildResult{OK: false, Stderr: "build timed out"}, nil
		}
		return BuildResult{}, fmt.Errorf("%w: run build command: %v", ErrSandboxUnavailable, err)
	}
	_ = stdout
	if exitCode != 0 {
		return BuildResult{OK: false, Stderr: stderr}, nil
	}
	return BuildResult{OK: true}, nil
}

func (s *DockerSandbox) Run(ctx context.Context, exec *execution.Execution) (RunResult, error) {
	input, err := exec.InputBytes()
	if err != nil {
		return RunResult{}, fmt.Errorf("read input file: %w", err)
	}

	budget := time.Duration(exec.TimeLimit)*time.Second + runGrace
	runCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	start := time.Now()
	stdout, stderr, exitCode, err := s.exec(runCtx, exec.ContainerID, exec.RunCommand(), string(input))
	elapsed := time.Since(start)

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			_ = s.cli.ContainerKill(context.Background(), exec.ContainerID, "SIGKILL")
			return RunResult{TimedOut: true}, nil
		}
		return RunResult{}, fmt.Errorf("%w: run submission: %v", ErrSandboxUnavailable, err)
	}

	clipped := false
	if len(stdout) > DefaultStdoutCap {
		stdout = stdout[:DefaultStdoutCap]
		clipped = true
	}

	memoryKilled := false
	if inspect, inspectErr := s.cli.ContainerInspect(context.Background(), exec.ContainerID); inspectErr == nil {
		memoryKilled = inspect.State.OOMKilled
	}

	return RunResult{
		ExitCode:      exitCode,
		Stdout:        stdout,
		Stderr:        stderr,
		WallClockMs:   elapsed.Milliseconds(),
		MemoryKilled:  memoryKilled,
		StdoutClipped: clipped,
	}, nil
}

func (s *DockerSandbox) Remove(ctx context.Context, exec *execution.Execution) error {
	if exec.ContainerID == "" {
		return nil
	}
	return s.cli.ContainerRemove(ctx, exec.ContainerID, container.RemoveOptions{Force: true})
}

// writeFile streams source bytes into the running container via exec, since
// CopyToContainer cannot target a tmpfs mount.
func (s *DockerSandbox) writeFile(ctx context.Context, containerID, name string, exec *execution.Execution) error {
	source, err := exec.SourceBytes()
	if err != nil {
		return fmt.Errorf("read materialized source: %w", err)
	}
	writeCmd := []string{"sh", "-c", fmt.Sprintf("cat > /workspace/%s", name)}
	_, stderr, exitCode, err := s.exec(ctx, containerID, writeCmd, string(source))
	if err != nil {
		return fmt.Errorf("%w: write source: %v", ErrSandboxUnavailable, err)
	}
	if exitCode != 0 {
		return fmt.Errorf("%w: write source exited %d: %s", ErrSandboxUnavailable, exitCode, stderr)
	}
	return nil
}

// exec runs cmd inside containerID, feeding stdin (if non-empty) and
// returning demuxed stdout/stderr plus the exit code.
func (s *DockerSandbox) exec(ctx context.Context, containerID string, cmd []string, stdin string) (string, string, int, error) {
	execResp, err := s.cli.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		Cmd:          cmd,
		WorkingDir:   "/workspace",
		AttachStdin:  stdin != "",
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", "", 0, err
	}

	attach, err := s.cli.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return "", "", 0, err
	}
	defer attach.Close()

	if stdin != "" {
		if _, err := attach.Conn.Write([]byte(stdin)); err != nil {
			return "", "", 0, fmt.Errorf("write stdin: %w", err)
		}
	}
	_ = attach.CloseWrite()

	var stdout, stderr bytes.Buffer
	done := make(chan error, 1)
	go func() {
		_, copyErr := stdcopy.StdCopy(&stdout, &stderr, attach.Reader)
		done <- copyErr
	}()

	select {
	case copyErr := <-done:
		if copyErr != nil {
			return "", "", 0, copyErr
		}
	case <-ctx.Done():
		return "", "", 0, ctx.Err()
	}

	inspect, err := s.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return "", "", 0, err
	}
	return stdout.String(), stderr.String(), inspect.ExitCode, nil
}

// EnsureImage pulls img if it is not already present locally. Called once at
// startup per distinct language image, not per Execution.
func (s *DockerSandbox) EnsureImage(ctx context.Context, img string) error {
	if _, _, err := s.cli.ImageInspectWithRaw(ctx, img); err == nil {
		return nil
	}

	s.logger.Info().Str("image", img).Msg("pulling docker image")
	reader, err := s.cli.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", img, err)
	}
	defer reader.Close()
	_, _ = io.Copy(io.Discard, reader)

	s.logger.Info().Str("image", img).Msg("pulled docker image")
	return nil
}
