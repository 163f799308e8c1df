package bridge

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Worker is a handle to a running worker process. Stdin accepts request
// lines, Stdout yields response bytes, and Stderr yields diagnostic text.
type Worker struct {
	Stdin  io.WriteCloser
	Stdout io.ReadCloser
	Stderr io.ReadCloser
	PID    int

	kill func() error
	wait func() (int, error)
}

// Kill forcibly terminates the worker.
func (w *Worker) Kill() error { return w.kill() }

// Wait blocks until the worker exits and returns its exit code. The error is
// non-nil only for failures other than a non-zero exit.
func (w *Worker) Wait() (int, error) { return w.wait() }

// Launcher abstracts how a worker process is started, so the same bridge can
// drive a bare executable or a containerized worker.
type Launcher interface {
	Launch(ctx context.Context) (*Worker, error)
}

// ExecLauncher starts the worker directly with os/exec.
type ExecLauncher struct {
	Command string
	Args    []string
	Env     []string
	Dir     string
}

func (l *ExecLauncher) Launch(ctx context.Context) (*Worker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(l.Command, l.Args...)
	if len(l.Env) > 0 {
		cmd.Env = append(os.Environ(), l.Env...)
	}
	cmd.Dir = l.Dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %q: %w", l.Command, err)
	}

	return &Worker{
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
		PID:    cmd.Process.Pid,
		kill:   func() error { return cmd.Process.Kill() },
		wait: func() (int, error) {
			err := cmd.Wait()
			if err != nil {
				if exitErr, ok := err.(*exec.ExitError); ok {
					return exitErr.ExitCode(), nil
				}
				return -1, err
			}
			return 0, nil
		},
	}, nil
}

// ContainerLauncher starts the worker inside a container by shelling out to
// the docker CLI. Stdio is attached with "docker run -i" so the line protocol
// works the same as with a direct exec.
type ContainerLauncher struct {
	Image   string
	Command []string
	Env     []string
	// Mounts are "host:container" bind specs.
	Mounts []string
	// DockerPath overrides the docker binary to invoke. Defaults to "docker".
	DockerPath string
}

// ContainerCLIInstalled reports whether the docker CLI is on the PATH.
func ContainerCLIInstalled() bool {
	_, err := exec.LookPath("docker")
	return err == nil
}

func (l *ContainerLauncher) Launch(ctx context.Context) (*Worker, error) {
	dockerPath := l.DockerPath
	if dockerPath == "" {
		dockerPath = "docker"
	}
	exe := &ExecLauncher{
		Command: dockerPath,
		Args:    l.runArgs(),
	}
	return exe.Launch(ctx)
}

func (l *ContainerLauncher) runArgs() []string {
	args := []string{"run", "-i", "--rm"}
	for _, e := range l.Env {
		args = append(args, "-e", e)
	}
	for _, m := range l.Mounts {
		args = append(args, "-v", m)
	}
	args = append(args, l.Image)
	args = append(args, l.Command...)
	return args
}
