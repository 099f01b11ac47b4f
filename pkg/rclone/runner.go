package rclone

//go:generate mockery -name Runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
)

// Result is the outcome of an rclone process that ran to completion.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Success returns whether rclone exited cleanly.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner runs rclone subcommands. An error is only returned when the process
// couldn't be started or waited on. A process that exits with a non-zero code
// is reported through Result.ExitCode.
type Runner interface {
	Run(ctx context.Context, args []string, env map[string]string) (Result, error)
}

// NewRunner returns a Runner that executes the rclone binary at `path`.
func NewRunner(path string) Runner {
	return execRunner{path: path}
}

type execRunner struct {
	path string
}

func (r execRunner) Run(ctx context.Context, args []string, env map[string]string) (Result, error) {
	cmd := exec.CommandContext(ctx, r.path, args...)

	// The environment is appended to our own so that rclone still finds its
	// config directory, proxies, and so on.
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), formatEnv(env)...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return res, err
		}
		res.ExitCode = exitErr.ExitCode()
	}
	return res, nil
}

func formatEnv(env map[string]string) []string {
	var formatted []string
	for k, v := range env {
		formatted = append(formatted, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(formatted)
	return formatted
}
