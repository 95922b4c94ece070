// Package runner abstracts external command execution. Every subprocess
// the daemon spawns goes through a Runner so callers get captured
// stdout/stderr/exit codes, context-based timeouts, and a fake
// implementation for tests.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Result captures the outcome of one subprocess invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes external commands.
type Runner interface {
	// Run executes name with args in dir. A non-zero exit is returned as
	// an error; the Result is populated either way.
	Run(ctx context.Context, dir, name string, args ...string) (Result, error)
}

// ExecRunner executes real commands via os/exec.
type ExecRunner struct{}

// New returns a Runner backed by os/exec.
func New() *ExecRunner { return &ExecRunner{} }

// Run executes the command and waits for completion. The context
// cancels/kills the subprocess when it expires.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
		return res, nil
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, fmt.Errorf("%s %s failed: %s", name, strings.Join(args, " "), strings.TrimSpace(res.Stderr))
	default:
		res.ExitCode = -1
		if ctx.Err() != nil {
			return res, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), ctx.Err())
		}
		return res, fmt.Errorf("failed to spawn %s: %w", name, err)
	}
}

// Fake is a test double that returns preset results keyed by the joined
// command line.
type Fake struct {
	Results map[string]Result
	Errors  map[string]error
	// Calls records every key Run was invoked with, in order.
	Calls []string
}

// NewFake creates an empty Fake.
func NewFake() *Fake {
	return &Fake{
		Results: make(map[string]Result),
		Errors:  make(map[string]error),
	}
}

// Key builds the lookup key used by Run.
func (f *Fake) Key(name string, args ...string) string {
	return name + " " + strings.Join(args, " ")
}

// Stub registers stdout output for a command line.
func (f *Fake) Stub(stdout string, name string, args ...string) {
	f.Results[f.Key(name, args...)] = Result{Stdout: stdout}
}

// StubError registers a failure for a command line.
func (f *Fake) StubError(err error, name string, args ...string) {
	f.Errors[f.Key(name, args...)] = err
}

// Run returns the preset result for the command line, or an error when
// nothing was registered.
func (f *Fake) Run(_ context.Context, _ string, name string, args ...string) (Result, error) {
	key := f.Key(name, args...)
	f.Calls = append(f.Calls, key)
	if err, ok := f.Errors[key]; ok {
		return Result{ExitCode: 1, Stderr: err.Error()}, err
	}
	if res, ok := f.Results[key]; ok {
		return res, nil
	}
	return Result{ExitCode: 1}, fmt.Errorf("runner.Fake: no result for %q", key)
}
