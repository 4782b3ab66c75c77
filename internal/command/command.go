// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package command runs external programs with a bounded timeout and reports
// their outcome as a value. Callers decide what a non-zero exit means; a
// timeout or a missing binary is never a panic or an unhandled error, only a
// Result that is not OK.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Wait blocks on output pipes after the process
// has been killed, so orphaned grandchildren cannot hold a call open.
const waitDelay = 2 * time.Second

// Cmd describes a single invocation.
type Cmd struct {
	Name string
	Args []string

	// Timeout bounds the invocation. Zero means no limit beyond ctx.
	Timeout time.Duration

	// Stream, when non-nil, receives stdout and stderr as they are produced
	// in addition to being captured in the Result.
	Stream io.Writer
}

// String renders the command line for log and error messages.
func (c Cmd) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the outcome of running a Cmd.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte

	// TimedOut is set when the process was killed because Timeout elapsed.
	TimedOut bool

	// Err is nil only when the process started and exited with status zero.
	Err error
}

// OK reports whether the command ran to completion with exit status zero.
func (r Result) OK() bool {
	return r.Err == nil
}

// ErrorText returns the most useful description of a failure: trimmed
// stderr when the program wrote any, otherwise the error itself.
func (r Result) ErrorText() string {
	if s := strings.TrimSpace(string(r.Stderr)); s != "" {
		return s
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	return ""
}

// ErrTimeout is wrapped into Result.Err when a command exceeds its timeout.
var ErrTimeout = errors.New("command timed out")

// Executor abstracts command execution so callers can be tested without
// spawning processes.
type Executor interface {
	// LookPath resolves file against PATH.
	LookPath(file string) (string, error)

	// Run executes c and waits for it to finish or time out.
	Run(ctx context.Context, c Cmd) Result
}

// OSExecutor is the production Executor backed by os/exec.
type OSExecutor struct{}

// NewOSExecutor returns an Executor that spawns real processes.
func NewOSExecutor() *OSExecutor {
	return &OSExecutor{}
}

func (o *OSExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *OSExecutor) Run(ctx context.Context, c Cmd) Result {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.WaitDelay = waitDelay
	if c.Stream != nil {
		cmd.Stdout = io.MultiWriter(&stdout, c.Stream)
		cmd.Stderr = io.MultiWriter(&stderr, c.Stream)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	res := Result{
		ExitCode: -1,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case err == nil:
		res.ExitCode = 0
	case ctx.Err() == context.DeadlineExceeded:
		res.TimedOut = true
		res.Err = fmt.Errorf("%s: %w after %s", c.Name, ErrTimeout, c.Timeout)
	default:
		res.Err = fmt.Errorf("%s: %w", c.Name, err)
	}
	return res
}
