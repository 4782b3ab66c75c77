// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package commandtest provides a scripted command.Executor for tests.
package commandtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/pdiddy/nconvert-bash/internal/command"
)

// Fake records every invocation and answers from configured responses. A
// command line with no configured response fails as if the binary were not
// installed.
type Fake struct {
	mu sync.Mutex

	// Paths maps binary names to the path LookPath reports.
	Paths map[string]string

	// Results maps a full command line ("name arg1 arg2") to its result.
	Results map[string]command.Result

	// Func, when set, answers any command line not found in Results.
	Func func(c command.Cmd) command.Result

	calls []command.Cmd
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		Paths:   map[string]string{},
		Results: map[string]command.Result{},
	}
}

// Succeed configures line to exit zero with the given stdout.
func (f *Fake) Succeed(line, stdout string) *Fake {
	f.Results[line] = command.Result{Stdout: []byte(stdout)}
	return f
}

// Fail configures line to exit with status 1 and the given stderr.
func (f *Fake) Fail(line, stderr string) *Fake {
	f.Results[line] = command.Result{
		ExitCode: 1,
		Stderr:   []byte(stderr),
		Err:      errors.New("exit status 1"),
	}
	return f
}

// Timeout configures line to time out.
func (f *Fake) Timeout(line string) *Fake {
	f.Results[line] = command.Result{
		ExitCode: -1,
		TimedOut: true,
		Err:      command.ErrTimeout,
	}
	return f
}

func (f *Fake) LookPath(file string) (string, error) {
	if p, ok := f.Paths[file]; ok {
		return p, nil
	}
	return "", errors.New("executable file not found in $PATH: " + file)
}

func (f *Fake) Run(_ context.Context, c command.Cmd) command.Result {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	res, ok := f.Results[c.String()]
	fn := f.Func
	f.mu.Unlock()

	if ok {
		return res
	}
	if fn != nil {
		return fn(c)
	}
	return command.Result{
		ExitCode: -1,
		Err:      errors.New("exec: \"" + c.Name + "\": executable file not found in $PATH"),
	}
}

// Calls returns the command lines run so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.String()
	}
	return out
}

// Called reports whether any recorded command line starts with prefix.
func (f *Fake) Called(prefix string) bool {
	for _, line := range f.Calls() {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
