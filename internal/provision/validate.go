// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provision

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pdiddy/nconvert-bash/internal/command"
	"github.com/pdiddy/nconvert-bash/pkg/types"
)

const (
	versionTimeout = 5 * time.Second
	pipShowTimeout = 30 * time.Second
)

// RemediationHint tells the operator how to repair a failed validation.
const RemediationHint = "Run `nconvert-bash install` to repair the installation."

// Check is the result of one validation check.
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// Report collects validation checks in the order they ran.
type Report struct {
	Checks []Check `json:"checks"`
}

// OK reports whether every check passed.
func (r Report) OK() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

// Write prints one ✓/✗ line per check, then the remediation hint if any
// check failed.
func (r Report) Write(w io.Writer) {
	for _, c := range r.Checks {
		mark := "✓"
		if !c.OK {
			mark = "✗"
		}
		if c.Detail != "" {
			fmt.Fprintf(w, "%s %s: %s\n", mark, c.Name, c.Detail)
		} else {
			fmt.Fprintf(w, "%s %s\n", mark, c.Name)
		}
	}
	if !r.OK() {
		fmt.Fprintln(w, RemediationHint)
	}
}

func (r *Report) add(name string, ok bool, format string, args ...any) {
	r.Checks = append(r.Checks, Check{Name: name, OK: ok, Detail: fmt.Sprintf(format, args...)})
}

// Validate checks an existing installation without changing it.
func (p *Provisioner) Validate(ctx context.Context) Report {
	return Validate(ctx, p.cfg, p.exec)
}

// Validate checks that the environment exists, the converter runs, and
// every pinned Python package is installed at its pinned version.
func Validate(ctx context.Context, cfg types.ProvisionConfig, exec command.Executor) Report {
	var r Report
	l := cfg.Layout

	if info, err := os.Stat(l.VenvDir); err == nil && info.IsDir() {
		r.add("virtual environment", true, "%s", l.VenvDir)
	} else {
		r.add("virtual environment", false, "not found at %s", l.VenvDir)
	}

	r.Checks = append(r.Checks, checkConverter(ctx, exec, l.ConverterPath()))

	skip := map[string]bool{}
	for _, s := range cfg.Python.Skip {
		skip[strings.ToLower(s)] = true
	}
	python := l.VenvBin("python")
	for _, req := range cfg.Python.Packages {
		name := PackageName(req)
		if skip[strings.ToLower(name)] {
			continue
		}
		r.Checks = append(r.Checks, checkPackage(ctx, exec, python, name, PinnedVersion(req)))
	}
	return r
}

func checkConverter(ctx context.Context, exec command.Executor, bin string) Check {
	c := Check{Name: "nconvert"}
	info, err := os.Stat(bin)
	if err != nil {
		c.Detail = "not found at " + bin
		return c
	}
	if info.Mode().Perm()&0o111 == 0 {
		c.Detail = bin + " is not executable"
		return c
	}
	res := exec.Run(ctx, command.Cmd{Name: bin, Args: []string{"-version"}, Timeout: versionTimeout})
	if res.TimedOut {
		c.Detail = fmt.Sprintf("version check timed out after %s", versionTimeout)
		return c
	}
	if !res.OK() {
		c.Detail = "version check failed: " + res.ErrorText()
		return c
	}
	c.OK = true
	c.Detail = firstLine(res.Stdout)
	return c
}

func checkPackage(ctx context.Context, exec command.Executor, python, name, want string) Check {
	c := Check{Name: name}
	res := exec.Run(ctx, command.Cmd{
		Name:    python,
		Args:    []string{"-m", "pip", "show", name},
		Timeout: pipShowTimeout,
	})
	if !res.OK() {
		c.Detail = "not installed"
		return c
	}
	got := showField(res.Stdout, "Version")
	if want != "" && got != want {
		c.Detail = fmt.Sprintf("version mismatch: expected %s, found %s", want, got)
		return c
	}
	c.OK = true
	c.Detail = "version " + got
	return c
}

// showField extracts "Key: value" from pip show output.
func showField(out []byte, key string) string {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		k, v, ok := strings.Cut(sc.Text(), ":")
		if ok && strings.EqualFold(strings.TrimSpace(k), key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
