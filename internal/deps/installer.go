// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package deps

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pdiddy/nconvert-bash/internal/command"
)

const (
	updateTimeout = 300 * time.Second
	bulkTimeout   = 600 * time.Second
	singleTimeout = 300 * time.Second
	aptGet        = "apt-get"
	sudo          = "sudo"
)

// InstallResult records which packages ended up installed.
type InstallResult struct {
	Installed []string
	Failed    []string
}

// OK reports whether every requested package was installed.
func (r InstallResult) OK() bool {
	return len(r.Failed) == 0
}

// Installer installs packages through apt-get.
type Installer struct {
	exec   command.Executor
	out    io.Writer
	log    *slog.Logger
	asRoot bool
}

// NewInstaller returns an Installer that prefixes commands with sudo unless
// the process already runs as root. Command output is streamed to out.
func NewInstaller(exec command.Executor, out io.Writer, log *slog.Logger) *Installer {
	if out == nil {
		out = io.Discard
	}
	if log == nil {
		log = slog.Default()
	}
	return &Installer{
		exec:   exec,
		out:    out,
		log:    log,
		asRoot: os.Geteuid() == 0,
	}
}

// Install refreshes the package index, tries one bulk install, and on
// failure retries each package on its own so a single broken package does
// not hold back the others. An empty list is a no-op success.
func (i *Installer) Install(ctx context.Context, packages []string) InstallResult {
	if len(packages) == 0 {
		return InstallResult{}
	}
	if err := i.requireTools(); err != nil {
		i.log.Warn("package manager unavailable", "error", err)
		fmt.Fprintf(i.out, "✗ %v\n", err)
		return InstallResult{Failed: append([]string(nil), packages...)}
	}

	fmt.Fprintln(i.out, "Updating package list...")
	if res := i.apt(ctx, updateTimeout, "update"); !res.OK() {
		// A stale index can still satisfy installs; carry on.
		i.log.Warn("package index update failed", "error", res.ErrorText())
		fmt.Fprintf(i.out, "⚠ package index update failed: %s\n", res.ErrorText())
	}

	fmt.Fprintf(i.out, "Installing packages: %s\n", strings.Join(packages, ", "))
	args := append([]string{"install", "-y"}, packages...)
	bulk := i.apt(ctx, bulkTimeout, args...)
	if bulk.OK() {
		fmt.Fprintln(i.out, "✓ System packages installed successfully")
		return InstallResult{Installed: append([]string(nil), packages...)}
	}
	i.log.Warn("bulk install failed", "packages", packages, "error", bulk.ErrorText(), "timed_out", bulk.TimedOut)
	fmt.Fprintf(i.out, "✗ Package installation failed: %s\n", bulk.ErrorText())

	fmt.Fprintln(i.out, "Attempting to install packages individually...")
	var result InstallResult
	for _, p := range packages {
		fmt.Fprintf(i.out, "Installing %s individually...\n", p)
		res := i.apt(ctx, singleTimeout, "install", "-y", p)
		if res.OK() {
			fmt.Fprintf(i.out, "✓ Installed %s\n", p)
			result.Installed = append(result.Installed, p)
			continue
		}
		i.log.Debug("single install failed", "package", p, "error", res.ErrorText())
		fmt.Fprintf(i.out, "✗ Failed to install %s\n", p)
		result.Failed = append(result.Failed, p)
	}
	return result
}

// requireTools checks that apt-get, and sudo when not root, are on PATH.
func (i *Installer) requireTools() error {
	tools := []string{aptGet}
	if !i.asRoot {
		tools = append(tools, sudo)
	}
	for _, t := range tools {
		if _, err := i.exec.LookPath(t); err != nil {
			return fmt.Errorf("%s not found on PATH", t)
		}
	}
	return nil
}

func (i *Installer) apt(ctx context.Context, timeout time.Duration, args ...string) command.Result {
	c := command.Cmd{Name: aptGet, Args: args, Timeout: timeout, Stream: i.out}
	if !i.asRoot {
		c = command.Cmd{Name: sudo, Args: append([]string{aptGet}, args...), Timeout: timeout, Stream: i.out}
	}
	i.log.Debug("running package manager", "cmd", c.String())
	return i.exec.Run(ctx, c)
}

// ManualCommand renders the command an operator can run to install
// packages by hand.
func ManualCommand(packages []string) string {
	return "sudo apt-get install " + strings.Join(packages, " ")
}
