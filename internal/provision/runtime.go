// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/nconvert-bash/internal/command"
)

const (
	venvTimeout       = 120 * time.Second
	pipUpgradeTimeout = 120 * time.Second
	pipInstallTimeout = 300 * time.Second
	defaultAttempts   = 3
	defaultPython     = "python3"
)

// PipRetryDelay is the pause between attempts to install one package.
// Tests override this to avoid real sleeps.
var PipRetryDelay = 2 * time.Second

// systemGIPath is where Debian installs PyGObject for the system Python.
var systemGIPath = "/usr/lib/python3/dist-packages/gi"

func (p *Provisioner) createVenv(ctx context.Context) error {
	py := p.cfg.Python.Interpreter
	if py == "" {
		py = defaultPython
	}
	res := p.exec.Run(ctx, command.Cmd{
		Name:    py,
		Args:    []string{"-m", "venv", p.cfg.Layout.VenvDir},
		Timeout: venvTimeout,
		Stream:  p.out,
	})
	if res.TimedOut {
		return fmt.Errorf("virtual environment creation timed out after %s", venvTimeout)
	}
	if !res.OK() {
		return fmt.Errorf("creating virtual environment: %s", res.ErrorText())
	}
	fmt.Fprintf(p.out, "✓ Virtual environment created at %s\n", p.cfg.Layout.VenvDir)
	return nil
}

func (p *Provisioner) installPackages(ctx context.Context) error {
	pip := p.cfg.Layout.VenvBin("pip")

	fmt.Fprintln(p.out, "Upgrading pip...")
	res := p.exec.Run(ctx, command.Cmd{
		Name:    pip,
		Args:    []string{"install", "--upgrade", "pip"},
		Timeout: pipUpgradeTimeout,
		Stream:  p.out,
	})
	if !res.OK() {
		return fmt.Errorf("upgrading pip: %s", res.ErrorText())
	}

	p.linkSystemGI()

	attempts := p.cfg.Python.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	skip := map[string]bool{}
	for _, s := range p.cfg.Python.Skip {
		skip[strings.ToLower(s)] = true
	}

	for _, pkg := range p.cfg.Python.Packages {
		name := PackageName(pkg)
		if skip[strings.ToLower(name)] {
			fmt.Fprintf(p.out, "Skipping %s (using system package)\n", name)
			continue
		}
		if err := p.pipInstall(ctx, pip, pkg, attempts); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) pipInstall(ctx context.Context, pip, pkg string, attempts int) error {
	fmt.Fprintf(p.out, "Installing %s...\n", pkg)
	var last command.Result
	for attempt := 1; attempt <= attempts; attempt++ {
		last = p.exec.Run(ctx, command.Cmd{
			Name:    pip,
			Args:    []string{"install", pkg},
			Timeout: pipInstallTimeout,
			Stream:  p.out,
		})
		if last.OK() {
			fmt.Fprintf(p.out, "✓ Installed %s\n", pkg)
			return nil
		}
		p.log.Debug("pip install failed", "package", pkg, "attempt", attempt, "error", last.ErrorText())
		if attempt < attempts {
			fmt.Fprintf(p.out, "⚠ Retry %d/%d for %s...\n", attempt, attempts, pkg)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(PipRetryDelay):
			}
		}
	}
	return fmt.Errorf("failed to install %s after %d attempts: %s", pkg, attempts, last.ErrorText())
}

// linkSystemGI exposes the system PyGObject inside the environment, since
// building it with pip needs a toolchain most hosts lack. Failure is a
// warning.
func (p *Provisioner) linkSystemGI() {
	if _, err := os.Stat(systemGIPath); err != nil {
		return
	}
	matches, _ := filepath.Glob(filepath.Join(p.cfg.Layout.VenvDir, "lib", "python3*", "site-packages"))
	for _, site := range matches {
		link := filepath.Join(site, "gi")
		if _, err := os.Lstat(link); err == nil {
			continue
		}
		if err := os.Symlink(systemGIPath, link); err != nil {
			fmt.Fprintf(p.out, "⚠ Could not link PyGObject: %v\n", err)
			continue
		}
		fmt.Fprintln(p.out, "✓ System PyGObject linked to virtual environment")
	}
}

// PackageName strips any version specifier or extras from a pip
// requirement, so "pandas==2.1.3" yields "pandas".
func PackageName(req string) string {
	if i := strings.IndexAny(req, "=<>!~[; "); i >= 0 {
		return req[:i]
	}
	return req
}

// PinnedVersion returns the exact version of a "name==version"
// requirement, or "" when it is not pinned.
func PinnedVersion(req string) string {
	_, v, ok := strings.Cut(req, "==")
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}
