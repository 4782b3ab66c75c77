// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provision sets up a complete nconvert-bash installation: system
// packages, the downloaded converter, and an isolated Python environment.
// Stages run in a fixed order and the first fatal failure stops the
// pipeline with a StageError naming the stage.
package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/nconvert-bash/internal/command"
	"github.com/pdiddy/nconvert-bash/internal/deps"
	"github.com/pdiddy/nconvert-bash/internal/platform"
	"github.com/pdiddy/nconvert-bash/pkg/types"
)

// Stage names, in pipeline order.
const (
	StagePreflight   = "preflight"
	StageClean       = "clean"
	StageLayout      = "layout"
	StageProbe       = "probe"
	StageInstallDeps = "install-deps"
	StageInstallTool = "install-tool"
	StageVenv        = "venv"
	StagePackages    = "packages"
	StageCleanupTemp = "cleanup-temp"
)

// StageError reports which stage stopped the pipeline. Missing is set when
// system packages could not be installed.
type StageError struct {
	Stage   string
	Missing []string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Hint returns the manual remediation for the failure, if there is one.
func (e *StageError) Hint() string {
	if len(e.Missing) > 0 {
		return "Please run manually: " + deps.ManualCommand(e.Missing)
	}
	return ""
}

// Fetcher downloads a remote artifact to a local path.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string, maxRetries int) error
}

// ArchiveInstaller unpacks a downloaded archive into its final directory
// and returns the path of the installed binary.
type ArchiveInstaller interface {
	InstallArchive(archivePath, finalDir string) (string, error)
}

// PackageInstaller installs system packages.
type PackageInstaller interface {
	Install(ctx context.Context, packages []string) deps.InstallResult
}

// Provisioner runs the installation pipeline.
type Provisioner struct {
	cfg      types.ProvisionConfig
	exec     command.Executor
	set      deps.Set
	fetcher  Fetcher
	archives ArchiveInstaller
	packages PackageInstaller
	detect   func(context.Context) (platform.Info, error)
	out      io.Writer
	log      *slog.Logger
}

// Option customizes a Provisioner.
type Option func(*Provisioner)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provisioner) { p.log = l }
}

// WithPlatformDetector replaces host detection.
func WithPlatformDetector(fn func(context.Context) (platform.Info, error)) Option {
	return func(p *Provisioner) { p.detect = fn }
}

// WithPackageInstaller replaces the apt-get installer.
func WithPackageInstaller(pi PackageInstaller) Option {
	return func(p *Provisioner) { p.packages = pi }
}

// New returns a Provisioner. The fetcher and archive installer are required;
// the package installer defaults to apt-get through exec.
func New(cfg types.ProvisionConfig, exec command.Executor, set deps.Set, fetcher Fetcher, archives ArchiveInstaller, out io.Writer, opts ...Option) *Provisioner {
	if out == nil {
		out = io.Discard
	}
	p := &Provisioner{
		cfg:      cfg,
		exec:     exec,
		set:      set,
		fetcher:  fetcher,
		archives: archives,
		detect:   platform.Detect,
		out:      out,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	if p.packages == nil {
		p.packages = deps.NewInstaller(exec, out, p.log)
	}
	return p
}

type stage struct {
	name  string
	title string
	run   func(context.Context) error
}

// Run executes every stage in order and stops at the first failure.
func (p *Provisioner) Run(ctx context.Context) error {
	var missing []string
	stages := []stage{
		{StagePreflight, "Checking host", p.preflight},
		{StageClean, "Removing existing installation", p.clean},
		{StageLayout, "Creating directory structure", p.createLayout},
		{StageProbe, "Checking system dependencies", func(ctx context.Context) error {
			missing = deps.ProbeAll(ctx, p.exec, p.set, p.out).Missing
			return nil
		}},
		{StageInstallDeps, "Installing system dependencies", func(ctx context.Context) error {
			return p.installDeps(ctx, missing)
		}},
		{StageInstallTool, "Installing NConvert", p.installTool},
		{StageVenv, "Creating virtual environment", p.createVenv},
		{StagePackages, "Installing Python packages", p.installPackages},
		{StageCleanupTemp, "Cleaning up temporary files", p.cleanupTemp},
	}

	for _, s := range stages {
		fmt.Fprintf(p.out, "\n%s...\n", s.title)
		p.log.Debug("provision stage", "stage", s.name)
		if err := s.run(ctx); err != nil {
			var se *StageError
			if !errors.As(err, &se) {
				se = &StageError{Stage: s.name, Err: err}
			}
			fmt.Fprintf(p.out, "✗ %s failed: %v\n", s.name, se.Err)
			if hint := se.Hint(); hint != "" {
				fmt.Fprintln(p.out, hint)
			}
			return se
		}
	}
	fmt.Fprintln(p.out, "\nInstallation completed successfully!")
	fmt.Fprintln(p.out, "Run `nconvert-bash validate` to verify the installation.")
	return nil
}

func (p *Provisioner) preflight(ctx context.Context) error {
	info, err := p.detect(ctx)
	if err != nil {
		return err
	}
	if err := info.RequireLinux(); err != nil {
		return err
	}
	fmt.Fprintf(p.out, "✓ Detected %s\n", info)
	if info.Distro != "" && !info.UsesAPT() {
		fmt.Fprintf(p.out, "⚠ %s is not Debian-based; apt-get may be unavailable\n", info.Distro)
	}
	return nil
}

func (p *Provisioner) clean(context.Context) error {
	l := p.cfg.Layout
	for _, dir := range []string{l.VenvDir, l.DataDir} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing %s: %w", dir, err)
		}
		fmt.Fprintf(p.out, "✓ Removed %s\n", dir)
	}
	return nil
}

func (p *Provisioner) createLayout(context.Context) error {
	l := p.cfg.Layout
	for _, dir := range []string{l.DataDir, l.TempDir, l.WorkspaceDir, l.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	fmt.Fprintln(p.out, "✓ Directory structure created")
	return nil
}

func (p *Provisioner) installDeps(ctx context.Context, missing []string) error {
	if len(missing) == 0 {
		fmt.Fprintln(p.out, "✓ All system dependencies are installed")
		return nil
	}
	fmt.Fprintf(p.out, "Missing system dependencies: %s\n", strings.Join(missing, ", "))
	res := p.packages.Install(ctx, missing)
	if !res.OK() {
		return &StageError{
			Stage:   StageInstallDeps,
			Missing: res.Failed,
			Err:     fmt.Errorf("could not install system packages: %s", strings.Join(res.Failed, ", ")),
		}
	}
	return nil
}

func (p *Provisioner) installTool(ctx context.Context) error {
	l := p.cfg.Layout
	archivePath := l.ArchivePath()
	fmt.Fprintf(p.out, "Downloading %s\n", p.cfg.Download.URL)
	if err := p.fetcher.Fetch(ctx, p.cfg.Download.URL, archivePath, p.cfg.Download.MaxRetries); err != nil {
		return fmt.Errorf("downloading converter: %w", err)
	}
	bin, err := p.archives.InstallArchive(archivePath, l.ToolDir)
	if err != nil {
		return fmt.Errorf("installing converter: %w", err)
	}
	if err := linkConverter(bin, l.ConverterPath()); err != nil {
		return fmt.Errorf("installing converter: %w", err)
	}
	if bin != l.ConverterPath() {
		p.log.Debug("linked nested converter", "path", bin, "link", l.ConverterPath())
	}
	fmt.Fprintf(p.out, "✓ NConvert installed at %s\n", l.ConverterPath())
	return nil
}

// linkConverter makes the converter reachable at want, the only place the
// batch converter and validation look for it. Archives that nest the binary
// deeper get a relative symlink.
func linkConverter(bin, want string) error {
	if bin == want {
		return nil
	}
	if _, err := os.Lstat(want); err == nil {
		return fmt.Errorf("%s is occupied; cannot link converter found at %s", want, bin)
	}
	target, err := filepath.Rel(filepath.Dir(want), bin)
	if err != nil {
		return fmt.Errorf("resolving converter link: %w", err)
	}
	if err := os.Symlink(target, want); err != nil {
		return fmt.Errorf("linking converter: %w", err)
	}
	return nil
}

// cleanupTemp empties the temp directory. Leftovers only waste space, so
// failures are warnings.
func (p *Provisioner) cleanupTemp(context.Context) error {
	dir := p.cfg.Layout.TempDir
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(p.out, "⚠ could not read %s: %v\n", dir, err)
		}
		return nil
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			p.log.Warn("removing temp entry", "path", path, "error", err)
			fmt.Fprintf(p.out, "⚠ could not remove %s: %v\n", path, err)
		}
	}
	fmt.Fprintln(p.out, "✓ Temporary files cleaned up")
	return nil
}
