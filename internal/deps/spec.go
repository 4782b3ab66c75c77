// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package deps declares system dependencies, probes the host for them, and
// installs whatever is missing through APT.
//
// Every dependency owns its own detection procedure (a Detector). Probing
// never fails: a detector that cannot run, exits non-zero, or times out
// simply reports the dependency as missing.
package deps

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/nconvert-bash/internal/command"
)

// ProbeTimeout bounds every detection command.
const ProbeTimeout = 10 * time.Second

// Detector decides whether a dependency is present on the host.
type Detector interface {
	// Detect reports presence. It must not panic and has no error return:
	// anything abnormal counts as absent.
	Detect(ctx context.Context, exec command.Executor) bool

	// String describes the check for log output.
	String() string
}

// Spec declares one dependency: the packages that provide it and how to
// detect it.
type Spec struct {
	Name     string
	Packages []string
	Detect   Detector
}

// Set maps dependency names to their specs. It is built once at startup and
// never mutated afterwards.
type Set map[string]Spec

// Names returns the dependency names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// CommandDetector runs a command; exit status zero means present.
type CommandDetector struct {
	Argv []string
}

func (d CommandDetector) Detect(ctx context.Context, exec command.Executor) bool {
	if len(d.Argv) == 0 {
		return false
	}
	return run(ctx, exec, d.Argv).OK()
}

func (d CommandDetector) String() string {
	return strings.Join(d.Argv, " ")
}

// OutputDetector runs a command and additionally requires its stdout to
// contain Contains.
type OutputDetector struct {
	Argv     []string
	Contains string
}

func (d OutputDetector) Detect(ctx context.Context, exec command.Executor) bool {
	if len(d.Argv) == 0 {
		return false
	}
	res := run(ctx, exec, d.Argv)
	return res.OK() && strings.Contains(string(res.Stdout), d.Contains)
}

func (d OutputDetector) String() string {
	return fmt.Sprintf("%s (expects %q)", strings.Join(d.Argv, " "), d.Contains)
}

// DpkgDetector inspects package-manager metadata. With List unset it runs
// "dpkg -s <pkg>"; with List set it runs "dpkg -l <pkg>" and also rejects
// output reporting that no packages were found.
type DpkgDetector struct {
	Package string
	List    bool
}

func (d DpkgDetector) Detect(ctx context.Context, exec command.Executor) bool {
	if d.List {
		res := run(ctx, exec, []string{"dpkg", "-l", d.Package})
		return res.OK() && !strings.Contains(strings.ToLower(string(res.Stdout)), "no packages found")
	}
	return run(ctx, exec, []string{"dpkg", "-s", d.Package}).OK()
}

func (d DpkgDetector) String() string {
	if d.List {
		return "dpkg -l " + d.Package
	}
	return "dpkg -s " + d.Package
}

func run(ctx context.Context, exec command.Executor, argv []string) command.Result {
	return exec.Run(ctx, command.Cmd{
		Name:    argv[0],
		Args:    argv[1:],
		Timeout: ProbeTimeout,
	})
}
