// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package platform reports the host operating system and, on Linux, the
// distribution the provisioner is about to modify.
package platform

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// ErrUnsupportedOS is returned by RequireLinux on any other operating system.
var ErrUnsupportedOS = errors.New("this installer supports Linux only")

// Info describes the host.
type Info struct {
	OS      string `json:"os"`
	Arch    string `json:"arch"`
	Distro  string `json:"distro,omitempty"`
	Family  string `json:"family,omitempty"`
	Version string `json:"version,omitempty"`
}

// Replaced in tests.
var (
	goos         = runtime.GOOS
	goarch       = runtime.GOARCH
	platformInfo = host.PlatformInformationWithContext
)

// Detect identifies the host. Distribution lookup failures are not fatal:
// the distro fields stay empty. Only a cancelled context is an error.
func Detect(ctx context.Context) (Info, error) {
	info := Info{OS: goos, Arch: goarch}
	if info.OS != "linux" {
		return info, nil
	}
	distro, family, version, err := platformInfo(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return info, fmt.Errorf("platform detection: %w", ctx.Err())
		}
		return info, nil
	}
	info.Distro = strings.ToLower(strings.TrimSpace(distro))
	info.Family = strings.ToLower(strings.TrimSpace(family))
	info.Version = strings.TrimSpace(version)
	return info, nil
}

// IsLinux reports whether the host runs Linux.
func (i Info) IsLinux() bool { return i.OS == "linux" }

// UsesAPT reports whether the distribution belongs to the Debian family,
// whose package manager the dependency installer drives.
func (i Info) UsesAPT() bool {
	return i.Family == "debian" || i.Distro == "debian" || i.Distro == "ubuntu"
}

// RequireLinux returns ErrUnsupportedOS unless the host is Linux.
func (i Info) RequireLinux() error {
	if !i.IsLinux() {
		return fmt.Errorf("%w (detected %s)", ErrUnsupportedOS, i.OS)
	}
	return nil
}

// String renders a one-line description such as "ubuntu 22.04 (linux/amd64)".
func (i Info) String() string {
	base := i.OS + "/" + i.Arch
	if i.Distro == "" {
		return base
	}
	return strings.TrimSpace(i.Distro+" "+i.Version) + " (" + base + ")"
}
