//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Install builds the CLI and provisions NConvert under the repository root.
func Install() error {
	mg.Deps(Build, Init)
	return sh.RunV(filepath.Join(binDir, binName), "install")
}

// Validate checks the local installation.
func Validate() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "validate")
}

// Convert converts every PSPIMAGE in workspace/ to JPEG.
func Convert() error {
	mg.Deps(Build, Init)
	return sh.RunV(filepath.Join(binDir, binName), "convert", "--source", "PSPIMAGE", "--target", "JPEG")
}
