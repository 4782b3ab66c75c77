// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mholt/archiver"
)

// executableMode is rwxr-xr-x.
const executableMode = 0o755

// ErrBinaryNotFound is returned when the archive does not contain the
// expected executable anywhere in its tree.
var ErrBinaryNotFound = errors.New("binary not found in extracted files")

// Installer extracts archives through a staging directory.
type Installer struct {
	stagingDir string
	binaryName string
	out        io.Writer
	log        *slog.Logger
}

// NewInstaller returns an Installer that stages extraction in stagingDir and
// marks binaryName executable once installed.
func NewInstaller(stagingDir, binaryName string, out io.Writer, log *slog.Logger) *Installer {
	if out == nil {
		out = io.Discard
	}
	if log == nil {
		log = slog.Default()
	}
	return &Installer{stagingDir: stagingDir, binaryName: binaryName, out: out, log: log}
}

// InstallArchive validates and extracts archivePath, relocates the payload
// to finalDir (replacing anything already there), and makes the binary
// executable. It returns the path of the installed binary. On failure both
// finalDir and archivePath are removed.
func (i *Installer) InstallArchive(archivePath, finalDir string) (string, error) {
	defer i.removeStaging()

	bin, err := i.install(archivePath, finalDir)
	if err != nil {
		i.log.Debug("archive install failed, cleaning up", "final_dir", finalDir, "archive", archivePath, "error", err)
		if rmErr := os.RemoveAll(finalDir); rmErr != nil {
			i.log.Warn("removing partial install", "path", finalDir, "error", rmErr)
		}
		if rmErr := os.Remove(archivePath); rmErr != nil && !os.IsNotExist(rmErr) {
			i.log.Warn("removing archive", "path", archivePath, "error", rmErr)
		}
		return "", err
	}
	return bin, nil
}

func (i *Installer) install(archivePath, finalDir string) (string, error) {
	info, err := os.Stat(archivePath)
	if err != nil {
		return "", fmt.Errorf("archive missing: %w", err)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("archive %s is empty", archivePath)
	}

	entries, err := ListEntries(archivePath)
	if err != nil {
		return "", err
	}
	if err := Validate(entries); err != nil {
		return "", err
	}

	if err := os.RemoveAll(i.stagingDir); err != nil {
		return "", fmt.Errorf("clearing staging directory: %w", err)
	}
	if err := os.MkdirAll(i.stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}

	fmt.Fprintln(i.out, "Extracting archive...")
	tgz := archiver.NewTarGz()
	tgz.MkdirAll = true
	tgz.OverwriteExisting = false
	tgz.ImplicitTopLevelFolder = false
	if err := tgz.Unarchive(archivePath, i.stagingDir); err != nil {
		return "", fmt.Errorf("extracting archive: %w", err)
	}
	fmt.Fprintln(i.out, "✓ Archive extracted successfully")

	if err := i.relocate(finalDir); err != nil {
		return "", err
	}

	bin, err := FindBinary(finalDir, i.binaryName)
	if err != nil {
		return "", err
	}
	if err := os.Chmod(bin, executableMode); err != nil {
		return "", fmt.Errorf("set executable: %w", err)
	}
	fmt.Fprintf(i.out, "✓ %s installed and made executable\n", i.binaryName)
	return bin, nil
}

// relocate moves the staged payload into finalDir. A single top-level
// directory becomes finalDir itself; otherwise each top-level entry is
// moved into a fresh finalDir.
func (i *Installer) relocate(finalDir string) error {
	items, err := os.ReadDir(i.stagingDir)
	if err != nil {
		return fmt.Errorf("reading staging directory: %w", err)
	}
	if len(items) == 0 {
		return fmt.Errorf("no files extracted from archive")
	}

	if _, err := os.Stat(finalDir); err == nil {
		if err := os.RemoveAll(finalDir); err != nil {
			return fmt.Errorf("removing existing installation: %w", err)
		}
		fmt.Fprintln(i.out, "✓ Removed existing installation")
	}
	if err := os.MkdirAll(filepath.Dir(finalDir), 0o755); err != nil {
		return fmt.Errorf("creating install parent: %w", err)
	}

	if len(items) == 1 && items[0].IsDir() {
		src := filepath.Join(i.stagingDir, items[0].Name())
		if err := os.Rename(src, finalDir); err != nil {
			return fmt.Errorf("moving %s into place: %w", items[0].Name(), err)
		}
		return nil
	}

	if err := os.MkdirAll(finalDir, 0o755); err != nil {
		return fmt.Errorf("creating install directory: %w", err)
	}
	for _, it := range items {
		src := filepath.Join(i.stagingDir, it.Name())
		if err := os.Rename(src, filepath.Join(finalDir, it.Name())); err != nil {
			return fmt.Errorf("moving %s into place: %w", it.Name(), err)
		}
	}
	return nil
}

func (i *Installer) removeStaging() {
	if err := os.RemoveAll(i.stagingDir); err != nil {
		i.log.Warn("removing staging directory", "path", i.stagingDir, "error", err)
	}
}

// FindBinary searches root for a regular file called name. Archive layouts
// differ between releases, so the whole tree is searched.
func FindBinary(root, name string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name && d.Type().IsRegular() {
			found = p
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("searching for %s: %w", name, err)
	}
	if found == "" {
		return "", fmt.Errorf("%s: %w", name, ErrBinaryNotFound)
	}
	return found, nil
}
