// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for nconvert-bash: the
// installation layout, stage configuration, image formats, and the job,
// outcome, and summary records produced by batch conversion.
package types

import "path/filepath"

const (
	dataDirName      = "data"
	tempDirName      = "temp"
	stagingDirName   = "extract"
	venvDirName      = "venv"
	workspaceDirName = "workspace"
	stateDirName     = "state"
	historyDBName    = "history.db"

	// DefaultToolDirName is the directory NConvert is installed into under the data root.
	DefaultToolDirName = "NConvert-linux64"

	// DefaultBinaryName is the converter executable looked up inside the tool directory.
	DefaultBinaryName = "nconvert"

	// DefaultArchiveName is the file name the downloaded tool archive is saved as.
	DefaultArchiveName = "NConvert-linux64.tgz"
)

// Layout is the fixed set of directories an installation consists of. It is
// built once from an install root and never mutated; the provisioner creates
// it and the batch converter treats it as read-only configuration.
type Layout struct {
	// Root is the install root every other path is relative to.
	Root string `json:"root" yaml:"root"`

	// DataDir holds the installed tool and the temp area. Reinstalling wipes it.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// TempDir is scratch space for downloads and extraction; safe to purge when idle.
	TempDir string `json:"temp_dir" yaml:"temp_dir"`

	// ToolDir is the final location of the extracted converter.
	ToolDir string `json:"tool_dir" yaml:"tool_dir"`

	// VenvDir is the isolated Python runtime environment.
	VenvDir string `json:"venv_dir" yaml:"venv_dir"`

	// WorkspaceDir is the user-writable folder scanned by default for input files.
	WorkspaceDir string `json:"workspace_dir" yaml:"workspace_dir"`

	// StateDir holds records that outlive a reinstall, such as the history database.
	StateDir string `json:"state_dir" yaml:"state_dir"`

	// BinaryName is the converter executable name.
	BinaryName string `json:"binary_name" yaml:"binary_name"`

	// ArchiveName is the file name of the downloaded tool archive inside TempDir.
	ArchiveName string `json:"archive_name" yaml:"archive_name"`
}

// NewLayout returns the default layout rooted at root.
func NewLayout(root string) Layout {
	data := filepath.Join(root, dataDirName)
	return Layout{
		Root:         root,
		DataDir:      data,
		TempDir:      filepath.Join(data, tempDirName),
		ToolDir:      filepath.Join(data, DefaultToolDirName),
		VenvDir:      filepath.Join(root, venvDirName),
		WorkspaceDir: filepath.Join(root, workspaceDirName),
		StateDir:     filepath.Join(root, stateDirName),
		BinaryName:   DefaultBinaryName,
		ArchiveName:  DefaultArchiveName,
	}
}

// ConverterPath is the expected location of the converter executable.
func (l Layout) ConverterPath() string {
	return filepath.Join(l.ToolDir, l.BinaryName)
}

// ArchivePath is where the tool archive is downloaded to.
func (l Layout) ArchivePath() string {
	return filepath.Join(l.TempDir, l.ArchiveName)
}

// StagingDir is the isolated directory archives are extracted into before
// being relocated to ToolDir.
func (l Layout) StagingDir() string {
	return filepath.Join(l.TempDir, stagingDirName)
}

// HistoryDB is the path of the conversion history database.
func (l Layout) HistoryDB() string {
	return filepath.Join(l.StateDir, historyDBName)
}

// VenvBin returns the path of an executable inside the runtime environment.
func (l Layout) VenvBin(name string) string {
	return filepath.Join(l.VenvDir, "bin", name)
}
