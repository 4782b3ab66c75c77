// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive installs a tool from a gzip-compressed tar archive. Every
// member is validated before anything is written, extraction happens in an
// isolated staging directory, and the payload is only then moved into its
// final location. Any failure leaves neither a half-installed tool nor the
// downloaded archive behind.
package archive

import (
	"archive/tar"
	"fmt"
	"path"
	"strings"

	"github.com/mholt/archiver"
)

// Entry is one member of an archive.
type Entry struct {
	Path  string
	IsDir bool

	// Link is the target of a symbolic or hard link, empty otherwise.
	Link string
}

// UnsafeEntryError reports a member whose path is absolute or climbs out of
// the extraction root.
type UnsafeEntryError struct {
	Path   string
	Reason string
}

func (e *UnsafeEntryError) Error() string {
	return fmt.Sprintf("unsafe path in archive: %s (%s)", e.Path, e.Reason)
}

// ListEntries reads the member list of a tar.gz archive without extracting
// anything.
func ListEntries(archivePath string) ([]Entry, error) {
	var entries []Entry
	err := archiver.NewTarGz().Walk(archivePath, func(f archiver.File) error {
		hdr, ok := f.Header.(*tar.Header)
		if !ok {
			return fmt.Errorf("unexpected header type %T", f.Header)
		}
		e := Entry{Path: hdr.Name, IsDir: hdr.Typeflag == tar.TypeDir}
		if hdr.Typeflag == tar.TypeSymlink || hdr.Typeflag == tar.TypeLink {
			e.Link = hdr.Linkname
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading archive %s (corrupted or incomplete?): %w", archivePath, err)
	}
	return entries, nil
}

// Validate rejects the first entry that is absolute, contains a ".."
// segment, or links to a location outside the extraction root.
func Validate(entries []Entry) error {
	for _, e := range entries {
		if reason := unsafePath(e.Path); reason != "" {
			return &UnsafeEntryError{Path: e.Path, Reason: reason}
		}
		if e.Link == "" {
			continue
		}
		if isAbs(e.Link) {
			return &UnsafeEntryError{Path: e.Path, Reason: "link target is absolute"}
		}
		target := path.Join(path.Dir(toSlash(e.Path)), toSlash(e.Link))
		if target == ".." || strings.HasPrefix(target, "../") {
			return &UnsafeEntryError{Path: e.Path, Reason: "link target escapes archive root"}
		}
	}
	return nil
}

func unsafePath(name string) string {
	if name == "" {
		return "empty name"
	}
	if isAbs(name) {
		return "absolute path"
	}
	for _, seg := range strings.Split(toSlash(name), "/") {
		if seg == ".." {
			return "parent directory segment"
		}
	}
	return ""
}

func isAbs(name string) bool {
	return strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`)
}

func toSlash(name string) string {
	return strings.ReplaceAll(name, `\`, "/")
}
