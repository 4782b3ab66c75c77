// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type member struct {
	name string
	body string
	dir  bool
	link string
}

func writeTarGz(t *testing.T, path string, members []member) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, m := range members {
		hdr := &tar.Header{Name: m.name, Mode: 0o644}
		switch {
		case m.dir:
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
		case m.link != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = m.link
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(m.body))
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(m.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

type fixture struct {
	archive string
	staging string
	final   string
	inst    *Installer
}

func newFixture(t *testing.T, members []member) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{
		archive: filepath.Join(root, "data", "NConvert-linux64.tgz"),
		staging: filepath.Join(root, "data", "temp", "extract"),
		final:   filepath.Join(root, "data", "NConvert-linux64"),
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(f.archive), 0o755))
	if members != nil {
		writeTarGz(t, f.archive, members)
	}
	f.inst = NewInstaller(f.staging, "nconvert", nil, nil)
	return f
}

func TestInstallArchive_SingleTopLevelDirectory(t *testing.T) {
	f := newFixture(t, []member{
		{name: "NConvert/", dir: true},
		{name: "NConvert/nconvert", body: "#!/bin/sh\necho nconvert\n"},
		{name: "NConvert/plugins/", dir: true},
		{name: "NConvert/plugins/readme.txt", body: "plugins"},
	})

	bin, err := f.inst.InstallArchive(f.archive, f.final)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.final, "nconvert"), bin)

	info, err := os.Stat(bin)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	assert.FileExists(t, filepath.Join(f.final, "plugins", "readme.txt"))
	assert.NoDirExists(t, f.staging)
	assert.FileExists(t, f.archive, "archive is kept after a successful install")
}

func TestInstallArchive_MultipleTopLevelEntries(t *testing.T) {
	f := newFixture(t, []member{
		{name: "nconvert", body: "bin"},
		{name: "ReadMe.txt", body: "docs"},
		{name: "lib/", dir: true},
		{name: "lib/libfoo.so", body: "so"},
	})

	bin, err := f.inst.InstallArchive(f.archive, f.final)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.final, "nconvert"), bin)
	assert.FileExists(t, filepath.Join(f.final, "ReadMe.txt"))
	assert.FileExists(t, filepath.Join(f.final, "lib", "libfoo.so"))
}

func TestInstallArchive_BinaryInNestedDirectory(t *testing.T) {
	f := newFixture(t, []member{
		{name: "pkg/", dir: true},
		{name: "pkg/bin/", dir: true},
		{name: "pkg/bin/nconvert", body: "bin"},
	})

	bin, err := f.inst.InstallArchive(f.archive, f.final)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.final, "bin", "nconvert"), bin)
}

func TestInstallArchive_ReplacesExistingInstall(t *testing.T) {
	f := newFixture(t, []member{
		{name: "NConvert/", dir: true},
		{name: "NConvert/nconvert", body: "new"},
	})
	require.NoError(t, os.MkdirAll(f.final, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.final, "stale.txt"), []byte("old"), 0o644))

	_, err := f.inst.InstallArchive(f.archive, f.final)
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(f.final, "stale.txt"))
	got, err := os.ReadFile(filepath.Join(f.final, "nconvert"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestInstallArchive_RejectsTraversalBeforeWriting(t *testing.T) {
	tests := []struct {
		name    string
		members []member
	}{
		{"parent segment", []member{
			{name: "NConvert/nconvert", body: "bin"},
			{name: "../../etc/passwd", body: "root::0:0"},
		}},
		{"absolute path", []member{
			{name: "/tmp/evil", body: "x"},
			{name: "NConvert/nconvert", body: "bin"},
		}},
		{"escaping symlink", []member{
			{name: "NConvert/nconvert", body: "bin"},
			{name: "NConvert/escape", link: "../../../etc"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.members)

			_, err := f.inst.InstallArchive(f.archive, f.final)
			require.Error(t, err)
			var unsafe *UnsafeEntryError
			assert.True(t, errors.As(err, &unsafe), "got %v", err)

			assert.NoDirExists(t, f.final)
			assert.NoDirExists(t, f.staging)
			assert.NoFileExists(t, f.archive)
		})
	}
}

func TestInstallArchive_MissingBinary(t *testing.T) {
	f := newFixture(t, []member{
		{name: "NConvert/", dir: true},
		{name: "NConvert/ReadMe.txt", body: "docs"},
	})

	_, err := f.inst.InstallArchive(f.archive, f.final)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBinaryNotFound)
	assert.NoDirExists(t, f.final)
	assert.NoFileExists(t, f.archive)
}

func TestInstallArchive_CorruptArchive(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, os.WriteFile(f.archive, []byte("this is not gzip"), 0o644))

	_, err := f.inst.InstallArchive(f.archive, f.final)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupted or incomplete")
	assert.NoFileExists(t, f.archive)
	assert.NoDirExists(t, f.final)
}

func TestInstallArchive_EmptyArchive(t *testing.T) {
	f := newFixture(t, []member{})

	_, err := f.inst.InstallArchive(f.archive, f.final)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no files extracted")
	assert.NoDirExists(t, f.final)
}

func TestInstallArchive_MissingArchive(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.inst.InstallArchive(f.archive, f.final)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive missing")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		wantErr bool
	}{
		{"plain", []Entry{{Path: "a/b/c"}, {Path: "a/", IsDir: true}}, false},
		{"dotdot inside name is fine", []Entry{{Path: "a/b..c"}}, false},
		{"relative link inside root", []Entry{{Path: "lib/libfoo.so", Link: "libfoo.so.1"}}, false},
		{"link to sibling dir", []Entry{{Path: "a/b", Link: "../c"}}, false},
		{"parent segment", []Entry{{Path: "a/../../b"}}, true},
		{"backslash parent segment", []Entry{{Path: `a\..\..\b`}}, true},
		{"absolute", []Entry{{Path: "/etc/passwd"}}, true},
		{"empty name", []Entry{{Path: ""}}, true},
		{"absolute link", []Entry{{Path: "a", Link: "/etc"}}, true},
		{"escaping link", []Entry{{Path: "a/b", Link: "../../etc"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.entries)
			if tt.wantErr {
				var unsafe *UnsafeEntryError
				assert.True(t, errors.As(err, &unsafe), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestListEntries(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.tgz")
	writeTarGz(t, p, []member{
		{name: "x/", dir: true},
		{name: "x/y", body: "y"},
		{name: "x/z", link: "y"},
	})

	entries, err := ListEntries(p)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Path: "x/", IsDir: true},
		{Path: "x/y"},
		{Path: "x/z", Link: "y"},
	}, entries)
}

func TestFindBinary_IgnoresDirectoriesWithSameName(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "nconvert"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "nconvert"), []byte("x"), 0o644))

	got, err := FindBinary(root, "nconvert")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "sub", "nconvert"), got)
}
