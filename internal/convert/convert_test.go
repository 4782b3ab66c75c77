// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/nconvert-bash/internal/command/commandtest"
	"github.com/pdiddy/nconvert-bash/pkg/types"
)

// fakeConverter writes a small output file for every input, except inputs
// listed in fail, which return the mapped error.
type fakeConverter struct {
	fail  map[string]error
	calls []string
}

func (f *fakeConverter) Convert(_ context.Context, input, output string, _ types.Format) error {
	f.calls = append(f.calls, filepath.Base(input))
	if err, ok := f.fail[filepath.Base(input)]; ok {
		return err
	}
	return os.WriteFile(output, []byte("converted"), 0o644)
}

// setupBatch creates an executable stand-in converter and an input folder
// holding the named files.
func setupBatch(t *testing.T, names ...string) (bin, folder string) {
	t.Helper()
	root := t.TempDir()
	bin = filepath.Join(root, "nconvert")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))
	folder = filepath.Join(root, "workspace")
	for _, n := range names {
		p := filepath.Join(folder, n)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("image"), 0o644))
	}
	require.NoError(t, os.MkdirAll(folder, 0o755))
	return bin, folder
}

func newBatch(conv Converter, bin string, out *bytes.Buffer) *BatchConverter {
	b := NewBatchConverter(conv, bin, out, nil)
	b.newID = func() string { return "run-1" }
	return b
}

func TestRun_ConvertsAndDeletesOriginals(t *testing.T) {
	bin, folder := setupBatch(t, "a.PSPIMAGE", "b.PSPIMAGE")
	conv := &fakeConverter{}
	var out bytes.Buffer

	s := newBatch(conv, bin, &out).Run(context.Background(), types.ConversionJob{
		Folder:      folder,
		Source:      types.FormatPSPImage,
		Target:      types.FormatJPEG,
		DeleteAfter: true,
	})

	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 2, s.Succeeded)
	assert.Equal(t, 0, s.Failed)
	assert.Equal(t, 2, s.Deleted)
	assert.Empty(t, s.Message)

	assert.NoFileExists(t, filepath.Join(folder, "a.PSPIMAGE"))
	assert.NoFileExists(t, filepath.Join(folder, "b.PSPIMAGE"))
	assert.FileExists(t, filepath.Join(folder, "a.jpeg"))
	assert.FileExists(t, filepath.Join(folder, "b.jpeg"))

	log := out.String()
	assert.Contains(t, log, "✓ a.PSPIMAGE → a.jpeg\n✓ b.PSPIMAGE → b.jpeg\n")
	assert.Contains(t, log, "Total: 2, Succeeded: 2, Failed: 0, Deleted: 2")
}

func TestRun_MissingConverterTouchesNothing(t *testing.T) {
	_, folder := setupBatch(t, "a.PSPIMAGE")
	walks := 0
	conv := &fakeConverter{}
	var out bytes.Buffer
	b := newBatch(conv, filepath.Join(t.TempDir(), "nconvert"), &out)
	b.discover = func(string, types.Format) ([]string, error) {
		walks++
		return nil, nil
	}

	s := b.Run(context.Background(), types.ConversionJob{
		Folder: folder, Source: types.FormatPSPImage, Target: types.FormatJPEG, DeleteAfter: true,
	})

	assert.Contains(t, s.Message, "converter not found")
	assert.True(t, s.Aborted)
	assert.Zero(t, s.Total)
	assert.Zero(t, walks)
	assert.Empty(t, conv.calls)
	assert.FileExists(t, filepath.Join(folder, "a.PSPIMAGE"))
	assert.Contains(t, out.String(), "✗ converter not found")
}

func TestRun_ConverterNotExecutable(t *testing.T) {
	bin, folder := setupBatch(t, "a.PSPIMAGE")
	require.NoError(t, os.Chmod(bin, 0o644))

	s := newBatch(&fakeConverter{}, bin, &bytes.Buffer{}).Run(context.Background(), types.ConversionJob{
		Folder: folder, Source: types.FormatPSPImage, Target: types.FormatJPEG,
	})
	assert.Contains(t, s.Message, "converter not found")
	assert.Contains(t, s.Message, "not executable")
}

func TestRun_MissingFolder(t *testing.T) {
	bin, _ := setupBatch(t)
	s := newBatch(&fakeConverter{}, bin, &bytes.Buffer{}).Run(context.Background(), types.ConversionJob{
		Folder: filepath.Join(t.TempDir(), "nope"), Source: types.FormatPSPImage, Target: types.FormatJPEG,
	})
	assert.Contains(t, s.Message, "input folder not found")
	assert.Zero(t, s.Total)
}

func TestRun_NoMatchingFilesIsReportedNotFailed(t *testing.T) {
	bin, folder := setupBatch(t, "notes.txt")
	s := newBatch(&fakeConverter{}, bin, &bytes.Buffer{}).Run(context.Background(), types.ConversionJob{
		Folder: folder, Source: types.FormatPSPImage, Target: types.FormatJPEG,
	})
	assert.Equal(t, "no .pspimage files found in "+folder, s.Message)
	assert.False(t, s.Aborted, "an empty folder is reported, not treated as an error")
	assert.False(t, s.HasFailures())
	assert.Zero(t, s.Total)
}

func TestRun_SameSourceAndTarget(t *testing.T) {
	bin, folder := setupBatch(t, "a.png")
	conv := &fakeConverter{}
	s := newBatch(conv, bin, &bytes.Buffer{}).Run(context.Background(), types.ConversionJob{
		Folder: folder, Source: types.FormatPNG, Target: types.FormatPNG,
	})
	assert.Contains(t, s.Message, "both PNG")
	assert.Empty(t, conv.calls)
}

func TestRun_UnsupportedFormat(t *testing.T) {
	bin, folder := setupBatch(t, "a.heic")
	conv := &fakeConverter{}
	s := newBatch(conv, bin, &bytes.Buffer{}).Run(context.Background(), types.ConversionJob{
		Folder: folder, Source: types.Format("HEIC"), Target: types.FormatJPEG,
	})
	assert.True(t, s.Aborted)
	assert.Equal(t, `unsupported format "HEIC"`, s.Message)
	assert.Empty(t, conv.calls)
}

func TestRun_FailureIsIsolated(t *testing.T) {
	names := []string{"1.PSPIMAGE", "2.PSPIMAGE", "3.PSPIMAGE", "4.PSPIMAGE", "5.PSPIMAGE"}
	for k := range names {
		t.Run(fmt.Sprintf("timeout on file %d", k+1), func(t *testing.T) {
			bin, folder := setupBatch(t, names...)
			conv := &fakeConverter{fail: map[string]error{
				names[k]: fmt.Errorf("%w after 30s", ErrTimedOut),
			}}

			s := newBatch(conv, bin, &bytes.Buffer{}).Run(context.Background(), types.ConversionJob{
				Folder: folder, Source: types.FormatPSPImage, Target: types.FormatPNG, DeleteAfter: true,
			})

			assert.Equal(t, len(names), s.Total)
			assert.Equal(t, s.Total, s.Succeeded+s.Failed)
			assert.Equal(t, 1, s.Failed)
			assert.Equal(t, names, conv.calls, "every file is attempted in order")
			for i, o := range s.Outcomes {
				assert.Equal(t, names[i], filepath.Base(o.Input))
				if i == k {
					assert.False(t, o.Success)
					assert.Equal(t, "timed out after 30s", o.Error)
					assert.FileExists(t, o.Input, "failed originals are kept")
					continue
				}
				assert.True(t, o.Success)
				assert.True(t, o.Deleted)
			}
			assert.Equal(t, len(names)-1, s.Deleted)
		})
	}
}

func TestRun_DeleteFailureIsRecorded(t *testing.T) {
	bin, folder := setupBatch(t, "a.PSPIMAGE", "b.PSPIMAGE")
	// Removing a.PSPIMAGE behind the batch's back makes its delete fail.
	conv := &fakeConverter{}
	b := newBatch(convertThen(conv, func(input string) {
		if filepath.Base(input) == "a.PSPIMAGE" {
			_ = os.Remove(input)
		}
	}), bin, &bytes.Buffer{})

	s := b.Run(context.Background(), types.ConversionJob{
		Folder: folder, Source: types.FormatPSPImage, Target: types.FormatJPEG, DeleteAfter: true,
	})

	assert.Equal(t, 2, s.Succeeded)
	assert.Equal(t, 1, s.Deleted)
	require.Len(t, s.DeleteErrors, 1)
	assert.Contains(t, s.DeleteErrors[0], "a.PSPIMAGE")
	assert.True(t, s.Outcomes[0].Success, "a failed delete does not revert the conversion")
	assert.NoFileExists(t, filepath.Join(folder, "b.PSPIMAGE"))
	assert.Contains(t, s.String(), "delete failed: ")
}

type hookConverter struct {
	inner Converter
	after func(input string)
}

func (h hookConverter) Convert(ctx context.Context, input, output string, target types.Format) error {
	err := h.inner.Convert(ctx, input, output, target)
	h.after(input)
	return err
}

func convertThen(c Converter, after func(string)) Converter {
	return hookConverter{inner: c, after: after}
}

func TestRun_UsesProvidedFiles(t *testing.T) {
	bin, folder := setupBatch(t, "a.PSPIMAGE", "b.PSPIMAGE")
	conv := &fakeConverter{}
	s := newBatch(conv, bin, &bytes.Buffer{}).Run(context.Background(), types.ConversionJob{
		Folder: folder,
		Files:  []string{filepath.Join(folder, "b.PSPIMAGE")},
		Source: types.FormatPSPImage,
		Target: types.FormatJPEG,
	})
	assert.Equal(t, 1, s.Total)
	assert.Equal(t, []string{"b.PSPIMAGE"}, conv.calls)
}

func TestRun_ConverterErrorTextIsOutcomeError(t *testing.T) {
	bin, folder := setupBatch(t, "a.PSPIMAGE")
	conv := &fakeConverter{fail: map[string]error{"a.PSPIMAGE": errors.New("** Error: unknown file format")}}
	var out bytes.Buffer

	s := newBatch(conv, bin, &out).Run(context.Background(), types.ConversionJob{
		Folder: folder, Source: types.FormatPSPImage, Target: types.FormatJPEG, DeleteAfter: true,
	})
	assert.Equal(t, "** Error: unknown file format", s.Outcomes[0].Error)
	assert.Zero(t, s.Deleted)
	assert.FileExists(t, filepath.Join(folder, "a.PSPIMAGE"))
	assert.Contains(t, out.String(), "✗ a.PSPIMAGE: ** Error: unknown file format")
}

func TestDiscover(t *testing.T) {
	_, folder := setupBatch(t, "b.pspimage", "a.PSPIMAGE", "sub/c.PspImage", "d.jpeg", "e.PSPIMAGE.bak")

	files, err := Discover(folder, types.FormatPSPImage)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(folder, "a.PSPIMAGE"),
		filepath.Join(folder, "b.pspimage"),
		filepath.Join(folder, "sub", "c.PspImage"),
	}, files)
}

func TestDiscover_FollowsFileSymlinks(t *testing.T) {
	_, folder := setupBatch(t, "a.PSPIMAGE")
	elsewhere := t.TempDir()
	target := filepath.Join(elsewhere, "real.PSPIMAGE")
	require.NoError(t, os.WriteFile(target, []byte("image"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(elsewhere, "dir.PSPIMAGE"), 0o755))

	require.NoError(t, os.Symlink(target, filepath.Join(folder, "b.PSPIMAGE")))
	require.NoError(t, os.Symlink(filepath.Join(elsewhere, "dir.PSPIMAGE"), filepath.Join(folder, "c.PSPIMAGE")))
	require.NoError(t, os.Symlink(filepath.Join(elsewhere, "gone.PSPIMAGE"), filepath.Join(folder, "d.PSPIMAGE")))

	files, err := Discover(folder, types.FormatPSPImage)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(folder, "a.PSPIMAGE"),
		filepath.Join(folder, "b.PSPIMAGE"),
	}, files)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "/w/a.jpeg", OutputPath("/w/a.PSPIMAGE", types.FormatJPEG))
	assert.Equal(t, "/w/x.y.png", OutputPath("/w/x.y.tiff", types.FormatPNG))
}

func TestNConvertConverter(t *testing.T) {
	bin := "/opt/nconvert"
	tests := []struct {
		name    string
		setup   func(f *commandtest.Fake)
		wantErr string
	}{
		{
			name:  "success",
			setup: func(f *commandtest.Fake) { f.Succeed(bin+" -out jpeg -overwrite -o /w/a.jpeg /w/a.PSPIMAGE", "") },
		},
		{
			name: "tool failure uses stderr",
			setup: func(f *commandtest.Fake) {
				f.Fail(bin+" -out jpeg -overwrite -o /w/a.jpeg /w/a.PSPIMAGE", "  Error reading file\n")
			},
			wantErr: "Error reading file",
		},
		{
			name:    "timeout",
			setup:   func(f *commandtest.Fake) { f.Timeout(bin + " -out jpeg -overwrite -o /w/a.jpeg /w/a.PSPIMAGE") },
			wantErr: "timed out after 30s",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := commandtest.New()
			tt.setup(f)
			err := NewNConvertConverter(f, bin, 0).Convert(context.Background(), "/w/a.PSPIMAGE", "/w/a.jpeg", types.FormatJPEG)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}
