// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"PSPIMAGE", FormatPSPImage},
		{"pspimage", FormatPSPImage},
		{".jpeg", FormatJPEG},
		{" Png ", FormatPNG},
		{"heif", FormatHEIF},
		{"SVG", FormatSVG},
		{"pcx", FormatPCX},
		{".jp2", FormatJP2},
		{"Exr", FormatEXR},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseFormat("heic")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestFormatMethods(t *testing.T) {
	assert.Equal(t, "jpeg", FormatJPEG.Extension())
	assert.Equal(t, "jpeg", FormatJPEG.ConverterName())
	assert.True(t, FormatPSPImage.MatchesFile("/w/a.PspImage"))
	assert.False(t, FormatPSPImage.MatchesFile("/w/a.jpeg"))
	assert.False(t, FormatPSPImage.MatchesFile("/w/PSPIMAGE"))
	assert.False(t, Format("HEIC").Valid())
	assert.Contains(t, FormatNames(), "WEBP")
	assert.Len(t, FormatNames(), 15)
	assert.Equal(t, "jp2", FormatJP2.Extension())
	assert.True(t, FormatHEIF.MatchesFile("/w/IMG_0001.HEIF"))
}

func TestNewLayout(t *testing.T) {
	l := NewLayout("/opt/ncb")
	assert.Equal(t, filepath.Join("/opt/ncb", "data"), l.DataDir)
	assert.Equal(t, filepath.Join("/opt/ncb", "data", "temp"), l.TempDir)
	assert.Equal(t, filepath.Join("/opt/ncb", "venv"), l.VenvDir)
	assert.Equal(t, filepath.Join("/opt/ncb", "workspace"), l.WorkspaceDir)
	assert.Equal(t, filepath.Join("/opt/ncb", "data", "NConvert-linux64", "nconvert"), l.ConverterPath())
	assert.Equal(t, filepath.Join("/opt/ncb", "data", "temp", "NConvert-linux64.tgz"), l.ArchivePath())
	assert.Equal(t, filepath.Join("/opt/ncb", "data", "temp", "extract"), l.StagingDir())
	assert.Equal(t, filepath.Join("/opt/ncb", "state"), l.StateDir)
	assert.Equal(t, filepath.Join("/opt/ncb", "state", "history.db"), l.HistoryDB())
	assert.Equal(t, filepath.Join("/opt/ncb", "venv", "bin", "pip"), l.VenvBin("pip"))
}

func TestSummary(t *testing.T) {
	var s Summary
	s.Add(ConversionOutcome{Input: "a", Success: true})
	s.Add(ConversionOutcome{Input: "b", Error: "boom"})
	s.Deleted = 1
	s.DeleteErrors = []string{"c: permission denied"}

	assert.Equal(t, 2, s.Total)
	assert.Equal(t, s.Total, s.Succeeded+s.Failed)
	assert.True(t, s.HasFailures())
	assert.Equal(t, "Total: 2, Succeeded: 1, Failed: 1, Deleted: 1\n  delete failed: c: permission denied", s.String())

	s.Message = "note"
	assert.Equal(t, "note\nTotal: 2, Succeeded: 1, Failed: 1, Deleted: 1\n  delete failed: c: permission denied", s.String())
}
