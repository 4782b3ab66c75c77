// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Format identifies an image format the converter can read or write. The
// value is the canonical upper-case name shown to users.
type Format string

const (
	FormatPSPImage Format = "PSPIMAGE"
	FormatJPEG     Format = "JPEG"
	FormatPNG      Format = "PNG"
	FormatBMP      Format = "BMP"
	FormatGIF      Format = "GIF"
	FormatTIFF     Format = "TIFF"
	FormatWEBP     Format = "WEBP"
	FormatPSD      Format = "PSD"
	FormatTGA      Format = "TGA"
	FormatICO      Format = "ICO"
	FormatHEIF     Format = "HEIF"
	FormatSVG      Format = "SVG"
	FormatPCX      Format = "PCX"
	FormatJP2      Format = "JP2"
	FormatEXR      Format = "EXR"
)

// formatInfo maps each format to its file extension and the name passed to
// the converter's -out flag.
var formatInfo = map[Format]struct {
	ext     string
	outName string
}{
	FormatPSPImage: {"pspimage", "pspimage"},
	FormatJPEG:     {"jpeg", "jpeg"},
	FormatPNG:      {"png", "png"},
	FormatBMP:      {"bmp", "bmp"},
	FormatGIF:      {"gif", "gif"},
	FormatTIFF:     {"tiff", "tiff"},
	FormatWEBP:     {"webp", "webp"},
	FormatPSD:      {"psd", "psd"},
	FormatTGA:      {"tga", "tga"},
	FormatICO:      {"ico", "ico"},
	FormatHEIF:     {"heif", "heif"},
	FormatSVG:      {"svg", "svg"},
	FormatPCX:      {"pcx", "pcx"},
	FormatJP2:      {"jp2", "jp2"},
	FormatEXR:      {"exr", "exr"},
}

// ParseFormat resolves a case-insensitive format name. A leading dot is
// accepted so extensions can be passed directly.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	if _, ok := formatInfo[f]; !ok {
		return "", fmt.Errorf("unsupported format %q (supported: %s)", s, strings.Join(FormatNames(), ", "))
	}
	return f, nil
}

// Valid reports whether f is a member of the supported format set.
func (f Format) Valid() bool {
	_, ok := formatInfo[f]
	return ok
}

// Extension returns the lower-case file extension without a leading dot.
func (f Format) Extension() string {
	return formatInfo[f].ext
}

// ConverterName returns the value passed to the converter's -out flag.
func (f Format) ConverterName() string {
	return formatInfo[f].outName
}

// MatchesFile reports whether path carries this format's extension,
// compared case-insensitively.
func (f Format) MatchesFile(path string) bool {
	ext := filepath.Ext(path)
	if ext == "" {
		return false
	}
	return strings.EqualFold(ext[1:], f.Extension())
}

// FormatNames lists the supported formats in sorted order.
func FormatNames() []string {
	names := make([]string, 0, len(formatInfo))
	for f := range formatInfo {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}
