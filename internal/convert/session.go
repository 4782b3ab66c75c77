// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/nconvert-bash/pkg/types"
)

// Session holds the user's current conversion choices. Setters validate
// their input and leave the session unchanged on error.
type Session struct {
	folder      string
	source      types.Format
	target      types.Format
	deleteAfter bool
}

// NewSession returns a session over folder converting PSPIMAGE to JPEG.
func NewSession(folder string) *Session {
	return &Session{folder: folder, source: types.FormatPSPImage, target: types.FormatJPEG}
}

func (s *Session) Folder() string       { return s.folder }
func (s *Session) Source() types.Format { return s.source }
func (s *Session) Target() types.Format { return s.target }
func (s *Session) DeleteAfter() bool    { return s.deleteAfter }

// SetFolder selects the input folder, which must be an existing directory.
func (s *Session) SetFolder(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("folder %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	s.folder = abs
	return nil
}

// SetSource selects the input format by name.
func (s *Session) SetSource(name string) error {
	f, err := types.ParseFormat(name)
	if err != nil {
		return err
	}
	s.source = f
	return nil
}

// SetTarget selects the output format by name.
func (s *Session) SetTarget(name string) error {
	f, err := types.ParseFormat(name)
	if err != nil {
		return err
	}
	s.target = f
	return nil
}

// SetDeleteAfter chooses whether originals are removed after a successful
// conversion.
func (s *Session) SetDeleteAfter(v bool) {
	s.deleteAfter = v
}

// Job builds the conversion job for the current choices. Files are left
// empty for the batch converter to discover.
func (s *Session) Job() (types.ConversionJob, error) {
	if s.source == s.target {
		return types.ConversionJob{}, fmt.Errorf("source and target format are both %s", s.source)
	}
	return types.ConversionJob{
		Folder:      s.folder,
		Source:      s.source,
		Target:      s.target,
		DeleteAfter: s.deleteAfter,
	}, nil
}
