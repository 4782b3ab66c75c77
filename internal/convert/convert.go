// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert runs the external image converter over every matching
// file in a folder. A batch never aborts because of one file: each file
// gets its own outcome, and the result is always a Summary, never an error.
package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/nconvert-bash/pkg/types"
)

// Converter converts one input file into output in the target format.
// Different converter programs implement this interface.
type Converter interface {
	Convert(ctx context.Context, input, output string, target types.Format) error
}

// BatchConverter runs a Converter over a ConversionJob.
type BatchConverter struct {
	conv     Converter
	binPath  string
	out      io.Writer
	log      *slog.Logger
	discover func(dir string, f types.Format) ([]string, error)
	newID    func() string
	now      func() time.Time
}

// NewBatchConverter returns a BatchConverter that drives conv. binPath is
// the converter executable, checked before any file is touched. Per-file
// lines and the final summary are written to out.
func NewBatchConverter(conv Converter, binPath string, out io.Writer, log *slog.Logger) *BatchConverter {
	if out == nil {
		out = io.Discard
	}
	if log == nil {
		log = slog.Default()
	}
	return &BatchConverter{
		conv:     conv,
		binPath:  binPath,
		out:      out,
		log:      log,
		discover: Discover,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Run converts every file of job in order. When job.Files is empty the
// folder is searched for files of the source format. Preconditions (an
// executable converter, an existing folder) are checked first and a failed
// precondition returns a Summary with Message set and nothing processed.
func (b *BatchConverter) Run(ctx context.Context, job types.ConversionJob) types.Summary {
	s := types.Summary{RunID: b.newID()}

	if err := checkExecutable(b.binPath); err != nil {
		return b.abort(s, fmt.Sprintf("converter not found at %s (%v). Run `nconvert-bash install` first.", b.binPath, err))
	}
	if info, err := os.Stat(job.Folder); err != nil || !info.IsDir() {
		return b.abort(s, "input folder not found: "+job.Folder)
	}
	for _, f := range []types.Format{job.Source, job.Target} {
		if !f.Valid() {
			return b.abort(s, fmt.Sprintf("unsupported format %q", f))
		}
	}
	if job.Source == job.Target {
		return b.abort(s, fmt.Sprintf("source and target format are both %s", job.Source))
	}

	files := job.Files
	if len(files) == 0 {
		found, err := b.discover(job.Folder, job.Source)
		if err != nil {
			return b.abort(s, fmt.Sprintf("scanning %s: %v", job.Folder, err))
		}
		files = found
	}
	if len(files) == 0 {
		s.Message = fmt.Sprintf("no .%s files found in %s", job.Source.Extension(), job.Folder)
		fmt.Fprintln(b.out, s.Message)
		return s
	}

	fmt.Fprintf(b.out, "Found %d .%s file(s) in %s\n", len(files), job.Source.Extension(), job.Folder)
	b.log.Debug("batch started", "run_id", s.RunID, "files", len(files), "source", job.Source, "target", job.Target)

	for _, in := range files {
		o := b.convertOne(ctx, in, job.Target)
		s.Add(o)
		if o.Success {
			fmt.Fprintf(b.out, "✓ %s → %s\n", filepath.Base(o.Input), filepath.Base(o.Output))
		} else {
			fmt.Fprintf(b.out, "✗ %s: %s\n", filepath.Base(o.Input), o.Error)
		}
	}

	if job.DeleteAfter {
		b.deleteConverted(&s)
	}

	fmt.Fprintln(b.out, s.String())
	return s
}

func (b *BatchConverter) abort(s types.Summary, msg string) types.Summary {
	s.Message = msg
	s.Aborted = true
	fmt.Fprintf(b.out, "✗ %s\n", msg)
	return s
}

func (b *BatchConverter) convertOne(ctx context.Context, in string, target types.Format) types.ConversionOutcome {
	o := types.ConversionOutcome{Input: in, Output: OutputPath(in, target)}
	start := b.now()
	err := b.conv.Convert(ctx, o.Input, o.Output, target)
	o.Duration = b.now().Sub(start)
	if err != nil {
		o.Error = err.Error()
		b.log.Debug("conversion failed", "input", in, "error", err)
		return o
	}
	o.Success = true
	return o
}

// deleteConverted removes originals whose conversion succeeded. A failed
// removal is recorded and the remaining deletions continue.
func (b *BatchConverter) deleteConverted(s *types.Summary) {
	for i := range s.Outcomes {
		o := &s.Outcomes[i]
		if !o.Success {
			continue
		}
		if err := os.Remove(o.Input); err != nil {
			s.DeleteErrors = append(s.DeleteErrors, fmt.Sprintf("%s: %v", o.Input, err))
			b.log.Warn("deleting original", "path", o.Input, "error", err)
			continue
		}
		o.Deleted = true
		s.Deleted++
		fmt.Fprintf(b.out, "Deleted: %s\n", filepath.Base(o.Input))
	}
}

// OutputPath replaces the extension of input with the target format's.
func OutputPath(input string, target types.Format) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + "." + target.Extension()
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}
