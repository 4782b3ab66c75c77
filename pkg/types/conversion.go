// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
	"time"
)

// ConversionJob is one user-triggered batch: the discovered input files in
// walk order plus the formats and the delete-after-success choice. A job is
// built fresh for every run and never persisted.
type ConversionJob struct {
	Folder      string   `json:"folder" yaml:"folder"`
	Files       []string `json:"files" yaml:"files"`
	Source      Format   `json:"source" yaml:"source"`
	Target      Format   `json:"target" yaml:"target"`
	DeleteAfter bool     `json:"delete_after" yaml:"delete_after"`
}

// ConversionOutcome is the result of converting a single input file.
type ConversionOutcome struct {
	Input    string        `json:"input" yaml:"input"`
	Output   string        `json:"output" yaml:"output"`
	Success  bool          `json:"success" yaml:"success"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Deleted  bool          `json:"deleted,omitempty" yaml:"deleted,omitempty"`
}

// Summary aggregates the outcomes of a batch run. Outcomes follow job order
// and Total always equals Succeeded + Failed.
type Summary struct {
	RunID     string              `json:"run_id" yaml:"run_id"`
	Outcomes  []ConversionOutcome `json:"outcomes" yaml:"outcomes"`
	Total     int                 `json:"total" yaml:"total"`
	Succeeded int                 `json:"succeeded" yaml:"succeeded"`
	Failed    int                 `json:"failed" yaml:"failed"`
	Deleted   int                 `json:"deleted" yaml:"deleted"`

	// DeleteErrors records originals that could not be removed after a
	// successful conversion.
	DeleteErrors []string `json:"delete_errors,omitempty" yaml:"delete_errors,omitempty"`

	// Message explains a batch that did not run (missing converter, missing
	// folder, no matching files). Empty when files were processed.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// Aborted is set when a precondition failed and no file was attempted.
	// A folder with no matching files is not aborted.
	Aborted bool `json:"aborted,omitempty" yaml:"aborted,omitempty"`
}

// Add appends an outcome and updates the counters.
func (s *Summary) Add(o ConversionOutcome) {
	s.Outcomes = append(s.Outcomes, o)
	s.Total++
	if o.Success {
		s.Succeeded++
	} else {
		s.Failed++
	}
}

// HasFailures reports whether any file failed conversion.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// String renders the human-readable summary block.
func (s Summary) String() string {
	var b strings.Builder
	if s.Message != "" {
		b.WriteString(s.Message)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Total: %d, Succeeded: %d, Failed: %d, Deleted: %d",
		s.Total, s.Succeeded, s.Failed, s.Deleted)
	for _, e := range s.DeleteErrors {
		fmt.Fprintf(&b, "\n  delete failed: %s", e)
	}
	return b.String()
}
