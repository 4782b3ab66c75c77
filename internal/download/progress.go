// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// redrawInterval throttles progress output while a transfer is running.
	redrawInterval = 500 * time.Millisecond

	barWidth  = 10
	lineWidth = 79
)

// Progress tracks a single transfer and renders a one-line indicator. It is
// display state only: recomputed on every update and never persisted.
type Progress struct {
	Total      int64
	Downloaded int64

	// resumed is the byte count already on disk when the session started.
	// It counts toward Downloaded but not toward the transfer rate.
	resumed int64

	start    time.Time
	lastDraw time.Time
	drawn    bool
	finished bool

	out io.Writer
	now func() time.Time
}

// NewProgress starts tracking a transfer of total bytes (zero or negative
// when unknown) of which existing are already present locally.
func NewProgress(out io.Writer, total, existing int64) *Progress {
	return newProgressAt(out, total, existing, time.Now)
}

func newProgressAt(out io.Writer, total, existing int64, now func() time.Time) *Progress {
	if out == nil {
		out = io.Discard
	}
	return &Progress{
		Total:      total,
		Downloaded: existing,
		resumed:    existing,
		start:      now(),
		out:        out,
		now:        now,
	}
}

// Add records n more bytes and redraws when the throttle interval has
// elapsed or the transfer just completed.
func (p *Progress) Add(n int) {
	p.Downloaded += int64(n)
	t := p.now()
	if p.complete() {
		p.Finish()
		return
	}
	if p.drawn && t.Sub(p.lastDraw) < redrawInterval {
		return
	}
	p.draw(t)
}

// Finish draws the final state and terminates the line. Repeated calls are
// no-ops.
func (p *Progress) Finish() {
	if p.finished {
		return
	}
	p.finished = true
	p.draw(p.now())
	fmt.Fprintln(p.out)
}

func (p *Progress) draw(t time.Time) {
	p.lastDraw = t
	p.drawn = true
	fmt.Fprint(p.out, "\r"+fitLine(p.Line()))
}

func (p *Progress) complete() bool {
	return p.Total > 0 && p.Downloaded >= p.Total
}

// Elapsed is the wall time since tracking started.
func (p *Progress) Elapsed() time.Duration {
	return p.now().Sub(p.start)
}

// Rate is the average transfer rate of this session in bytes per second.
func (p *Progress) Rate() float64 {
	secs := p.Elapsed().Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(p.Downloaded-p.resumed) / secs
}

// ETA estimates the remaining time. It is zero once the transfer is
// complete, when the total is unknown, or while the rate is zero.
func (p *Progress) ETA() time.Duration {
	rate := p.Rate()
	if rate <= 0 || p.Total <= 0 || p.complete() {
		return 0
	}
	remaining := float64(p.Total-p.Downloaded) / rate
	return time.Duration(remaining * float64(time.Second))
}

// Percent is the completed share in the range 0-100, or zero when the total
// is unknown.
func (p *Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	pct := float64(p.Downloaded) / float64(p.Total) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Line renders the indicator, for example
// "[██████░░░░] 64.2%, 9.8MB/15.3MB, 1.0MB/s, 12s/18s".
func (p *Progress) Line() string {
	filled := int(p.Percent() / 100 * barWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	elapsed := p.Elapsed().Seconds()

	if p.complete() {
		return fmt.Sprintf("[%s] 100.0%%, %s/%s, Done in %s",
			bar, formatSize(float64(p.Downloaded)), formatSize(float64(p.Total)), formatSeconds(elapsed))
	}

	total := "?"
	if p.Total > 0 {
		total = formatSize(float64(p.Total))
	}
	return fmt.Sprintf("[%s] %4.1f%%, %s/%s, %s/s, %s/%s",
		bar, p.Percent(), formatSize(float64(p.Downloaded)), total,
		formatSize(p.Rate()), formatSeconds(elapsed), formatSeconds(p.ETA().Seconds()))
}

// fitLine truncates or pads s to the terminal line width so a redraw fully
// overwrites the previous one.
func fitLine(s string) string {
	n := utf8.RuneCountInString(s)
	if n > lineWidth {
		r := []rune(s)
		return string(r[:lineWidth-3]) + "..."
	}
	return s + strings.Repeat(" ", lineWidth-n)
}

func formatSize(size float64) string {
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.1f%s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.1fTB", size)
}

func formatSeconds(secs float64) string {
	s := int64(secs + 0.5)
	switch {
	case s < 60:
		return fmt.Sprintf("%ds", s)
	case s < 3600:
		return fmt.Sprintf("%dm%ds", s/60, s%60)
	default:
		return fmt.Sprintf("%dh%dm", s/3600, (s%3600)/60)
	}
}
