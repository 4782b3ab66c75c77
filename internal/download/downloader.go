// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package download fetches remote artifacts to local files. Interrupted
// transfers are resumed with HTTP range requests, failed attempts are
// retried after a fixed pause, and the final size is checked against what
// the server advertised. A download that exhausts its retries never leaves
// a partial file behind.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/nconvert-bash/internal/httputil"
)

// RetryDelay is the fixed pause between attempts. Tests override this to
// avoid real sleeps.
var RetryDelay = 2 * time.Second

const (
	// DefaultRetries is the attempt budget used when the caller passes zero.
	DefaultRetries = 3

	chunkSize = 32 * 1024

	headRetries = 1
)

// ErrSizeMismatch is returned when the bytes on disk after a transfer do
// not match the size the server advertised.
var ErrSizeMismatch = errors.New("download incomplete")

// StatusError reports an HTTP status the downloader cannot act on.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d from %s", e.Code, e.URL)
}

// Task is the mutable state of one download across attempts. ExistingSize
// only grows while bytes are appended; it is reset when the local file has
// to be discarded.
type Task struct {
	URL          string
	Dest         string
	ExistingSize int64

	// TotalSize is the full size learned from the server, or -1 if unknown.
	TotalSize  int64
	MaxRetries int
}

// Downloader performs resumable downloads.
type Downloader struct {
	client    *http.Client
	userAgent string
	out       io.Writer
	log       *slog.Logger
}

// New returns a Downloader. Progress and status lines are written to out;
// a nil client selects httputil.NewClient defaults.
func New(client *http.Client, userAgent string, out io.Writer, log *slog.Logger) *Downloader {
	if client == nil {
		client = httputil.NewClient(0)
	}
	if userAgent == "" {
		userAgent = httputil.DefaultUserAgent
	}
	if out == nil {
		out = io.Discard
	}
	if log == nil {
		log = slog.Default()
	}
	return &Downloader{client: client, userAgent: userAgent, out: out, log: log}
}

// Fetch downloads url to dest, resuming from any bytes already present. It
// makes up to maxRetries attempts (zero selects DefaultRetries). When every
// attempt fails the partial file is removed and the last error returned.
// Context cancellation stops immediately and keeps the partial file so a
// later call can resume it.
func (d *Downloader) Fetch(ctx context.Context, url, dest string, maxRetries int) error {
	if maxRetries <= 0 {
		maxRetries = DefaultRetries
	}
	task := &Task{URL: url, Dest: dest, TotalSize: -1, MaxRetries: maxRetries}

	var lastErr error
	for attempt := 1; attempt <= task.MaxRetries; attempt++ {
		if attempt > 1 {
			fmt.Fprintf(d.out, "Retry attempt %d/%d...\n", attempt, task.MaxRetries)
		}

		err := d.attempt(ctx, task)
		if err == nil {
			return nil
		}
		lastErr = err
		fmt.Fprintf(d.out, "✗ Download attempt %d failed: %v\n", attempt, err)
		d.log.Debug("download attempt failed", "url", url, "attempt", attempt, "error", err)

		if ctx.Err() != nil {
			return fmt.Errorf("download interrupted: %w", ctx.Err())
		}
		if attempt < task.MaxRetries {
			fmt.Fprintf(d.out, "Waiting %s before retry...\n", RetryDelay)
			select {
			case <-ctx.Done():
				return fmt.Errorf("download interrupted: %w", ctx.Err())
			case <-time.After(RetryDelay):
			}
		}
	}

	fmt.Fprintln(d.out, "All download attempts failed")
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		d.log.Warn("removing partial download", "path", dest, "error", err)
	}
	return fmt.Errorf("download failed after %d attempts: %w", task.MaxRetries, lastErr)
}

// attempt performs one request and streams the body to disk.
func (d *Downloader) attempt(ctx context.Context, t *Task) error {
	t.ExistingSize = 0
	if info, err := os.Stat(t.Dest); err == nil && info.Mode().IsRegular() {
		t.ExistingSize = info.Size()
		if t.ExistingSize > 0 {
			fmt.Fprintf(d.out, "Found existing file: %d bytes\n", t.ExistingSize)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	if t.ExistingSize > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", t.ExistingSize))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	appendMode := false
	switch resp.StatusCode {
	case http.StatusPartialContent:
		start, total, ok := parseContentRange(resp.Header.Get("Content-Range"))
		if ok && start != t.ExistingSize {
			// The server answered a different range than asked for; the
			// local bytes cannot be trusted to line up with the body.
			d.discard(t)
			return fmt.Errorf("server resumed at byte %d, expected %d", start, t.ExistingSize)
		}
		switch {
		case ok && total >= 0:
			t.TotalSize = total
		case resp.ContentLength >= 0:
			t.TotalSize = t.ExistingSize + resp.ContentLength
		default:
			t.TotalSize = -1
		}
		appendMode = true
		fmt.Fprintf(d.out, "Resuming download from byte %d\n", t.ExistingSize)

	case http.StatusOK:
		if t.ExistingSize > 0 {
			fmt.Fprintln(d.out, "Server doesn't support resume, restarting download")
			t.ExistingSize = 0
		}
		t.TotalSize = resp.ContentLength

	case http.StatusRequestedRangeNotSatisfiable:
		return d.checkComplete(ctx, t)

	default:
		return &StatusError{Code: resp.StatusCode, URL: t.URL}
	}

	if t.TotalSize >= 0 {
		fmt.Fprintf(d.out, "Total file size: %d bytes (%.1f MB)\n", t.TotalSize, float64(t.TotalSize)/1024/1024)
	}

	if err := d.stream(resp.Body, t, appendMode); err != nil {
		return err
	}

	info, err := os.Stat(t.Dest)
	if err != nil {
		return fmt.Errorf("checking downloaded file: %w", err)
	}
	if t.TotalSize > 0 && info.Size() != t.TotalSize {
		if info.Size() > t.TotalSize {
			d.discard(t)
		}
		return fmt.Errorf("%w: got %d bytes, expected %d", ErrSizeMismatch, info.Size(), t.TotalSize)
	}

	fmt.Fprintln(d.out, "✓ Download completed successfully")
	return nil
}

// stream copies body to the destination in fixed-size chunks, appending
// when resuming and truncating otherwise.
func (d *Downloader) stream(body io.Reader, t *Task, appendMode bool) error {
	if err := os.MkdirAll(filepath.Dir(t.Dest), 0o755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(t.Dest, flags, 0o644)
	if err != nil {
		return fmt.Errorf("opening destination: %w", err)
	}

	progress := NewProgress(d.out, t.TotalSize, t.ExistingSize)
	buf := make([]byte, chunkSize)
	var streamErr error
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				streamErr = fmt.Errorf("writing download: %w", werr)
				break
			}
			t.ExistingSize += int64(n)
			progress.Add(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			streamErr = fmt.Errorf("reading response body: %w", rerr)
			break
		}
	}
	progress.Finish()

	if err := f.Close(); err != nil && streamErr == nil {
		streamErr = fmt.Errorf("closing destination: %w", err)
	}
	return streamErr
}

// checkComplete resolves a 416 answer: the local file may already hold the
// whole resource. A HEAD request learns the remote size; equal sizes mean
// the download is done.
func (d *Downloader) checkComplete(ctx context.Context, t *Task) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, t.URL, nil)
	if err != nil {
		return fmt.Errorf("creating HEAD request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := httputil.DoWithRetry(ctx, d.client, req, headRetries)
	if err != nil {
		return fmt.Errorf("HEAD request after range not satisfiable: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusOK && resp.ContentLength > 0 {
		t.TotalSize = resp.ContentLength
		if resp.ContentLength == t.ExistingSize {
			fmt.Fprintln(d.out, "✓ File already completely downloaded")
			return nil
		}
		if t.ExistingSize > resp.ContentLength {
			d.discard(t)
		}
	}
	return &StatusError{Code: http.StatusRequestedRangeNotSatisfiable, URL: t.URL}
}

// discard removes the local partial file so the next attempt starts over.
func (d *Downloader) discard(t *Task) {
	if err := os.Remove(t.Dest); err != nil && !os.IsNotExist(err) {
		d.log.Warn("discarding partial download", "path", t.Dest, "error", err)
	}
	t.ExistingSize = 0
}

// parseContentRange parses "bytes start-end/total". total is -1 when the
// server sent "*".
func parseContentRange(v string) (start, total int64, ok bool) {
	v = strings.TrimSpace(v)
	rest, found := strings.CutPrefix(v, "bytes ")
	if !found {
		return 0, 0, false
	}
	span, size, found := strings.Cut(rest, "/")
	if !found {
		return 0, 0, false
	}
	first, _, found := strings.Cut(span, "-")
	if !found {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	if size == "*" {
		return start, -1, true
	}
	total, err = strconv.ParseInt(size, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return start, total, true
}
