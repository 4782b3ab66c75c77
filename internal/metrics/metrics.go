// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes batch conversion counters in the Prometheus text
// format. A CLI process is too short-lived to be scraped, so the registry
// is written to a file for the node_exporter textfile collector. Each run
// loads the previous file first so counters keep increasing across runs.
package metrics

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/pdiddy/nconvert-bash/pkg/types"
)

const namespace = "nconvert"

var (
	batchBuckets = prometheus.ExponentialBuckets(1, 4, 8)
	fileBuckets  = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
)

// Recorder holds the conversion metrics on a private registry.
type Recorder struct {
	reg      *prometheus.Registry
	files    *prometheus.CounterVec
	deleted  prometheus.Counter
	runs     *prometheus.CounterVec
	duration *histogram
	fileTime *histogram
	lastRun  prometheus.Gauge
	now      func() time.Time
}

// New returns a Recorder with every metric registered.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Files processed by batch conversion, by outcome.",
		}, []string{"status"}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deleted_total",
			Help:      "Original files deleted after a successful conversion.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batch runs, by source and target format.",
		}, []string{"source", "target"}),
		duration: newHistogram("batch_duration_seconds", "Wall time of a batch run.", batchBuckets),
		fileTime: newHistogram("file_duration_seconds", "Converter run time per file.", fileBuckets),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_batch_timestamp_seconds",
			Help:      "Unix time the last batch finished.",
		}),
		now: time.Now,
	}
	r.reg.MustRegister(r.files, r.deleted, r.runs, r.duration, r.fileTime, r.lastRun)
	// Export zeroes for both outcomes so rate() works from the first run.
	r.files.WithLabelValues("succeeded")
	r.files.WithLabelValues("failed")
	return r
}

// Registry returns the registry the metrics live on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// Load seeds the counters and histograms from a textfile written by an
// earlier run. A missing file leaves the recorder at zero.
func (r *Recorder) Load(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening metrics file: %w", err)
	}
	defer f.Close()

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(f)
	if err != nil {
		return fmt.Errorf("parsing metrics file %s: %w", path, err)
	}

	for _, m := range families[namespace+"_files_total"].GetMetric() {
		r.files.WithLabelValues(label(m, "status")).Add(m.GetCounter().GetValue())
	}
	for _, m := range families[namespace+"_deleted_total"].GetMetric() {
		r.deleted.Add(m.GetCounter().GetValue())
	}
	for _, m := range families[namespace+"_batches_total"].GetMetric() {
		r.runs.WithLabelValues(label(m, "source"), label(m, "target")).Add(m.GetCounter().GetValue())
	}
	for _, m := range families[namespace+"_batch_duration_seconds"].GetMetric() {
		r.duration.restore(m.GetHistogram())
	}
	for _, m := range families[namespace+"_file_duration_seconds"].GetMetric() {
		r.fileTime.restore(m.GetHistogram())
	}
	for _, m := range families[namespace+"_last_batch_timestamp_seconds"].GetMetric() {
		r.lastRun.Set(m.GetGauge().GetValue())
	}
	return nil
}

// Observe adds one finished batch.
func (r *Recorder) Observe(job types.ConversionJob, s types.Summary, dur time.Duration) {
	r.runs.WithLabelValues(string(job.Source), string(job.Target)).Inc()
	r.files.WithLabelValues("succeeded").Add(float64(s.Succeeded))
	r.files.WithLabelValues("failed").Add(float64(s.Failed))
	r.deleted.Add(float64(s.Deleted))
	r.duration.observe(dur.Seconds())
	for _, o := range s.Outcomes {
		r.fileTime.observe(o.Duration.Seconds())
	}
	r.lastRun.Set(float64(r.now().Unix()))
}

// WriteTextfile writes the registry to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

func label(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// histogram is a cumulative histogram whose state can be restored from a
// previous textfile, which prometheus.Histogram does not allow.
type histogram struct {
	desc    *prometheus.Desc
	bounds  []float64
	mu      sync.Mutex
	buckets map[float64]uint64 // cumulative count per upper bound
	count   uint64
	sum     float64
}

func newHistogram(name, help string, bounds []float64) *histogram {
	h := &histogram{
		desc:    prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil),
		bounds:  append([]float64(nil), bounds...),
		buckets: make(map[float64]uint64, len(bounds)),
	}
	sort.Float64s(h.bounds)
	for _, b := range h.bounds {
		h.buckets[b] = 0
	}
	return h
}

func (h *histogram) observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, b := range h.bounds {
		if v <= b {
			h.buckets[b]++
		}
	}
	h.count++
	h.sum += v
}

// restore adds a previously exported histogram. Buckets whose bounds no
// longer exist are dropped; count and sum are kept.
func (h *histogram) restore(prev *dto.Histogram) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, b := range prev.GetBucket() {
		ub := b.GetUpperBound()
		if math.IsInf(ub, +1) {
			continue
		}
		if _, ok := h.buckets[ub]; ok {
			h.buckets[ub] += b.GetCumulativeCount()
		}
	}
	h.count += prev.GetSampleCount()
	h.sum += prev.GetSampleSum()
}

func (h *histogram) Describe(ch chan<- *prometheus.Desc) {
	ch <- h.desc
}

func (h *histogram) Collect(ch chan<- prometheus.Metric) {
	h.mu.Lock()
	buckets := make(map[float64]uint64, len(h.buckets))
	for k, v := range h.buckets {
		buckets[k] = v
	}
	count, sum := h.count, h.sum
	h.mu.Unlock()
	ch <- prometheus.MustNewConstHistogram(h.desc, count, sum, buckets)
}
