// Package metrics records per-topic generation timing distributions.
package metrics

import (
	"sync"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram bounds: 1ms to 1h at 3 significant figures.
const (
	minValueMs = 1
	maxValueMs = int64(time.Hour / time.Millisecond)
	sigFigs    = 3
)

// TopicSnapshot summarizes one topic's recorded timings in seconds.
type TopicSnapshot struct {
	Count    int64   `json:"count"`
	QueueP50 float64 `json:"queue_p50"`
	QueueP95 float64 `json:"queue_p95"`
	QueueMax float64 `json:"queue_max"`
	ExecP50  float64 `json:"exec_p50"`
	ExecP95  float64 `json:"exec_p95"`
	ExecMax  float64 `json:"exec_max"`
}

type topicHists struct {
	queue *hdrhistogram.Histogram
	exec  *hdrhistogram.Histogram
}

// Recorder aggregates queue and execution durations per topic alias.
type Recorder struct {
	mu     sync.Mutex
	topics map[string]*topicHists
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{topics: make(map[string]*topicHists)}
}

// Record adds one completed job's timings. Values outside the histogram
// range are clamped by the histogram itself.
func (r *Recorder) Record(alias string, queueSec, execSec float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.topics[alias]
	if !ok {
		h = &topicHists{
			queue: hdrhistogram.New(minValueMs, maxValueMs, sigFigs),
			exec:  hdrhistogram.New(minValueMs, maxValueMs, sigFigs),
		}
		r.topics[alias] = h
	}
	_ = h.queue.RecordValue(toMs(queueSec))
	_ = h.exec.RecordValue(toMs(execSec))
}

// Snapshot returns per-topic summaries.
func (r *Recorder) Snapshot() map[string]TopicSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]TopicSnapshot, len(r.topics))
	for alias, h := range r.topics {
		out[alias] = TopicSnapshot{
			Count:    h.exec.TotalCount(),
			QueueP50: toSec(h.queue.ValueAtQuantile(50)),
			QueueP95: toSec(h.queue.ValueAtQuantile(95)),
			QueueMax: toSec(h.queue.Max()),
			ExecP50:  toSec(h.exec.ValueAtQuantile(50)),
			ExecP95:  toSec(h.exec.ValueAtQuantile(95)),
			ExecMax:  toSec(h.exec.Max()),
		}
	}
	return out
}

func toMs(sec float64) int64 {
	ms := int64(sec * 1000)
	if ms < minValueMs {
		return minValueMs
	}
	if ms > maxValueMs {
		return maxValueMs
	}
	return ms
}

func toSec(ms int64) float64 {
	return float64(ms) / 1000
}
