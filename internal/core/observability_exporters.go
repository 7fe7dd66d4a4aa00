package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// sourceSteps are the store steps that touch a source. A collection is
// degraded while the latest observation of any of them failed.
var sourceSteps = []string{"fixture", "overlay", "persist"}

// splitOperation splits "<collection>.<step>" operation names.
func splitOperation(operation string) (collection, step string) {
	collection, step, ok := strings.Cut(operation, ".")
	if !ok {
		return "", operation
	}
	return collection, step
}

// StepStats aggregates one step ("load", "persist", ...) of one collection.
type StepStats struct {
	Count     int64     `json:"count"`
	Errors    int64     `json:"errors"`
	TotalMS   float64   `json:"total_ms"`
	LastOK    bool      `json:"last_ok"`
	LastError time.Time `json:"last_error,omitzero"`
}

// CollectionStats is the per-collection view published on /debug/vars.
type CollectionStats struct {
	Steps map[string]StepStats `json:"steps"`
	// Degraded lists the source steps whose latest observation failed.
	Degraded []string `json:"degraded,omitempty"`
}

// ExpvarSnapshot is what an ExpvarMetricsRecorder publishes.
type ExpvarSnapshot struct {
	Collections map[string]CollectionStats `json:"collections"`
	RecordedAt  time.Time                  `json:"recorded_at"`
}

// ExpvarMetricsRecorder publishes per-collection step counters through
// expvar, so /debug/vars shows which collections run on a degraded source.
type ExpvarMetricsRecorder struct {
	name  string
	mu    sync.Mutex
	steps map[string]map[string]*StepStats
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated "shelter_collections_<n>" name when name is empty.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("shelter_collections_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	rec := &ExpvarMetricsRecorder{name: name, steps: make(map[string]map[string]*StepStats)}
	expvar.Publish(name, expvar.Func(func() any { return rec.Snapshot() }))
	return rec
}

// Name returns the expvar key.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Observe implements MetricsRecorder. Operations without a collection
// prefix are ignored.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	collection, step := splitOperation(operation)
	if collection == "" || step == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	byStep, ok := r.steps[collection]
	if !ok {
		byStep = make(map[string]*StepStats)
		r.steps[collection] = byStep
	}
	st, ok := byStep[step]
	if !ok {
		st = &StepStats{}
		byStep[step] = st
	}
	st.Count++
	st.TotalMS += float64(duration) / float64(time.Millisecond)
	st.LastOK = success
	if !success {
		st.Errors++
		st.LastError = time.Now().UTC()
	}
}

// Snapshot copies the current counters.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := ExpvarSnapshot{Collections: make(map[string]CollectionStats, len(r.steps)), RecordedAt: time.Now().UTC()}
	for collection, byStep := range r.steps {
		cs := CollectionStats{Steps: make(map[string]StepStats, len(byStep))}
		for step, st := range byStep {
			cs.Steps[step] = *st
		}
		for _, step := range sourceSteps {
			if st, ok := byStep[step]; ok && !st.LastOK {
				cs.Degraded = append(cs.Degraded, step)
			}
		}
		out.Collections[collection] = cs
	}
	return out
}

// Degraded lists the collections with at least one failing source, sorted.
func (r *ExpvarMetricsRecorder) Degraded() []string {
	var out []string
	for name, cs := range r.Snapshot().Collections {
		if len(cs.Degraded) > 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// TraceEntry is one finished span as written by JSONTracer.
type TraceEntry struct {
	Operation  string    `json:"operation"`
	Collection string    `json:"collection,omitempty"`
	Step       string    `json:"step"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
}

// JSONTracer writes finished spans as JSON lines, one per store step, and
// keeps them for Entries.
type JSONTracer struct {
	mu      sync.Mutex
	entries []TraceEntry
	enc     *json.Encoder
}

// NewJSONTracer returns a tracer writing to w. A nil w only retains entries.
func NewJSONTracer(w io.Writer) *JSONTracer {
	t := &JSONTracer{}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Entries returns a copy of the finished spans.
func (t *JSONTracer) Entries() []TraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Start implements Tracer.
func (t *JSONTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonSpan{tracer: t, operation: operation, started: time.Now().UTC()}
}

type jsonSpan struct {
	tracer    *JSONTracer
	operation string
	started   time.Time
}

func (s *jsonSpan) End(err error) {
	collection, step := splitOperation(s.operation)
	entry := TraceEntry{
		Operation:  s.operation,
		Collection: collection,
		Step:       step,
		Status:     "success",
		DurationMS: float64(time.Since(s.started)) / float64(time.Millisecond),
		StartedAt:  s.started,
	}
	if err != nil {
		entry.Status = "error"
		entry.Error = err.Error()
	}
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.tracer.entries = append(s.tracer.entries, entry)
	if s.tracer.enc != nil {
		_ = s.tracer.enc.Encode(entry)
	}
}
