package core

import (
	"context"
	"time"

	"shelterdb/pkg/domain"
)

// Logger is the minimal structured logger used by the record stores. Args are
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards everything. It is the default logger of the stores and
// of the packages built on them.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

// MetricsRecorder observes the outcome and latency of store operations.
// Operation names have the form "<collection>.<op>", e.g. "animals.load".
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// MultiMetricsRecorder fans observations out to every non-nil recorder.
func MultiMetricsRecorder(recorders ...MetricsRecorder) MetricsRecorder {
	out := make(multiMetrics, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type multiMetrics []MetricsRecorder

func (m multiMetrics) Observe(ctx context.Context, op string, success bool, d time.Duration) {
	for _, r := range m {
		r.Observe(ctx, op, success, d)
	}
}

// Tracer starts spans around store I/O.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended exactly once with the operation result.
type TraceSpan interface {
	End(err error)
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// MergeMode selects how a collection combines its overlay with its fixture.
type MergeMode int

const (
	// MergeUnion keeps every overlay record followed by the fixture records
	// the overlay does not shadow.
	MergeUnion MergeMode = iota
	// MergeOverlayAuthoritative uses the overlay outright whenever it holds
	// any record and ignores the fixture.
	MergeOverlayAuthoritative
)

func (m MergeMode) String() string {
	switch m {
	case MergeOverlayAuthoritative:
		return "overlay-authoritative"
	default:
		return "union"
	}
}

type options struct {
	logger     Logger
	metrics    MetricsRecorder
	tracer     Tracer
	clock      Clock
	mergeMode  MergeMode
	mergeModes map[domain.Collection]MergeMode
}

func defaultOptions() options {
	return options{
		logger:  NopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		clock:   systemClock{},
	}
}

// Option configures a Store or a Catalog.
type Option func(*options)

// WithLogger sets the logger. A nil logger keeps the no-op default.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics recorder.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(o *options) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithClock overrides the clock used for latency measurement.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithMergeMode sets the merge mode of every store built with the option.
func WithMergeMode(mode MergeMode) Option {
	return func(o *options) { o.mergeMode = mode }
}

// WithCollectionMergeMode overrides the merge mode of one collection only.
func WithCollectionMergeMode(c domain.Collection, mode MergeMode) Option {
	return func(o *options) {
		if o.mergeModes == nil {
			o.mergeModes = make(map[domain.Collection]MergeMode)
		}
		o.mergeModes[c] = mode
	}
}
