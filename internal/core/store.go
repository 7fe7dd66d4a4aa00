package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"shelterdb/internal/fixture"
	"shelterdb/internal/persistence"
	"shelterdb/pkg/domain"
)

var (
	// ErrNotFound reports that no record carries the requested id.
	ErrNotFound = errors.New("core: record not found")
	// ErrPatchRejected reports a patch that could not be applied.
	ErrPatchRejected = errors.New("core: patch rejected")
)

// Store is the cache-and-merge layer of one collection. It reads a read-only
// fixture document and an overlay persisted in a key-value store, memoizes
// their merge, and writes the full view back to the overlay after every
// change. Accessors never return errors: failures are logged and degrade to
// empty input.
//
// The memoized slice is never modified in place; mutators publish a new
// slice, and everything handed to callers is a deep copy.
type Store[T domain.Record] struct {
	collection string
	key        string
	kv         persistence.Store
	fixtures   fixture.Source
	mode       MergeMode

	log     Logger
	metrics MetricsRecorder
	tracer  Tracer
	clock   Clock

	group singleflight.Group

	mu      sync.Mutex
	loaded  bool
	gen     uint64
	fixture []T
	records []T
}

// NewStore builds the store for collection. Nothing is read until the first
// accessor call.
func NewStore[T domain.Record](collection string, kv persistence.Store, fixtures fixture.Source, opts ...Option) *Store[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	mode := o.mergeMode
	if m, ok := o.mergeModes[domain.Collection(collection)]; ok {
		mode = m
	}
	return &Store[T]{
		collection: collection,
		key:        domain.Collection(collection).OverlayKey(),
		kv:         kv,
		fixtures:   fixtures,
		mode:       mode,
		log:        o.logger,
		metrics:    o.metrics,
		tracer:     o.tracer,
		clock:      o.clock,
	}
}

// Collection returns the collection name.
func (s *Store[T]) Collection() string { return s.collection }

// OverlayKey returns the key-value entry holding the overlay.
func (s *Store[T]) OverlayKey() string { return s.key }

// MergeMode reports how the store combines overlay and fixture.
func (s *Store[T]) MergeMode() MergeMode { return s.mode }

func (s *Store[T]) op(name string) string { return s.collection + "." + name }

func (s *Store[T]) observe(ctx context.Context, name string, start time.Time, success bool) {
	s.metrics.Observe(ctx, s.op(name), success, s.clock.Now().Sub(start))
}

// Load returns the merged view, computing it on first use. Concurrent first
// calls share one computation. A caller whose context ends first gets an
// empty view while the shared load completes for the others.
func (s *Store[T]) Load(ctx context.Context) []T {
	return cloneRecords(s.snapshot(ctx))
}

// GetAll returns every record of the merged view.
func (s *Store[T]) GetAll(ctx context.Context) []T { return s.Load(ctx) }

// GetByID returns the first record carrying id.
func (s *Store[T]) GetByID(ctx context.Context, id int64) (T, bool) {
	var zero T
	records := s.snapshot(ctx)
	i := indexOf(records, id)
	if i < 0 {
		return zero, false
	}
	out, err := cloneRecord(records[i])
	if err != nil {
		return zero, false
	}
	return out, true
}

// Lookup is GetByID for ids received untyped (path segments, form values,
// JSON numbers). Values that are not whole numbers are never found.
func (s *Store[T]) Lookup(ctx context.Context, raw any) (T, bool) {
	id, ok := domain.CoerceID(raw)
	if !ok {
		var zero T
		return zero, false
	}
	return s.GetByID(ctx, id)
}

// snapshot returns the memoized slice itself; callers must not modify it.
func (s *Store[T]) snapshot(ctx context.Context) []T {
	s.mu.Lock()
	if s.loaded {
		records := s.records
		s.mu.Unlock()
		return records
	}
	gen := s.gen
	s.mu.Unlock()

	ch := s.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		return s.loadShared(context.WithoutCancel(ctx), gen), nil
	})
	select {
	case res := <-ch:
		records, _ := res.Val.([]T)
		return records
	case <-ctx.Done():
		s.log.Warn("load abandoned by caller", "collection", s.collection, "error", ctx.Err())
		return nil
	}
}

func (s *Store[T]) loadShared(ctx context.Context, gen uint64) []T {
	s.mu.Lock()
	if s.loaded {
		records := s.records
		s.mu.Unlock()
		return records
	}
	s.mu.Unlock()

	fix := s.readFixture(ctx)
	ov := s.readOverlay(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.records
	}
	if s.gen != gen {
		// Reset while reading: hand the result to waiters without memoizing it.
		return mergeWith(s.mode, fix, ov.records)
	}
	return s.installLocked(ctx, fix, ov)
}

// lockLoaded acquires s.mu with the merged view memoized. Mutators read the
// sources while holding the lock so nothing can interleave with their write.
func (s *Store[T]) lockLoaded(ctx context.Context) {
	s.mu.Lock()
	if s.loaded {
		return
	}
	ctx = context.WithoutCancel(ctx)
	fix := s.readFixture(ctx)
	ov := s.readOverlay(ctx)
	s.installLocked(ctx, fix, ov)
}

// overlayRead is what readOverlay found under the overlay key.
type overlayRead[T domain.Record] struct {
	records []T
	raw     []byte
	// intact is false when the stored overlay could not be read or did not
	// decode in full. Loading then leaves it untouched.
	intact bool
}

// installLocked memoizes the merge and writes it through, unless the stored
// overlay already holds exactly that view or did not decode cleanly.
func (s *Store[T]) installLocked(ctx context.Context, fix []T, ov overlayRead[T]) []T {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, s.op("load"))
	merged := mergeWith(s.mode, fix, ov.records)
	s.fixture = fix
	s.records = merged
	s.loaded = true
	s.log.Debug("collection loaded",
		"collection", s.collection,
		"fixture_records", len(fix),
		"overlay_records", len(ov.records),
		"merged_records", len(merged),
		"merge_mode", s.mode.String())
	var err error
	if !ov.intact {
		s.log.Warn("overlay kept as stored until the next change", "collection", s.collection, "key", s.key)
	} else if payload, encErr := encodeDocument(s.collection, merged); encErr != nil || !bytes.Equal(payload, ov.raw) {
		err = s.persistLocked(ctx, merged)
	}
	span.End(err)
	s.observe(ctx, "load", start, true)
	return merged
}

func (s *Store[T]) readFixture(ctx context.Context) []T {
	start := s.clock.Now()
	if s.fixtures == nil {
		return nil
	}
	raw, err := s.fixtures.Fetch(ctx, s.collection)
	if err != nil {
		s.observe(ctx, "fixture", start, false)
		s.log.Warn("fixture unavailable, using empty fixture", "collection", s.collection, "error", err)
		return nil
	}
	records, skipped, err := decodeDocument[T](s.collection, raw)
	if err != nil {
		s.observe(ctx, "fixture", start, false)
		s.log.Error("fixture malformed, using empty fixture", "collection", s.collection, "source", "fixture", "error", err)
		return nil
	}
	for _, e := range skipped {
		s.log.Error("fixture record skipped", "collection", s.collection, "source", "fixture", "error", e)
	}
	s.observe(ctx, "fixture", start, len(skipped) == 0)
	return records
}

func (s *Store[T]) readOverlay(ctx context.Context) overlayRead[T] {
	start := s.clock.Now()
	if s.kv == nil {
		return overlayRead[T]{intact: true}
	}
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.observe(ctx, "overlay", start, false)
		s.log.Warn("overlay unavailable, using empty overlay", "collection", s.collection, "key", s.key, "error", err)
		return overlayRead[T]{}
	}
	if !ok {
		s.observe(ctx, "overlay", start, true)
		return overlayRead[T]{intact: true}
	}
	records, skipped, err := decodeDocument[T](s.collection, raw)
	if err != nil {
		s.observe(ctx, "overlay", start, false)
		s.log.Error("overlay malformed, using empty overlay", "collection", s.collection, "source", s.key, "error", err)
		return overlayRead[T]{raw: raw}
	}
	for _, e := range skipped {
		s.log.Error("overlay record skipped", "collection", s.collection, "source", s.key, "error", e)
	}
	s.observe(ctx, "overlay", start, len(skipped) == 0)
	return overlayRead[T]{records: records, raw: raw, intact: len(skipped) == 0}
}

// persistLocked writes records as the overlay. Failures leave the in-memory
// view authoritative for the rest of the process.
func (s *Store[T]) persistLocked(ctx context.Context, records []T) error {
	if s.kv == nil {
		return nil
	}
	start := s.clock.Now()
	ctx, span := s.tracer.Start(context.WithoutCancel(ctx), s.op("persist"))
	payload, err := encodeDocument(s.collection, records)
	if err == nil {
		err = s.kv.Put(ctx, s.key, payload)
	}
	span.End(err)
	s.observe(ctx, "persist", start, err == nil)
	switch {
	case err == nil:
	case errors.Is(err, persistence.ErrQuotaExceeded):
		s.log.Warn("overlay quota exceeded, changes will not survive a restart", "collection", s.collection, "key", s.key, "bytes", len(payload), "error", err)
	default:
		s.log.Warn("overlay write failed, changes will not survive a restart", "collection", s.collection, "key", s.key, "error", err)
	}
	return err
}

// Add stores rec. A zero id is replaced by one more than the highest id in
// the view (1 for an empty view). A record with an existing id replaces it in
// place; otherwise it is appended. The stored record is returned.
func (s *Store[T]) Add(ctx context.Context, rec T) T {
	start := s.clock.Now()
	s.lockLoaded(ctx)
	defer s.mu.Unlock()

	stored, err := cloneRecord(rec)
	if err == nil && stored.RecordID() == 0 {
		stored, err = withID(stored, nextID(s.records))
	}
	if err != nil {
		s.observe(ctx, "add", start, false)
		s.log.Error("record not storable", "collection", s.collection, "error", err)
		return rec
	}
	next := slices.Clone(s.records)
	if i := indexOf(next, stored.RecordID()); i >= 0 {
		next[i] = stored
	} else {
		next = append(next, stored)
	}
	s.records = next
	_ = s.persistLocked(ctx, next)
	s.observe(ctx, "add", start, true)
	out, _ := cloneRecord(stored)
	return out
}

// Update overwrites the fields named in patch on the record carrying id and
// keeps every other field. The id stays id whatever the patch says. It
// reports false when nothing changed; UpdateFields says why.
func (s *Store[T]) Update(ctx context.Context, id int64, patch domain.Patch) (T, bool) {
	rec, err := s.UpdateFields(ctx, id, patch)
	return rec, err == nil
}

// UpdateFields is Update returning ErrNotFound when no record carries id and
// ErrPatchRejected when a patch value cannot be encoded. The lookup and the
// write happen under one lock.
func (s *Store[T]) UpdateFields(ctx context.Context, id int64, patch domain.Patch) (T, error) {
	var zero T
	start := s.clock.Now()
	s.lockLoaded(ctx)
	defer s.mu.Unlock()

	i := indexOf(s.records, id)
	if i < 0 {
		s.observe(ctx, "update", start, true)
		return zero, fmt.Errorf("%s %d: %w", s.collection, id, ErrNotFound)
	}
	updated, err := applyPatch(s.records[i], id, patch)
	if err != nil {
		s.observe(ctx, "update", start, false)
		s.log.Warn("patch rejected", "collection", s.collection, "id", id, "error", err)
		return zero, fmt.Errorf("%s %d: %w: %w", s.collection, id, ErrPatchRejected, err)
	}
	s.replaceLocked(ctx, i, updated)
	s.observe(ctx, "update", start, true)
	out, _ := cloneRecord(updated)
	return out, nil
}

// Delete removes the first record carrying id and reports whether one did.
func (s *Store[T]) Delete(ctx context.Context, id int64) bool {
	start := s.clock.Now()
	s.lockLoaded(ctx)
	defer s.mu.Unlock()

	i := indexOf(s.records, id)
	if i < 0 {
		s.observe(ctx, "delete", start, true)
		return false
	}
	next := slices.Delete(slices.Clone(s.records), i, i+1)
	s.records = next
	_ = s.persistLocked(ctx, next)
	s.observe(ctx, "delete", start, true)
	return true
}

func (s *Store[T]) replaceLocked(ctx context.Context, i int, rec T) {
	next := slices.Clone(s.records)
	next[i] = rec
	s.records = next
	_ = s.persistLocked(ctx, next)
}

// ResetCache forgets the memoized view. The overlay is left as is; the next
// access reloads and re-merges both sources.
func (s *Store[T]) ResetCache() {
	s.mu.Lock()
	s.loaded = false
	s.records = nil
	s.fixture = nil
	s.gen++
	s.mu.Unlock()
	s.log.Debug("collection cache reset", "collection", s.collection)
}
