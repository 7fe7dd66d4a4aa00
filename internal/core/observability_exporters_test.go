package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"shelterdb/pkg/domain"
)

func TestExpvarMetricsRecorder(t *testing.T) {
	ctx := context.Background()
	rec := NewExpvarMetricsRecorder("")
	if !strings.HasPrefix(rec.Name(), "shelter_collections_") {
		t.Fatalf("unexpected generated name %s", rec.Name())
	}
	rec.Observe(ctx, "animals.load", true, 2*time.Millisecond)
	rec.Observe(ctx, "animals.load", false, time.Millisecond)
	rec.Observe(ctx, "animals.overlay", false, time.Millisecond)
	rec.Observe(ctx, "rooms.fixture", false, time.Millisecond)
	rec.Observe(ctx, "rooms.fixture", true, time.Millisecond)
	rec.Observe(ctx, "", true, time.Second)
	rec.Observe(ctx, "load", true, time.Second)

	snap := rec.Snapshot()
	if len(snap.Collections) != 2 {
		t.Fatalf("expected animals and rooms only, got %+v", snap.Collections)
	}
	load := snap.Collections["animals"].Steps["load"]
	if load.Count != 2 || load.Errors != 1 || load.TotalMS != 3 || load.LastOK || load.LastError.IsZero() {
		t.Fatalf("unexpected load stats %+v", load)
	}
	if got := snap.Collections["animals"].Degraded; len(got) != 1 || got[0] != "overlay" {
		t.Fatalf("load is not a source step, only overlay should be degraded: %v", got)
	}
	if got := snap.Collections["rooms"].Degraded; len(got) != 0 {
		t.Fatalf("a recovered fixture should clear the degraded flag: %v", got)
	}
	if got := rec.Degraded(); len(got) != 1 || got[0] != "animals" {
		t.Fatalf("unexpected degraded collections %v", got)
	}

	published := expvar.Get(rec.Name())
	if published == nil {
		t.Fatalf("expected expvar export")
	}
	var decoded ExpvarSnapshot
	if err := json.Unmarshal([]byte(published.String()), &decoded); err != nil {
		t.Fatalf("decode published value: %v", err)
	}
	if decoded.Collections["animals"].Steps["overlay"].Errors != 1 {
		t.Fatalf("unexpected published value %s", published.String())
	}
}

func TestExpvarMetricsRecorderFollowsStore(t *testing.T) {
	ctx := context.Background()
	rec := NewExpvarMetricsRecorder("")
	store := newAnimals(t, failingKV{}, newSource(map[string]string{"animals": bobikFixture}), WithMetricsRecorder(rec))
	store.GetAll(ctx)
	store.Add(ctx, domain.Animal{Name: "Murka"})

	animals := rec.Snapshot().Collections["animals"]
	if animals.Steps["fixture"].Count != 1 || !animals.Steps["fixture"].LastOK {
		t.Fatalf("unexpected fixture stats %+v", animals.Steps["fixture"])
	}
	if animals.Steps["add"].Count != 1 {
		t.Fatalf("unexpected add stats %+v", animals.Steps["add"])
	}
	if got := animals.Degraded; len(got) != 2 || got[0] != "overlay" || got[1] != "persist" {
		t.Fatalf("an unreachable kv should degrade overlay and persist, got %v", got)
	}
}

func TestJSONTracer(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "animals.persist")
	span.End(errors.New("quota"))
	_, span = tracer.Start(context.Background(), "rooms.load")
	span.End(nil)

	entries := tracer.Entries()
	if len(entries) != 2 || entries[0].Status != "error" || entries[0].Error != "quota" || entries[1].Status != "success" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[1].Collection != "rooms" || entries[1].Step != "load" {
		t.Fatalf("operation should split into collection and step: %+v", entries[1])
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two json lines, got %q", buf.String())
	}
	var first TraceEntry
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if first.Operation != "animals.persist" || first.Collection != "animals" || first.Step != "persist" {
		t.Fatalf("unexpected first line %+v", first)
	}
	if got := NewJSONTracer(nil); got == nil {
		t.Fatalf("nil writer tracer should still be usable")
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	again, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("re-register should reuse the collector: %v", err)
	}
	multi := MultiMetricsRecorder(rec, nil, again)
	multi.Observe(context.Background(), "rooms.add", true, 5*time.Millisecond)
	rec.Observe(context.Background(), "rooms.persist", false, time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	counts := map[string]uint64{}
	for _, mf := range families {
		if mf.GetName() != "shelter_store_operation_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			var op, status string
			for _, l := range m.GetLabel() {
				switch l.GetName() {
				case "operation":
					op = l.GetValue()
				case "status":
					status = l.GetValue()
				}
			}
			counts[op+"/"+status] = m.GetHistogram().GetSampleCount()
		}
	}
	if counts["rooms.add/success"] != 2 || counts["rooms.persist/error"] != 1 || len(counts) != 2 {
		t.Fatalf("unexpected samples %v", counts)
	}
}

func TestNoopDefaults(t *testing.T) {
	NopLogger{}.Debug("d")
	NopLogger{}.Info("i")
	NopLogger{}.Warn("w")
	NopLogger{}.Error("e")
	noopMetrics{}.Observe(context.Background(), "x", true, 0)
	ctx, span := noopTracer{}.Start(context.Background(), "x")
	span.End(nil)
	if ctx == nil {
		t.Fatalf("expected context passthrough")
	}
	if MergeUnion.String() != "union" || MergeOverlayAuthoritative.String() != "overlay-authoritative" {
		t.Fatalf("unexpected merge mode names")
	}
}
