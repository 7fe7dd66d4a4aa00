package core

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"shelterdb/internal/persistence"
	"shelterdb/pkg/domain"
)

const shelterAnimals = `{"animals":[
	{"id":1,"name":"Bobik","species":"dog","age":3,"status":"available"},
	{"id":2,"name":"Murka","species":"cat","age":2,"status":"available"},
	{"id":3,"name":"Sharik","species":"dog","age":5,"status":"reserved"},
	{"id":4,"name":"Ryzhik","species":"cat","age":1}
]}`

func TestFilter(t *testing.T) {
	ctx := context.Background()
	store := newAnimals(t, persistence.NewMemory(0), newSource(map[string]string{"animals": shelterAnimals}))
	cases := []struct {
		expr string
		want []int64
	}{
		{expr: "", want: []int64{1, 2, 3, 4}},
		{expr: `species == "dog"`, want: []int64{1, 3}},
		{expr: `species == "cat" && age < 2`, want: []int64{4}},
		{expr: `status == "available" || status == nil`, want: []int64{1, 2, 4}},
		{expr: `name startsWith "Sh"`, want: []int64{3}},
		{expr: `id in [2, 3]`, want: []int64{2, 3}},
	}
	for _, tc := range cases {
		got, err := store.Filter(ctx, tc.expr)
		if err != nil {
			t.Fatalf("filter %q: %v", tc.expr, err)
		}
		if diff := cmp.Diff(tc.want, ids(got)); diff != "" {
			t.Fatalf("filter %q mismatch (-want +got):\n%s", tc.expr, diff)
		}
	}
	if _, err := store.Filter(ctx, `species ==`); err == nil {
		t.Fatalf("expected compile error")
	}
	if _, err := store.Filter(ctx, `age + 1`); err == nil {
		t.Fatalf("expected non-boolean expression to be rejected")
	}
}

func TestApplyJSONPatch(t *testing.T) {
	ctx := context.Background()
	kv := persistence.NewMemory(0)
	store := newAnimals(t, kv, newSource(map[string]string{"animals": shelterAnimals}))

	got, ok, err := store.ApplyJSONPatch(ctx, 2, []byte(`[
		{"op":"replace","path":"/status","value":"adopted"},
		{"op":"add","path":"/microchip","value":"643-0001"},
		{"op":"replace","path":"/id","value":77}
	]`))
	if err != nil || !ok {
		t.Fatalf("apply: %v %v", ok, err)
	}
	if got.ID != 2 || got.Status != domain.AnimalAdopted || got.Name != "Murka" || string(got.Extra["microchip"]) != `"643-0001"` {
		t.Fatalf("unexpected patched record %+v", got)
	}
	if !strings.Contains(overlay(t, kv, "animalsData"), `"microchip":"643-0001"`) {
		t.Fatalf("patch should persist")
	}

	if _, ok, err := store.ApplyJSONPatch(ctx, 99, []byte(`[]`)); ok || err != nil {
		t.Fatalf("missing id should be (false, nil), got %v %v", ok, err)
	}
	if _, _, err := store.ApplyJSONPatch(ctx, 1, []byte(`{"op":"nope"}`)); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, _, err := store.ApplyJSONPatch(ctx, 1, []byte(`[{"op":"test","path":"/name","value":"Rex"}]`)); err == nil {
		t.Fatalf("expected failed test op to be an error")
	}
	if got, _ := store.GetByID(ctx, 1); got.Name != "Bobik" || got.Age == nil || *got.Age != 3 {
		t.Fatalf("failed patches must not change the record: %+v", got)
	}

	odd, ok, err := store.ApplyJSONPatch(ctx, 1, []byte(`[{"op":"replace","path":"/age","value":"old"}]`))
	if err != nil || !ok {
		t.Fatalf("apply mistyped value: %v %v", ok, err)
	}
	if odd.Age != nil || string(odd.Extra["age"]) != `"old"` {
		t.Fatalf("mistyped value should be kept as given: %+v", odd)
	}
}

func TestDiff(t *testing.T) {
	ctx := context.Background()
	kv := persistence.NewMemory(0)
	store := newAnimals(t, kv, newSource(map[string]string{"animals": shelterAnimals}))
	store.Update(ctx, 1, domain.Patch{"status": "adopted"})
	store.Add(ctx, domain.Animal{Name: "Tuzik"})
	store.Delete(ctx, 4)

	changes, err := store.Diff(ctx)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	kinds := make([]string, 0, len(changes))
	for _, c := range changes {
		kinds = append(kinds, string(c.Kind)+":"+strconv.FormatInt(c.ID, 10))
	}
	if diff := cmp.Diff([]string{"modified:1", "added:5", "removed:4"}, kinds); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}
	var inserted, deleted []string
	for _, l := range changes[0].Lines {
		switch l.Op {
		case LineInsert:
			inserted = append(inserted, strings.TrimSpace(l.Text))
		case LineDelete:
			deleted = append(deleted, strings.TrimSpace(l.Text))
		}
	}
	if diff := cmp.Diff([]string{`"status": "adopted"`}, inserted); diff != "" {
		t.Fatalf("inserted lines mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{`"status": "available"`}, deleted); diff != "" {
		t.Fatalf("deleted lines mismatch (-want +got):\n%s", diff)
	}
	for _, l := range changes[1].Lines {
		if l.Op != LineInsert {
			t.Fatalf("added record should be all insertions, got %+v", l)
		}
	}
	for _, l := range changes[2].Lines {
		if l.Op != LineDelete {
			t.Fatalf("removed record should be all deletions, got %+v", l)
		}
	}
}

func TestDiffUnchanged(t *testing.T) {
	store := newAnimals(t, persistence.NewMemory(0), newSource(map[string]string{"animals": shelterAnimals}))
	changes, err := store.Diff(context.Background())
	if err != nil || len(changes) != 0 {
		t.Fatalf("expected no changes, got %+v %v", changes, err)
	}
}
