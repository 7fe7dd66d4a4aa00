package core

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"shelterdb/pkg/domain"
)

// ChangeKind classifies how the current view departs from the fixture.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// LineOp marks a line of a record diff.
type LineOp int

const (
	LineEqual LineOp = iota
	LineInsert
	LineDelete
)

// String returns equal, insert or delete.
func (o LineOp) String() string {
	switch o {
	case LineInsert:
		return "insert"
	case LineDelete:
		return "delete"
	default:
		return "equal"
	}
}

// MarshalText encodes the op by name.
func (o LineOp) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// DiffLine is one line of the indented JSON of a record.
type DiffLine struct {
	Op   LineOp `json:"op"`
	Text string `json:"text"`
}

// RecordChange describes one record that differs from its fixture version.
type RecordChange struct {
	ID    int64      `json:"id"`
	Kind  ChangeKind `json:"kind"`
	Lines []DiffLine `json:"lines"`
}

// DiffRecords compares a fixture snapshot with a view. Records only in the
// view are added, records in both whose JSON differs are modified, and
// fixture records missing from the view are removed. Changes follow view
// order, then fixture order for removals.
func DiffRecords[T domain.Record](fixture, current []T) ([]RecordChange, error) {
	dmp := diffmatchpatch.New()
	byID := make(map[int64]T, len(fixture))
	for _, r := range fixture {
		if _, dup := byID[r.RecordID()]; !dup {
			byID[r.RecordID()] = r
		}
	}
	inView := make(map[int64]struct{}, len(current))
	var changes []RecordChange
	for _, r := range current {
		id := r.RecordID()
		inView[id] = struct{}{}
		after, err := prettyJSON(r)
		if err != nil {
			return nil, err
		}
		orig, ok := byID[id]
		if !ok {
			changes = append(changes, RecordChange{ID: id, Kind: ChangeAdded, Lines: lineDiff(dmp, "", after)})
			continue
		}
		before, err := prettyJSON(orig)
		if err != nil {
			return nil, err
		}
		if before == after {
			continue
		}
		changes = append(changes, RecordChange{ID: id, Kind: ChangeModified, Lines: lineDiff(dmp, before, after)})
	}
	for _, r := range fixture {
		id := r.RecordID()
		if _, ok := inView[id]; ok {
			continue
		}
		inView[id] = struct{}{}
		before, err := prettyJSON(r)
		if err != nil {
			return nil, err
		}
		changes = append(changes, RecordChange{ID: id, Kind: ChangeRemoved, Lines: lineDiff(dmp, before, "")})
	}
	return changes, nil
}

// Diff compares the merged view with the fixture snapshot it was built from.
func (s *Store[T]) Diff(ctx context.Context) ([]RecordChange, error) {
	s.lockLoaded(ctx)
	fix, current := s.fixture, s.records
	s.mu.Unlock()
	return DiffRecords(fix, current)
}

func prettyJSON(v any) (string, error) {
	// Re-decode into a generic value so keys come out sorted.
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return "", err
	}
	out, err := json.MarshalIndent(generic, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out) + "\n", nil
}

func lineDiff(dmp *diffmatchpatch.DiffMatchPatch, before, after string) []DiffLine {
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	var out []DiffLine
	for _, d := range diffs {
		op := LineEqual
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = LineInsert
		case diffmatchpatch.DiffDelete:
			op = LineDelete
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out = append(out, DiffLine{Op: op, Text: strings.TrimSuffix(line, "\n")})
		}
	}
	return out
}
