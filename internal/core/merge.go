package core

import "shelterdb/pkg/domain"

// Merge combines a fixture snapshot with an overlay. An empty overlay yields
// the fixture; otherwise the result is every overlay record in overlay order
// followed by each fixture record whose id the overlay does not hold. Within
// one source, the first record carrying an id wins.
func Merge[T domain.Record](fixture, overlay []T) []T {
	if len(overlay) == 0 {
		return uniqueByID(fixture)
	}
	out := uniqueByID(overlay)
	seen := make(map[int64]struct{}, len(out)+len(fixture))
	for _, r := range out {
		seen[r.RecordID()] = struct{}{}
	}
	for _, r := range fixture {
		id := r.RecordID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, r)
	}
	return out
}

func mergeWith[T domain.Record](mode MergeMode, fixture, overlay []T) []T {
	if mode == MergeOverlayAuthoritative && len(overlay) > 0 {
		return uniqueByID(overlay)
	}
	return Merge(fixture, overlay)
}

func uniqueByID[T domain.Record](records []T) []T {
	out := make([]T, 0, len(records))
	seen := make(map[int64]struct{}, len(records))
	for _, r := range records {
		id := r.RecordID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, r)
	}
	return out
}

func indexOf[T domain.Record](records []T, id int64) int {
	for i, r := range records {
		if r.RecordID() == id {
			return i
		}
	}
	return -1
}

func nextID[T domain.Record](records []T) int64 {
	var highest int64
	for _, r := range records {
		if id := r.RecordID(); id > highest {
			highest = id
		}
	}
	return highest + 1
}
