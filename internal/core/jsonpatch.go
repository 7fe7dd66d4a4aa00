package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	jsonpatch "github.com/evanphx/json-patch"
)

// ApplyJSONPatch applies an RFC 6902 patch document to the record carrying id.
// The id survives whatever the patch does to it. It reports false with a nil
// error when no record matches; a patch that cannot be decoded or applied is
// returned as an error and changes nothing.
func (s *Store[T]) ApplyJSONPatch(ctx context.Context, id int64, patchDoc []byte) (T, bool, error) {
	var zero T
	ops, err := jsonpatch.DecodePatch(patchDoc)
	if err != nil {
		return zero, false, fmt.Errorf("decode json patch: %w", err)
	}
	start := s.clock.Now()
	s.lockLoaded(ctx)
	defer s.mu.Unlock()

	i := indexOf(s.records, id)
	if i < 0 {
		return zero, false, nil
	}
	current, err := json.Marshal(s.records[i])
	if err != nil {
		return zero, false, err
	}
	patched, err := ops.Apply(current)
	if err != nil {
		s.observe(ctx, "json_patch", start, false)
		return zero, false, fmt.Errorf("apply json patch to %s %d: %w", s.collection, id, err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(patched, &m); err != nil || m == nil {
		s.observe(ctx, "json_patch", start, false)
		return zero, false, fmt.Errorf("json patch on %s %d did not yield an object: %w", s.collection, id, ErrMalformed)
	}
	m["id"] = json.RawMessage(strconv.FormatInt(id, 10))
	updated, err := fromFields[T](m)
	if err != nil {
		s.observe(ctx, "json_patch", start, false)
		return zero, false, fmt.Errorf("json patch on %s %d: %w", s.collection, id, err)
	}
	s.replaceLocked(ctx, i, updated)
	s.observe(ctx, "json_patch", start, true)
	out, _ := cloneRecord(updated)
	return out, true, nil
}
