package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"shelterdb/pkg/domain"
)

// ErrMalformed wraps decode failures of fixture and overlay documents.
var ErrMalformed = errors.New("core: malformed document")

// decodeDocument parses a {"<collection>": [...]} wrapper one record at a
// time. A null or missing list is malformed; an empty list is not. Records
// that cannot be decoded (not an object, or an id that is not a whole number)
// are left out and reported in skipped.
func decodeDocument[T domain.Record](collection string, raw []byte) (records []T, skipped []error, err error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil, fmt.Errorf("%s: empty document: %w", collection, ErrMalformed)
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, nil, fmt.Errorf("%s: %w: %w", collection, ErrMalformed, err)
	}
	list, ok := wrapper[collection]
	if !ok || bytes.Equal(bytes.TrimSpace(list), []byte("null")) {
		return nil, nil, fmt.Errorf("%s: missing %q list: %w", collection, collection, ErrMalformed)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(list, &items); err != nil {
		return nil, nil, fmt.Errorf("%s: %w: %w", collection, ErrMalformed, err)
	}
	records = make([]T, 0, len(items))
	for i, item := range items {
		if bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
			skipped = append(skipped, fmt.Errorf("%s[%d]: null record", collection, i))
			continue
		}
		var rec T
		if err := json.Unmarshal(item, &rec); err != nil {
			skipped = append(skipped, fmt.Errorf("%s[%d]: %w", collection, i, err))
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

// encodeDocument builds the wrapper persisted as the overlay.
func encodeDocument[T domain.Record](collection string, records []T) ([]byte, error) {
	if records == nil {
		records = []T{}
	}
	return json.Marshal(map[string][]T{collection: records})
}

func cloneRecord[T domain.Record](rec T) (T, error) {
	var out T
	b, err := json.Marshal(rec)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, err
	}
	return out, nil
}

// cloneRecords deep-copies records. The stored slices only ever hold values
// that already survived a round trip, so errors cannot occur here.
func cloneRecords[T domain.Record](records []T) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		c, err := cloneRecord(r)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	return out
}

func fields[T domain.Record](rec T) (map[string]json.RawMessage, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = make(map[string]json.RawMessage)
	}
	return m, nil
}

func fromFields[T domain.Record](m map[string]json.RawMessage) (T, error) {
	var out T
	b, err := json.Marshal(m)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(b, &out)
	return out, err
}

func withID[T domain.Record](rec T, id int64) (T, error) {
	m, err := fields(rec)
	if err != nil {
		var zero T
		return zero, err
	}
	m["id"] = json.RawMessage(strconv.FormatInt(id, 10))
	return fromFields[T](m)
}

// applyPatch overwrites top-level fields of rec with patch and pins the id.
func applyPatch[T domain.Record](rec T, id int64, patch domain.Patch) (T, error) {
	m, err := fields(rec)
	if err != nil {
		var zero T
		return zero, err
	}
	for k, v := range patch {
		raw, err := json.Marshal(v)
		if err != nil {
			var zero T
			return zero, fmt.Errorf("field %q: %w", k, err)
		}
		m[k] = raw
	}
	m["id"] = json.RawMessage(strconv.FormatInt(id, 10))
	return fromFields[T](m)
}

// ToDocument converts a typed record into its opaque form.
func ToDocument[T domain.Record](rec T) (domain.Document, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var doc domain.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// FromDocument decodes an opaque record into T.
func FromDocument[T domain.Record](doc domain.Document) (T, error) {
	var out T
	b, err := json.Marshal(doc)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, err
	}
	return out, nil
}
