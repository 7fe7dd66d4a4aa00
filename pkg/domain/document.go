package domain

// Document is an opaque record: a JSON object carrying a numeric "id" field.
// It backs collections without a dedicated shape and every name-based access
// path (HTTP, CLI).
type Document map[string]any

// RecordID implements Record.
func (d Document) RecordID() int64 {
	if d == nil {
		return 0
	}
	id, ok := CoerceID(d["id"])
	if !ok {
		return 0
	}
	return id
}
