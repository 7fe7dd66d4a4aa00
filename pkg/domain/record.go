// Package domain defines the shelter collections, their record shapes and the
// identity helpers shared by every store.
package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Collection names a record collection persisted by the shelter stores.
type Collection string

// Supported collections. The name doubles as the wrapper field of fixture and
// overlay documents and as the prefix of the overlay key.
const (
	CollectionAnimals      Collection = "animals"
	CollectionApplications Collection = "applications"
	CollectionDonations    Collection = "donations"
	CollectionEvents       Collection = "events"
	CollectionNews         Collection = "news"
	CollectionRooms        Collection = "rooms"
	CollectionVolunteers   Collection = "volunteers"
)

// Collections lists every supported collection in catalog order.
func Collections() []Collection {
	return []Collection{
		CollectionAnimals,
		CollectionApplications,
		CollectionDonations,
		CollectionEvents,
		CollectionNews,
		CollectionRooms,
		CollectionVolunteers,
	}
}

// ParseCollection resolves a collection name case-insensitively.
func ParseCollection(name string) (Collection, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, c := range Collections() {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}

// OverlayKey returns the durable key-value entry holding the collection overlay.
func (c Collection) OverlayKey() string { return string(c) + "Data" }

// FixtureName returns the file name of the bundled fixture document.
func (c Collection) FixtureName() string { return string(c) + ".json" }

// Record is implemented by every entity stored in a collection. A zero id
// means the id has not been assigned yet.
type Record interface {
	RecordID() int64
}

// Patch is a shallow field-by-field update keyed by JSON field name.
type Patch map[string]any

// CoerceID converts an identifier received from an untyped caller (path
// segment, JSON number, form value) into a record id. It reports false when
// the value is not a whole number.
func CoerceID(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return uint64ID(uint64(n))
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return uint64ID(n)
	case float32:
		return floatID(float64(n))
	case float64:
		return floatID(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatID(f)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return floatID(f)
	default:
		return 0, false
	}
}

func uint64ID(n uint64) (int64, bool) {
	if n > math.MaxInt64 {
		return 0, false
	}
	return int64(n), true
}

func floatID(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
