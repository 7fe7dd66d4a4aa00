package fixture

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed data/*.json
var bundled embed.FS

// Embedded serves the fixtures bundled with the binary.
type Embedded struct{}

// NewEmbedded returns the bundled fixture source.
func NewEmbedded() Embedded { return Embedded{} }

// Fetch returns the bundled document for collection.
func (Embedded) Fetch(ctx context.Context, collection string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(collection, err)
	}
	b, err := bundled.ReadFile(path.Join("data", FileName(collection)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, unavailable(collection, nil)
	}
	if err != nil {
		return nil, unavailable(collection, err)
	}
	return b, nil
}

// Bundled lists the collections that ship with a fixture, sorted.
func Bundled() []string {
	entries, err := bundled.ReadDir("data")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names
}
