package core

import (
	"context"
	"fmt"
	"sort"

	"shelterdb/internal/fixture"
	"shelterdb/internal/persistence"
	"shelterdb/pkg/domain"
)

// ErrUnknownCollection is returned for a collection name the catalog does not serve.
type ErrUnknownCollection struct {
	Name string
}

func (e ErrUnknownCollection) Error() string {
	return fmt.Sprintf("unknown collection %q", e.Name)
}

// Collection is the name-based view of a typed store used by the HTTP
// adapter and the CLI. Records travel as domain.Document and ids as raw
// values coerced with domain.CoerceID.
type Collection interface {
	Name() domain.Collection
	OverlayKey() string
	List(ctx context.Context) []domain.Document
	Get(ctx context.Context, id any) (domain.Document, bool)
	// Add reports an error only when doc does not fit the collection's shape.
	Add(ctx context.Context, doc domain.Document) (domain.Document, error)
	// Update fails with ErrNotFound or ErrPatchRejected.
	Update(ctx context.Context, id any, patch domain.Patch) (domain.Document, error)
	Delete(ctx context.Context, id any) bool
	Filter(ctx context.Context, expression string) ([]domain.Document, error)
	ApplyJSONPatch(ctx context.Context, id any, patch []byte) (domain.Document, bool, error)
	Diff(ctx context.Context) ([]RecordChange, error)
	ResetCache()
}

// Catalog owns one store per shelter collection for the lifetime of the process.
type Catalog struct {
	Animals      *Store[domain.Animal]
	Applications *Store[domain.Application]
	Donations    *Store[domain.Donation]
	Events       *Store[domain.Event]
	News         *Store[domain.NewsItem]
	Rooms        *Store[domain.Room]
	Volunteers   *Store[domain.Volunteer]

	byName map[domain.Collection]Collection
	byKey  map[string]Collection
}

// NewCatalog builds the stores of every collection over the same key-value
// store and fixture source.
func NewCatalog(kv persistence.Store, fixtures fixture.Source, opts ...Option) *Catalog {
	c := &Catalog{
		Animals:      NewStore[domain.Animal](string(domain.CollectionAnimals), kv, fixtures, opts...),
		Applications: NewStore[domain.Application](string(domain.CollectionApplications), kv, fixtures, opts...),
		Donations:    NewStore[domain.Donation](string(domain.CollectionDonations), kv, fixtures, opts...),
		Events:       NewStore[domain.Event](string(domain.CollectionEvents), kv, fixtures, opts...),
		News:         NewStore[domain.NewsItem](string(domain.CollectionNews), kv, fixtures, opts...),
		Rooms:        NewStore[domain.Room](string(domain.CollectionRooms), kv, fixtures, opts...),
		Volunteers:   NewStore[domain.Volunteer](string(domain.CollectionVolunteers), kv, fixtures, opts...),
	}
	all := []Collection{
		Documents(c.Animals),
		Documents(c.Applications),
		Documents(c.Donations),
		Documents(c.Events),
		Documents(c.News),
		Documents(c.Rooms),
		Documents(c.Volunteers),
	}
	c.byName = make(map[domain.Collection]Collection, len(all))
	c.byKey = make(map[string]Collection, len(all))
	for _, col := range all {
		c.byName[col.Name()] = col
		c.byKey[col.OverlayKey()] = col
	}
	return c
}

// Collection resolves a collection by name, case-insensitively.
func (c *Catalog) Collection(name string) (Collection, error) {
	parsed, ok := domain.ParseCollection(name)
	if !ok {
		return nil, ErrUnknownCollection{Name: name}
	}
	col, ok := c.byName[parsed]
	if !ok {
		return nil, ErrUnknownCollection{Name: name}
	}
	return col, nil
}

// ByOverlayKey resolves the collection persisted under key.
func (c *Catalog) ByOverlayKey(key string) (Collection, bool) {
	col, ok := c.byKey[key]
	return col, ok
}

// Names lists the served collection names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.byName))
	for n := range c.byName {
		names = append(names, string(n))
	}
	sort.Strings(names)
	return names
}

// ResetAll drops the memoized view of every collection.
func (c *Catalog) ResetAll() {
	for _, col := range c.byName {
		col.ResetCache()
	}
}

// Documents exposes a typed store through the name-based Collection view.
func Documents[T domain.Record](s *Store[T]) Collection {
	return documentCollection[T]{store: s}
}

type documentCollection[T domain.Record] struct {
	store *Store[T]
}

func (d documentCollection[T]) Name() domain.Collection { return domain.Collection(d.store.collection) }

func (d documentCollection[T]) OverlayKey() string { return d.store.key }

func (d documentCollection[T]) List(ctx context.Context) []domain.Document {
	return d.toDocuments(d.store.GetAll(ctx))
}

func (d documentCollection[T]) Get(ctx context.Context, id any) (domain.Document, bool) {
	rec, ok := d.store.Lookup(ctx, id)
	if !ok {
		return nil, false
	}
	return d.toDocument(rec)
}

func (d documentCollection[T]) Add(ctx context.Context, doc domain.Document) (domain.Document, error) {
	rec, err := FromDocument[T](doc)
	if err != nil {
		return nil, fmt.Errorf("%s record: %w", d.store.collection, err)
	}
	out, _ := d.toDocument(d.store.Add(ctx, rec))
	return out, nil
}

func (d documentCollection[T]) Update(ctx context.Context, id any, patch domain.Patch) (domain.Document, error) {
	n, ok := domain.CoerceID(id)
	if !ok {
		return nil, fmt.Errorf("%s %v: %w", d.store.collection, id, ErrNotFound)
	}
	rec, err := d.store.UpdateFields(ctx, n, patch)
	if err != nil {
		return nil, err
	}
	doc, ok := d.toDocument(rec)
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", d.store.collection, n, ErrPatchRejected)
	}
	return doc, nil
}

func (d documentCollection[T]) Delete(ctx context.Context, id any) bool {
	n, ok := domain.CoerceID(id)
	if !ok {
		return false
	}
	return d.store.Delete(ctx, n)
}

func (d documentCollection[T]) Filter(ctx context.Context, expression string) ([]domain.Document, error) {
	recs, err := d.store.Filter(ctx, expression)
	if err != nil {
		return nil, err
	}
	return d.toDocuments(recs), nil
}

func (d documentCollection[T]) ApplyJSONPatch(ctx context.Context, id any, patch []byte) (domain.Document, bool, error) {
	n, ok := domain.CoerceID(id)
	if !ok {
		return nil, false, nil
	}
	rec, ok, err := d.store.ApplyJSONPatch(ctx, n, patch)
	if err != nil || !ok {
		return nil, ok, err
	}
	doc, ok := d.toDocument(rec)
	return doc, ok, nil
}

func (d documentCollection[T]) Diff(ctx context.Context) ([]RecordChange, error) {
	return d.store.Diff(ctx)
}

func (d documentCollection[T]) ResetCache() { d.store.ResetCache() }

func (d documentCollection[T]) toDocument(rec T) (domain.Document, bool) {
	doc, err := ToDocument(rec)
	if err != nil {
		d.store.log.Error("record not encodable", "collection", d.store.collection, "id", rec.RecordID(), "error", err)
		return nil, false
	}
	return doc, true
}

func (d documentCollection[T]) toDocuments(recs []T) []domain.Document {
	out := make([]domain.Document, 0, len(recs))
	for _, r := range recs {
		if doc, ok := d.toDocument(r); ok {
			out = append(out, doc)
		}
	}
	return out
}
