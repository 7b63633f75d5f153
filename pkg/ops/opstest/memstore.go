// Package opstest provides an in-memory ops.Store for tests.
//
// It lives in a regular file rather than a _test.go file so that tests of
// other packages can use it.
package opstest

import (
	"context"
	"reflect"
	"slices"
	"sync"

	"github.com/sandrolain/mongokit/pkg/mongoid"
	"go.mongodb.org/mongo-driver/bson"
)

// MemoryStore keeps databases in memory and records the name of every call.
// Collections keep documents in insertion order.
type MemoryStore struct {
	mu    sync.Mutex
	dbs   map[string]map[string][]bson.D
	calls []string

	// Err, when set, is returned by every call.
	Err error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{dbs: make(map[string]map[string][]bson.D)}
}

// Calls returns the names of the methods called so far.
func (m *MemoryStore) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// Put stores documents directly, bypassing the call log.
func (m *MemoryStore) Put(database, collection string, docs ...bson.D) {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll := m.collection(database, collection)
	m.dbs[database][collection] = append(coll, docs...)
}

// Documents returns the stored documents of a collection.
func (m *MemoryStore) Documents(database, collection string) []bson.D {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.dbs[database][collection])
}

func (m *MemoryStore) record(name string) error {
	m.calls = append(m.calls, name)
	return m.Err
}

func (m *MemoryStore) collection(database, collection string) []bson.D {
	db, ok := m.dbs[database]
	if !ok {
		db = make(map[string][]bson.D)
		m.dbs[database] = db
	}
	return db[collection]
}

func (m *MemoryStore) index(database, collection string, id any) int {
	for i, doc := range m.dbs[database][collection] {
		if docID, _, ok := mongoid.Split(doc); ok && reflect.DeepEqual(docID, id) {
			return i
		}
	}
	return -1
}

func (m *MemoryStore) ListDatabaseNames(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListDatabaseNames"); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(m.dbs))
	for name := range m.dbs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (m *MemoryStore) ListCollectionNames(_ context.Context, database string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListCollectionNames"); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(m.dbs[database]))
	for name := range m.dbs[database] {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// FindAll honors inclusion projections only.
func (m *MemoryStore) FindAll(_ context.Context, database, collection string, projection bson.D) ([]bson.D, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("FindAll"); err != nil {
		return nil, err
	}
	docs := m.dbs[database][collection]
	res := make([]bson.D, 0, len(docs))
	for _, doc := range docs {
		if projection == nil {
			res = append(res, slices.Clone(doc))
			continue
		}
		var projected bson.D
		for _, e := range doc {
			if e.Key == mongoid.Field || includes(projection, e.Key) {
				projected = append(projected, e)
			}
		}
		res = append(res, projected)
	}
	return res, nil
}

func includes(projection bson.D, key string) bool {
	for _, e := range projection {
		if e.Key == key {
			return true
		}
	}
	return false
}

func (m *MemoryStore) FindOne(_ context.Context, database, collection string, id any) (bson.D, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("FindOne"); err != nil {
		return nil, err
	}
	i := m.index(database, collection, id)
	if i < 0 {
		return nil, nil
	}
	return slices.Clone(m.dbs[database][collection][i]), nil
}

func (m *MemoryStore) Drop(_ context.Context, database, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Drop"); err != nil {
		return err
	}
	delete(m.dbs[database], collection)
	return nil
}

func (m *MemoryStore) Replace(_ context.Context, database, collection string, id any, doc bson.D) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Replace"); err != nil {
		return err
	}
	stored := append(bson.D{{Key: mongoid.Field, Value: id}}, doc...)
	coll := m.collection(database, collection)
	if i := m.index(database, collection, id); i >= 0 {
		coll[i] = stored
		return nil
	}
	m.dbs[database][collection] = append(coll, stored)
	return nil
}

// Update sets top-level fields only.
func (m *MemoryStore) Update(_ context.Context, database, collection string, id any, fields bson.D, upsert bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Update"); err != nil {
		return 0, err
	}
	coll := m.collection(database, collection)
	i := m.index(database, collection, id)
	if i < 0 {
		if !upsert {
			return 0, nil
		}
		m.dbs[database][collection] = append(coll, append(bson.D{{Key: mongoid.Field, Value: id}}, fields...))
		return 1, nil
	}

	doc := slices.Clone(coll[i])
	for _, f := range fields {
		if j := slices.IndexFunc(doc, func(e bson.E) bool { return e.Key == f.Key }); j >= 0 {
			doc[j].Value = f.Value
		} else {
			doc = append(doc, f)
		}
	}
	coll[i] = doc
	return 1, nil
}
