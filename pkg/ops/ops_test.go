package ops

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sandrolain/mongokit/pkg/datakit"
	"github.com/sandrolain/mongokit/pkg/ops/opstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fixture struct {
	ops   *Operations
	store *opstest.MemoryStore
	codec *datakit.Codec
	out   *bytes.Buffer
	log   *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: opstest.NewMemoryStore(),
		out:   &bytes.Buffer{},
		log:   &bytes.Buffer{},
	}
	f.codec = &datakit.Codec{Stdin: strings.NewReader(""), Stdout: f.out}
	logger := slog.New(slog.NewTextHandler(f.log, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f.ops = New(f.store, f.codec, logger)
	return f
}

// input replaces standard input for the next operation.
func (f *fixture) input(s string) {
	f.codec.Stdin = strings.NewReader(s)
}

// output returns and clears what was written to standard output.
func (f *fixture) output() string {
	s := f.out.String()
	f.out.Reset()
	return s
}

func TestGetDatabasesAndCollections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Put("shop", "orders", bson.D{{Key: "_id", Value: "o1"}})
	f.store.Put("shop", "customers", bson.D{{Key: "_id", Value: "c1"}})
	f.store.Put("admin", "users", bson.D{{Key: "_id", Value: "u1"}})

	require.NoError(t, f.ops.GetDatabases(ctx, datakit.StdStream))
	assert.JSONEq(t, `["admin","shop"]`, f.output())

	require.NoError(t, f.ops.GetCollections(ctx, "shop", datakit.StdStream))
	assert.JSONEq(t, `["customers","orders"]`, f.output())

	require.NoError(t, f.ops.GetCollections(ctx, "missing", datakit.StdStream))
	assert.JSONEq(t, `[]`, f.output())
}

func TestGetDatabase(t *testing.T) {
	f := newFixture(t)
	f.store.Put("shop", "orders", bson.D{{Key: "_id", Value: "o1"}, {Key: "total", Value: int32(12)}})
	f.store.Put("shop", "customers", bson.D{{Key: "_id", Value: "c1"}})

	require.NoError(t, f.ops.GetDatabase(context.Background(), "shop", datakit.StdStream))
	assert.JSONEq(t, `[
		{"name": "customers", "documents": [{"_id": "c1"}]},
		{"name": "orders", "documents": [{"_id": "o1", "total": 12}]}
	]`, f.output())
}

func TestGetCollectionAndDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Put("shop", "orders",
		bson.D{{Key: "_id", Value: "o1"}, {Key: "total", Value: int32(12)}},
		bson.D{{Key: "_id", Value: "o2"}, {Key: "total", Value: int32(7)}},
	)

	require.NoError(t, f.ops.GetCollection(ctx, "shop", "orders", datakit.StdStream))
	assert.JSONEq(t, `[{"_id":"o1","total":12},{"_id":"o2","total":7}]`, f.output())

	require.NoError(t, f.ops.GetDocuments(ctx, "shop", "orders", datakit.StdStream))
	assert.JSONEq(t, `["o1","o2"]`, f.output())
}

func TestGetDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	oid := primitive.NewObjectID()
	f.store.Put("shop", "orders",
		bson.D{{Key: "_id", Value: oid}, {Key: "kind", Value: "oid"}},
		bson.D{{Key: "_id", Value: "plain"}, {Key: "kind", Value: "string"}},
	)

	t.Run("object id from hex", func(t *testing.T) {
		require.NoError(t, f.ops.GetDocument(ctx, "shop", "orders", oid.Hex(), datakit.StdStream))
		assert.JSONEq(t, `{"_id":{"$oid":"`+oid.Hex()+`"},"kind":"oid"}`, f.output())
	})

	t.Run("string id", func(t *testing.T) {
		require.NoError(t, f.ops.GetDocument(ctx, "shop", "orders", "plain", datakit.StdStream))
		assert.JSONEq(t, `{"_id":"plain","kind":"string"}`, f.output())
	})

	t.Run("not found writes null", func(t *testing.T) {
		require.NoError(t, f.ops.GetDocument(ctx, "shop", "orders", "nope", datakit.StdStream))
		assert.Equal(t, "null\n", f.output())
	})
}

func TestGetDocumentToFile(t *testing.T) {
	f := newFixture(t)
	f.store.Put("shop", "orders", bson.D{{Key: "_id", Value: "o1"}, {Key: "total", Value: int32(12)}})
	path := filepath.Join(t.TempDir(), "order.yaml")

	require.NoError(t, f.ops.GetDocument(context.Background(), "shop", "orders", "o1", path))
	assert.Empty(t, f.output())

	doc, err := f.codec.ReadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "_id", Value: "o1"}, {Key: "total", Value: 12}}, doc)
}

func TestSetDocumentRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.input(`{"name": "Ada", "age": 36}`)
	require.NoError(t, f.ops.SetDocument(ctx, "people", "users", "user1", datakit.StdStream))

	require.NoError(t, f.ops.GetDocument(ctx, "people", "users", "user1", datakit.StdStream))
	assert.JSONEq(t, `{"_id":"user1","name":"Ada","age":36}`, f.output())

	f.input(`{"name": "Grace"}`)
	require.NoError(t, f.ops.SetDocument(ctx, "people", "users", "user1", datakit.StdStream))
	require.NoError(t, f.ops.GetDocument(ctx, "people", "users", "user1", datakit.StdStream))
	assert.JSONEq(t, `{"_id":"user1","name":"Grace"}`, f.output(), "set replaces the whole document")
}

func TestSetDocumentIdentifier(t *testing.T) {
	ctx := context.Background()

	t.Run("argument wins over input", func(t *testing.T) {
		f := newFixture(t)
		f.input(`{"_id": "inner", "n": 1}`)
		require.NoError(t, f.ops.SetDocument(ctx, "db", "c", "outer", datakit.StdStream))

		docs := f.store.Documents("db", "c")
		require.Len(t, docs, 1)
		assert.Equal(t, bson.D{{Key: "_id", Value: "outer"}, {Key: "n", Value: int32(1)}}, docs[0])
	})

	t.Run("input identifier", func(t *testing.T) {
		f := newFixture(t)
		oid := primitive.NewObjectID()
		f.input(`{"_id": "` + oid.Hex() + `", "n": 1}`)
		require.NoError(t, f.ops.SetDocument(ctx, "db", "c", "", datakit.StdStream))

		docs := f.store.Documents("db", "c")
		require.Len(t, docs, 1)
		assert.Equal(t, oid, docs[0][0].Value, "hex identifiers are normalized")
	})

	t.Run("generated identifier", func(t *testing.T) {
		f := newFixture(t)
		f.input(`{"n": 1}`)
		require.NoError(t, f.ops.SetDocument(ctx, "db", "c", "", datakit.StdStream))

		docs := f.store.Documents("db", "c")
		require.Len(t, docs, 1)
		_, ok := docs[0][0].Value.(primitive.ObjectID)
		assert.True(t, ok, "expected a generated ObjectID, got %T", docs[0][0].Value)
	})

	t.Run("sequence input", func(t *testing.T) {
		f := newFixture(t)
		f.input(`[{"n": 1}]`)
		err := f.ops.SetDocument(ctx, "db", "c", "x", datakit.StdStream)
		assert.ErrorIs(t, err, datakit.ErrInputShape)
		assert.Empty(t, f.store.Calls())
	})
}

func TestSetCollection(t *testing.T) {
	ctx := context.Background()

	t.Run("drop then get", func(t *testing.T) {
		f := newFixture(t)
		f.store.Put("db", "c", bson.D{{Key: "_id", Value: "old"}})
		f.input(`[{"_id": "a", "n": 1}, {"_id": "b", "n": 2}]`)

		require.NoError(t, f.ops.SetCollection(ctx, "db", "c", datakit.StdStream, true))
		assert.Equal(t, []string{"Drop", "Replace", "Replace"}, f.store.Calls())
		assert.Contains(t, f.log.String(), "Dropping collection")

		require.NoError(t, f.ops.GetDocuments(ctx, "db", "c", datakit.StdStream))
		assert.JSONEq(t, `["a","b"]`, f.output())
	})

	t.Run("without drop keeps other documents", func(t *testing.T) {
		f := newFixture(t)
		f.store.Put("db", "c", bson.D{{Key: "_id", Value: "old"}}, bson.D{{Key: "_id", Value: "a"}, {Key: "n", Value: int32(0)}})
		f.input(`[{"_id": "a", "n": 1}]`)

		require.NoError(t, f.ops.SetCollection(ctx, "db", "c", datakit.StdStream, false))
		require.NoError(t, f.ops.GetCollection(ctx, "db", "c", datakit.StdStream))
		assert.JSONEq(t, `[{"_id":"old"},{"_id":"a","n":1}]`, f.output())
	})

	t.Run("missing identifier writes nothing", func(t *testing.T) {
		f := newFixture(t)
		f.input(`[{"_id": "a"}, {"n": 2}]`)

		err := f.ops.SetCollection(ctx, "db", "c", datakit.StdStream, true)
		assert.ErrorIs(t, err, ErrMissingIdentifier)
		assert.ErrorContains(t, err, "document 1")
		assert.Empty(t, f.store.Calls())
	})

	t.Run("document input", func(t *testing.T) {
		f := newFixture(t)
		f.input(`{"_id": "a"}`)
		err := f.ops.SetCollection(ctx, "db", "c", datakit.StdStream, false)
		assert.ErrorIs(t, err, datakit.ErrInputShape)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture(t)
		f.store.Err = errors.New("connection reset")
		f.input(`[{"_id": "a"}]`)

		err := f.ops.SetCollection(ctx, "db", "c", datakit.StdStream, false)
		assert.ErrorContains(t, err, "document 0: connection reset")
	})
}

func TestUpdateDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("partial update", func(t *testing.T) {
		f := newFixture(t)
		f.input(`{"a": 1, "b": 2}`)
		require.NoError(t, f.ops.SetDocument(ctx, "db", "c", "k", datakit.StdStream))

		f.input(`{"b": 3}`)
		require.NoError(t, f.ops.UpdateDocument(ctx, "db", "c", "k", datakit.StdStream, false))

		require.NoError(t, f.ops.GetDocument(ctx, "db", "c", "k", datakit.StdStream))
		assert.JSONEq(t, `{"_id":"k","a":1,"b":3}`, f.output())
	})

	t.Run("missing without upsert", func(t *testing.T) {
		f := newFixture(t)
		f.input(`{"b": 3}`)
		require.NoError(t, f.ops.UpdateDocument(ctx, "db", "c", "k", datakit.StdStream, false))
		assert.Empty(t, f.store.Documents("db", "c"))
		assert.Contains(t, f.log.String(), "No document matched")
	})

	t.Run("missing with upsert", func(t *testing.T) {
		f := newFixture(t)
		f.input(`{"b": 3}`)
		require.NoError(t, f.ops.UpdateDocument(ctx, "db", "c", "k", datakit.StdStream, true))
		assert.Equal(t, []bson.D{{{Key: "_id", Value: "k"}, {Key: "b", Value: int32(3)}}}, f.store.Documents("db", "c"))
		assert.NotContains(t, f.log.String(), "No document matched")
	})

	t.Run("identifier field is not updated", func(t *testing.T) {
		f := newFixture(t)
		f.store.Put("db", "c", bson.D{{Key: "_id", Value: "k"}, {Key: "a", Value: int32(1)}})
		f.input(`{"_id": "other", "a": 2}`)
		require.NoError(t, f.ops.UpdateDocument(ctx, "db", "c", "k", datakit.StdStream, false))
		assert.Equal(t, []bson.D{{{Key: "_id", Value: "k"}, {Key: "a", Value: int32(2)}}}, f.store.Documents("db", "c"))
	})

	t.Run("empty patch", func(t *testing.T) {
		for _, in := range []string{`{}`, `{"_id": "k"}`} {
			f := newFixture(t)
			f.input(in)
			err := f.ops.UpdateDocument(ctx, "db", "c", "k", datakit.StdStream, true)
			assert.ErrorIs(t, err, ErrEmptyUpdate, in)
			assert.Empty(t, f.store.Calls(), in)
		}
	})
}

func TestUpdateCollectionNotImplemented(t *testing.T) {
	f := newFixture(t)
	f.input(`[{"_id": "a"}]`)

	err := f.ops.UpdateCollection(context.Background(), true)
	assert.ErrorIs(t, err, ErrNotImplemented)
	assert.Empty(t, f.store.Calls())
	assert.Empty(t, f.output())
}

func TestStoreErrorsPropagate(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("boom")
	f.store.Err = boom
	ctx := context.Background()

	assert.ErrorIs(t, f.ops.GetDatabases(ctx, datakit.StdStream), boom)
	assert.ErrorIs(t, f.ops.GetDatabase(ctx, "db", datakit.StdStream), boom)
	assert.ErrorIs(t, f.ops.GetCollections(ctx, "db", datakit.StdStream), boom)
	assert.ErrorIs(t, f.ops.GetCollection(ctx, "db", "c", datakit.StdStream), boom)
	assert.ErrorIs(t, f.ops.GetDocuments(ctx, "db", "c", datakit.StdStream), boom)
	assert.ErrorIs(t, f.ops.GetDocument(ctx, "db", "c", "k", datakit.StdStream), boom)
	assert.Empty(t, f.output())
}

func TestUnknownOutputFormatFailsBeforeQuerying(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.Put("db", "c", bson.D{{Key: "_id", Value: "k"}})

	for name, run := range map[string]func() error{
		"databases":   func() error { return f.ops.GetDatabases(ctx, "names.txt") },
		"database":    func() error { return f.ops.GetDatabase(ctx, "db", "dump.txt") },
		"collections": func() error { return f.ops.GetCollections(ctx, "db", "names.txt") },
		"collection":  func() error { return f.ops.GetCollection(ctx, "db", "c", "out.txt") },
		"documents":   func() error { return f.ops.GetDocuments(ctx, "db", "c", "ids.txt") },
		"document":    func() error { return f.ops.GetDocument(ctx, "db", "c", "k", "doc.txt") },
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, run(), datakit.ErrUnknownFormat)
		})
	}
	assert.Empty(t, f.store.Calls())
}

func TestWritesAreAnnounced(t *testing.T) {
	ctx := context.Background()

	t.Run("set document", func(t *testing.T) {
		f := newFixture(t)
		f.input(`{"n": 1}`)
		require.NoError(t, f.ops.SetDocument(ctx, "db", "c", "k", datakit.StdStream))
		assert.Contains(t, f.log.String(), "level=WARN msg=\"Replacing document\"")
	})

	t.Run("set collection without drop", func(t *testing.T) {
		f := newFixture(t)
		f.input(`[{"_id": "a"}]`)
		require.NoError(t, f.ops.SetCollection(ctx, "db", "c", datakit.StdStream, false))
		assert.Contains(t, f.log.String(), "level=WARN msg=\"Replacing documents\"")
		assert.NotContains(t, f.log.String(), "Dropping collection")
	})

	t.Run("update document", func(t *testing.T) {
		f := newFixture(t)
		f.store.Put("db", "c", bson.D{{Key: "_id", Value: "k"}})
		f.input(`{"a": 1, "b": 2}`)
		require.NoError(t, f.ops.UpdateDocument(ctx, "db", "c", "k", datakit.StdStream, false))
		assert.Contains(t, f.log.String(), "level=WARN msg=\"Overwriting fields\"")
		assert.Contains(t, f.log.String(), "fields=\"[a b]\"")
	})

	t.Run("rejected input writes nothing and warns about nothing", func(t *testing.T) {
		f := newFixture(t)
		f.input(`[{"n": 1}]`)
		assert.Error(t, f.ops.SetCollection(ctx, "db", "c", datakit.StdStream, false))
		assert.NotContains(t, f.log.String(), "level=WARN")
	})
}
