// Package ops implements the mongokit commands: each operation reads its input
// through a Codec, calls the Store and writes its output through the Codec.
package ops

import (
	"context"
	"log/slog"

	"github.com/sandrolain/mongokit/pkg/toolutil"
	"go.mongodb.org/mongo-driver/bson"
)

// Error is an immutable and const error.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrNotImplemented is returned by commands that are declared but have no implementation.
	ErrNotImplemented = Error("not implemented")
	// ErrMissingIdentifier is returned when an input document lacks the _id field.
	ErrMissingIdentifier = Error("document has no _id field")
	// ErrEmptyUpdate is returned when a partial update names no field.
	ErrEmptyUpdate = Error("no fields to update")
)

// Store is the database access used by the operations.
type Store interface {
	ListDatabaseNames(ctx context.Context) ([]string, error)
	ListCollectionNames(ctx context.Context, database string) ([]string, error)
	// FindAll returns the documents of a collection; a nil projection returns
	// whole documents.
	FindAll(ctx context.Context, database, collection string, projection bson.D) ([]bson.D, error)
	// FindOne returns nil, nil when no document has the identifier.
	FindOne(ctx context.Context, database, collection string, id any) (bson.D, error)
	Drop(ctx context.Context, database, collection string) error
	// Replace replaces or inserts the document keyed by id.
	Replace(ctx context.Context, database, collection string, id any, doc bson.D) error
	// Update sets fields on the document keyed by id and returns the number of
	// documents matched or inserted.
	Update(ctx context.Context, database, collection string, id any, fields bson.D, upsert bool) (int64, error)
}

// Codec reads command input and writes command output. Designators are "-"
// for the standard streams or file names.
type Codec interface {
	CheckOutput(designator string) error
	ReadDocument(designator string) (bson.D, error)
	ReadDocuments(designator string) ([]bson.D, error)
	Write(designator string, v any) error
}

// Operations runs commands against a store.
type Operations struct {
	store  Store
	codec  Codec
	logger *slog.Logger
}

// New returns the operations over store and codec. A nil logger means
// toolutil.Logger().
func New(store Store, codec Codec, logger *slog.Logger) *Operations {
	if logger == nil {
		logger = toolutil.Logger()
	}
	return &Operations{store: store, codec: codec, logger: logger}
}
