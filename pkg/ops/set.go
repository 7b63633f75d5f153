package ops

import (
	"context"
	"fmt"

	"github.com/sandrolain/mongokit/pkg/mongoid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SetCollection replaces or inserts every input document, keyed by its _id.
// With drop the collection is dropped first. Documents are written one at a
// time in input order; a failure leaves the earlier documents written.
func (o *Operations) SetCollection(ctx context.Context, database, collection, input string, drop bool) error {
	docs, err := o.codec.ReadDocuments(input)
	if err != nil {
		return err
	}

	ids := make([]any, len(docs))
	for i, doc := range docs {
		id, _, ok := mongoid.Split(doc)
		if !ok {
			return fmt.Errorf("document %d: %w", i, ErrMissingIdentifier)
		}
		ids[i] = mongoid.NormalizeValue(id)
	}

	if drop {
		o.logger.Warn("Dropping collection", "database", database, "collection", collection)
		if err := o.store.Drop(ctx, database, collection); err != nil {
			return err
		}
	}

	o.logger.Warn("Replacing documents", "database", database, "collection", collection, "documents", len(docs))
	for i, doc := range docs {
		_, body, _ := mongoid.Split(doc)
		if err := o.store.Replace(ctx, database, collection, ids[i], body); err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
	}
	o.logger.Debug("Set collection", "database", database, "collection", collection, "documents", len(docs))
	return nil
}

// SetDocument replaces or inserts a single document. Without an id argument
// the document's own _id is used, or a new ObjectID when it has none.
func (o *Operations) SetDocument(ctx context.Context, database, collection, id, input string) error {
	doc, err := o.codec.ReadDocument(input)
	if err != nil {
		return err
	}

	ownID, body, hasID := mongoid.Split(doc)
	var key any
	switch {
	case id != "":
		key = mongoid.Normalize(id)
	case hasID:
		key = mongoid.NormalizeValue(ownID)
	default:
		key = primitive.NewObjectID()
	}

	o.logger.Warn("Replacing document", "database", database, "collection", collection, "id", key)
	return o.store.Replace(ctx, database, collection, key, body)
}
