package ops

import (
	"context"

	"github.com/sandrolain/mongokit/pkg/mongoid"
	"go.mongodb.org/mongo-driver/bson"
)

// GetDatabases writes the names of the databases on the server.
func (o *Operations) GetDatabases(ctx context.Context, output string) error {
	if err := o.codec.CheckOutput(output); err != nil {
		return err
	}
	names, err := o.store.ListDatabaseNames(ctx)
	if err != nil {
		return err
	}
	return o.codec.Write(output, names)
}

// GetDatabase writes every collection of a database with its documents, as a
// sequence of {name, documents} entries.
func (o *Operations) GetDatabase(ctx context.Context, database, output string) error {
	if err := o.codec.CheckOutput(output); err != nil {
		return err
	}
	names, err := o.store.ListCollectionNames(ctx, database)
	if err != nil {
		return err
	}

	collections := make([]bson.D, 0, len(names))
	for _, name := range names {
		docs, err := o.store.FindAll(ctx, database, name, nil)
		if err != nil {
			return err
		}
		collections = append(collections, bson.D{
			{Key: "name", Value: name},
			{Key: "documents", Value: docs},
		})
	}
	return o.codec.Write(output, collections)
}

// GetCollections writes the names of the collections of a database.
func (o *Operations) GetCollections(ctx context.Context, database, output string) error {
	if err := o.codec.CheckOutput(output); err != nil {
		return err
	}
	names, err := o.store.ListCollectionNames(ctx, database)
	if err != nil {
		return err
	}
	return o.codec.Write(output, names)
}

// GetCollection writes every document of a collection.
func (o *Operations) GetCollection(ctx context.Context, database, collection, output string) error {
	if err := o.codec.CheckOutput(output); err != nil {
		return err
	}
	docs, err := o.store.FindAll(ctx, database, collection, nil)
	if err != nil {
		return err
	}
	return o.codec.Write(output, docs)
}

// GetDocuments writes the identifiers of the documents of a collection.
func (o *Operations) GetDocuments(ctx context.Context, database, collection, output string) error {
	if err := o.codec.CheckOutput(output); err != nil {
		return err
	}
	docs, err := o.store.FindAll(ctx, database, collection, bson.D{{Key: mongoid.Field, Value: 1}})
	if err != nil {
		return err
	}

	ids := make(bson.A, 0, len(docs))
	for _, doc := range docs {
		if id, _, ok := mongoid.Split(doc); ok {
			ids = append(ids, id)
		}
	}
	return o.codec.Write(output, ids)
}

// GetDocument writes one document, or null when it does not exist.
func (o *Operations) GetDocument(ctx context.Context, database, collection, id, output string) error {
	if err := o.codec.CheckOutput(output); err != nil {
		return err
	}
	doc, err := o.store.FindOne(ctx, database, collection, mongoid.Normalize(id))
	if err != nil {
		return err
	}
	if doc == nil {
		o.logger.Debug("Document not found", "database", database, "collection", collection, "id", id)
		return o.codec.Write(output, nil)
	}
	return o.codec.Write(output, doc)
}
