package session

import (
	"context"
	"fmt"

	"github.com/sandrolain/mongokit/pkg/mongoid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Session) collection(ctx context.Context, database, collection string) (*mongo.Collection, error) {
	client, err := s.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(database).Collection(collection), nil
}

// ListDatabaseNames returns the names of all databases on the server.
func (s *Session) ListDatabaseNames(ctx context.Context) ([]string, error) {
	client, err := s.Connect(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.operationContext(ctx)
	defer cancel()
	names, err := client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	return names, nil
}

// ListCollectionNames returns the names of the collections of a database.
func (s *Session) ListCollectionNames(ctx context.Context, database string) ([]string, error) {
	client, err := s.Connect(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.operationContext(ctx)
	defer cancel()
	names, err := client.Database(database).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections of %s: %w", database, err)
	}
	return names, nil
}

// FindAll returns every document of a collection, in storage order.
// A nil projection returns whole documents.
func (s *Session) FindAll(ctx context.Context, database, collection string, projection bson.D) ([]bson.D, error) {
	coll, err := s.collection(ctx, database, collection)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.operationContext(ctx)
	defer cancel()

	opts := options.Find()
	if projection != nil {
		opts.SetProjection(projection)
	}
	cursor, err := coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find documents in %s.%s: %w", database, collection, err)
	}
	docs := []bson.D{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents of %s.%s: %w", database, collection, err)
	}
	return docs, nil
}

// FindOne returns the document with the given identifier, or nil when there is none.
func (s *Session) FindOne(ctx context.Context, database, collection string, id any) (bson.D, error) {
	coll, err := s.collection(ctx, database, collection)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.operationContext(ctx)
	defer cancel()

	var doc bson.D
	if err := coll.FindOne(ctx, mongoid.Filter(id)).Decode(&doc); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find document %v: %w", id, err)
	}
	return doc, nil
}

// Drop drops a collection. Dropping a collection that does not exist succeeds.
func (s *Session) Drop(ctx context.Context, database, collection string) error {
	coll, err := s.collection(ctx, database, collection)
	if err != nil {
		return err
	}
	ctx, cancel := s.operationContext(ctx)
	defer cancel()
	if err := coll.Drop(ctx); err != nil {
		return fmt.Errorf("failed to drop %s.%s: %w", database, collection, err)
	}
	return nil
}

// Replace replaces the document with the given identifier by doc, inserting
// it when absent. doc must not carry an _id.
func (s *Session) Replace(ctx context.Context, database, collection string, id any, doc bson.D) error {
	coll, err := s.collection(ctx, database, collection)
	if err != nil {
		return err
	}
	ctx, cancel := s.operationContext(ctx)
	defer cancel()

	result, err := coll.ReplaceOne(ctx, mongoid.Filter(id), doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to replace document %v: %w", id, err)
	}
	s.config.Logger.Debug("Replaced document", "id", id,
		"matched", result.MatchedCount, "upserted", result.UpsertedCount)
	return nil
}

// Update sets the given fields on the document with the given identifier,
// leaving other fields untouched. It returns the number of documents matched
// or inserted.
func (s *Session) Update(ctx context.Context, database, collection string, id any, fields bson.D, upsert bool) (int64, error) {
	coll, err := s.collection(ctx, database, collection)
	if err != nil {
		return 0, err
	}
	ctx, cancel := s.operationContext(ctx)
	defer cancel()

	result, err := coll.UpdateOne(ctx,
		mongoid.Filter(id),
		bson.D{{Key: "$set", Value: fields}},
		options.Update().SetUpsert(upsert))
	if err != nil {
		return 0, fmt.Errorf("failed to update document %v: %w", id, err)
	}
	s.config.Logger.Debug("Updated document", "id", id,
		"matched", result.MatchedCount, "modified", result.ModifiedCount, "upserted", result.UpsertedCount)
	return result.MatchedCount + result.UpsertedCount, nil
}
