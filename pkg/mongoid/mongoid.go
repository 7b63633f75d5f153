// Package mongoid turns document identifiers given on the command line or in
// input files into the values used as _id keys in MongoDB.
package mongoid

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Field is the name of the identifier field of every document.
const Field = "_id"

// Normalize returns the ObjectID encoded by id when id is a valid 24 character
// hex token, otherwise id itself.
func Normalize(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

// NormalizeValue normalizes string identifiers and returns any other value
// (an ObjectID decoded from Extended JSON, a number...) unchanged.
func NormalizeValue(v any) any {
	if s, ok := v.(string); ok {
		return Normalize(s)
	}
	return v
}

// Filter returns the filter matching the document with the given identifier.
func Filter(id any) bson.D {
	return bson.D{{Key: Field, Value: id}}
}

// Split removes the identifier field from doc. It returns the identifier, the
// remaining fields and whether the identifier was present. doc is not modified.
func Split(doc bson.D) (any, bson.D, bool) {
	var (
		id    any
		found bool
	)
	rest := make(bson.D, 0, len(doc))
	for _, e := range doc {
		if e.Key == Field {
			id, found = e.Value, true
			continue
		}
		rest = append(rest, e)
	}
	return id, rest, found
}
