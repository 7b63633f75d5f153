package ops

import (
	"context"

	"github.com/sandrolain/mongokit/pkg/mongoid"
)

// UpdateDocument sets the fields of the input document on the stored one,
// leaving other fields untouched. Without upsert a missing document is left
// missing.
func (o *Operations) UpdateDocument(ctx context.Context, database, collection, id, input string, upsert bool) error {
	doc, err := o.codec.ReadDocument(input)
	if err != nil {
		return err
	}

	_, fields, _ := mongoid.Split(doc)
	if len(fields) == 0 {
		return ErrEmptyUpdate
	}

	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Key
	}
	o.logger.Warn("Overwriting fields", "database", database, "collection", collection, "id", id, "fields", names)
	n, err := o.store.Update(ctx, database, collection, mongoid.Normalize(id), fields, upsert)
	if err != nil {
		return err
	}
	if n == 0 {
		o.logger.Warn("No document matched, nothing updated", "database", database, "collection", collection, "id", id)
	}
	return nil
}

// UpdateCollection is declared for the "update collection" command, whose
// semantics are undecided. It always fails and touches nothing.
// TODO: decide between one patch for every document and per-_id patches read from the input.
func (o *Operations) UpdateCollection(ctx context.Context, upsert bool) error {
	return ErrNotImplemented
}
