// Package testpayload generates documents with a predictable structure and
// random values, for seeding collections in tests.
package testpayload

import (
	"github.com/go-faker/faker/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Person is the shape of the generated documents.
// faker annotates fields for automatic generation
// https://github.com/go-faker/faker#supported-tags
type Person struct {
	Name   string  `faker:"name"`
	Email  string  `faker:"email"`
	Score  float64 `faker:"lat"` // use lat as random float
	Active bool
	Joined int64 `faker:"unix_time"`
}

func generatePerson() Person {
	var p Person
	if err := faker.FakeData(&p); err != nil {
		// If faker fails, return a minimal valid person
		p = Person{Name: "default", Email: "default@example.com"}
	}
	return p
}

// GenerateDocument returns a document with a fresh ObjectID in hex form as _id,
// the way identifiers appear in input files.
func GenerateDocument() bson.D {
	p := generatePerson()
	return bson.D{
		{Key: "_id", Value: primitive.NewObjectID().Hex()},
		{Key: "name", Value: p.Name},
		{Key: "email", Value: p.Email},
		{Key: "score", Value: p.Score},
		{Key: "active", Value: p.Active},
		{Key: "joined", Value: p.Joined},
		{Key: "address", Value: bson.D{
			{Key: "city", Value: faker.Word()},
			{Key: "zip", Value: faker.Word()},
		}},
		{Key: "note", Value: faker.Sentence()},
	}
}

// GenerateDocuments returns n generated documents.
func GenerateDocuments(n int) []bson.D {
	docs := make([]bson.D, 0, n)
	for i := 0; i < n; i++ {
		docs = append(docs, GenerateDocument())
	}
	return docs
}
