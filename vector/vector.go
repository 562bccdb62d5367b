// Package vector defines a minimal vector store contract for semantic search
// over embedded documents, with an in-memory cosine-similarity driver.
package vector

import "context"

// Document is one embedded item in a collection.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]any
	Vector   []float64
}

// Match pairs a document with its similarity score (higher is closer).
type Match struct {
	Document Document
	Score    float64
}

// Driver is the storage contract. Collections are created implicitly on
// first upsert.
type Driver interface {
	// Upsert inserts or replaces documents by id.
	Upsert(ctx context.Context, collection string, docs []Document) error

	// Query returns up to topK documents ranked by similarity to the vector.
	Query(ctx context.Context, collection string, vec []float64, topK int) ([]Match, error)

	// Delete removes documents by id. Unknown ids are ignored.
	Delete(ctx context.Context, collection string, ids []string) error
}
