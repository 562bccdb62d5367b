package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// InMemoryDriver is a process-local Driver using exact cosine similarity.
// Suitable for tests and small corpora; swap in a real vector database for
// production loads.
type InMemoryDriver struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
}

var _ Driver = (*InMemoryDriver)(nil)

// NewInMemoryDriver creates an empty driver.
func NewInMemoryDriver() *InMemoryDriver {
	return &InMemoryDriver{collections: make(map[string]map[string]Document)}
}

// Upsert implements Driver.
func (d *InMemoryDriver) Upsert(_ context.Context, collection string, docs []Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	coll, ok := d.collections[collection]
	if !ok {
		coll = make(map[string]Document)
		d.collections[collection] = coll
	}
	for _, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document in collection %q requires an id", collection)
		}
		coll[doc.ID] = copyDocument(doc)
	}
	return nil
}

// Query implements Driver.
func (d *InMemoryDriver) Query(_ context.Context, collection string, vec []float64, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	coll := d.collections[collection]
	matches := make([]Match, 0, len(coll))
	for _, doc := range coll {
		score, err := cosineSimilarity(vec, doc.Vector)
		if err != nil {
			return nil, err
		}
		matches = append(matches, Match{Document: copyDocument(doc), Score: score})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Delete implements Driver.
func (d *InMemoryDriver) Delete(_ context.Context, collection string, ids []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	coll := d.collections[collection]
	for _, id := range ids {
		delete(coll, id)
	}
	return nil
}

// cosineSimilarity computes the cosine of the angle between a and b.
func cosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimensions differ: %d vs %d", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

func copyDocument(doc Document) Document {
	out := doc
	if doc.Vector != nil {
		out.Vector = make([]float64, len(doc.Vector))
		copy(out.Vector, doc.Vector)
	}
	if doc.Metadata != nil {
		out.Metadata = make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
