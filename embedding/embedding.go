// Package embedding defines the text embedding contract used by semantic
// memory search, plus an OpenAI-backed provider and a deterministic mock.
package embedding

import "context"

// Provider converts texts into dense vectors. Implementations must return
// one vector per input text, in input order.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Dimensions() int
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, p Provider, text string) ([]float64, error) {
	vectors, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
