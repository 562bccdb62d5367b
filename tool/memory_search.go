package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/embedding"
	"github.com/hupe1980/agentforge/vector"
)

// MemorySearchOptions configure the memory search tool.
type MemorySearchOptions struct {
	// Collection is the vector collection holding indexed memories.
	Collection string
	// TopK is the default number of matches returned.
	TopK int
}

// MemorySearchTool performs semantic search over indexed long-term memories.
// Learnings are embedded once via IndexMemory; queries embed the search text
// and rank by cosine similarity. Results are scoped to the turn's user when
// a user id is present in context state.
type MemorySearchTool struct {
	provider   embedding.Provider
	driver     vector.Driver
	collection string
	topK       int
}

var _ Tool = (*MemorySearchTool)(nil)

// NewMemorySearchTool constructs the tool over an embedding provider and a
// vector driver.
func NewMemorySearchTool(provider embedding.Provider, driver vector.Driver, optFns ...func(o *MemorySearchOptions)) *MemorySearchTool {
	opts := MemorySearchOptions{
		Collection: "memories",
		TopK:       5,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &MemorySearchTool{
		provider:   provider,
		driver:     driver,
		collection: opts.Collection,
		topK:       opts.TopK,
	}
}

// Name implements Tool.
func (t *MemorySearchTool) Name() string { return "search_memory" }

// Description implements Tool.
func (t *MemorySearchTool) Description() string {
	return "Search long-term memory for facts and learnings relevant to a query."
}

// Parameters implements Tool.
func (t *MemorySearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "Natural language search query"},
			"top_k": map[string]any{"type": "integer", "description": "Maximum number of results"},
		},
		"required": []string{"query"},
	}
}

// Call implements Tool.
func (t *MemorySearchTool) Call(ctx context.Context, ac *core.AgentContext, args map[string]any) (any, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return nil, NewToolError(t.Name(), "query must be a non-empty string", "VALIDATION_ERROR")
	}
	topK := t.topK
	if raw, ok := args["top_k"].(float64); ok && raw > 0 {
		topK = int(raw)
	}

	vec, err := embedding.EmbedOne(ctx, t.provider, query)
	if err != nil {
		return nil, &ToolError{Tool: t.Name(), Message: err.Error(), Code: "EMBEDDING_ERROR"}
	}

	// Over-fetch so user scoping still fills topK results.
	matches, err := t.driver.Query(ctx, t.collection, vec, topK*4)
	if err != nil {
		return nil, &ToolError{Tool: t.Name(), Message: err.Error(), Code: "EXECUTION_ERROR"}
	}

	userID, _ := ac.GetStateDefault(core.StateKeyUserID, "").(string)
	results := make([]map[string]any, 0, topK)
	for _, match := range matches {
		if userID != "" {
			owner, _ := match.Document.Metadata["user_id"].(string)
			if owner != "" && owner != userID {
				continue
			}
		}
		results = append(results, map[string]any{
			"text":  match.Document.Text,
			"score": match.Score,
		})
		if len(results) >= topK {
			break
		}
	}
	return map[string]any{"query": query, "results": results}, nil
}

// IndexMemory embeds a memory record's learnings into the vector collection
// so they become searchable. Document ids are stable per (memory, position),
// making re-indexing an upsert.
func (t *MemorySearchTool) IndexMemory(ctx context.Context, mem *core.MemoryRecord) error {
	if mem.IsEmpty() {
		return nil
	}
	texts := make([]string, 0, len(mem.KeyLearnings)+1)
	ids := make([]string, 0, cap(texts))
	for i, learning := range mem.KeyLearnings {
		texts = append(texts, learning)
		ids = append(ids, fmt.Sprintf("%s:learning:%d", mem.ID, i))
	}
	if mem.Summary != "" {
		texts = append(texts, mem.Summary)
		ids = append(ids, mem.ID+":summary")
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := t.provider.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed memory %s: %w", mem.ID, err)
	}
	docs := make([]vector.Document, len(texts))
	for i := range texts {
		docs[i] = vector.Document{
			ID:   ids[i],
			Text: texts[i],
			Metadata: map[string]any{
				"memory_id": mem.ID,
				"agent":     mem.AgentName,
				"user_id":   mem.UserID,
			},
			Vector: vectors[i],
		}
	}
	if err := t.driver.Upsert(ctx, t.collection, docs); err != nil {
		return fmt.Errorf("failed to index memory %s: %w", mem.ID, err)
	}
	return nil
}
