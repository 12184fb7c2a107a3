package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
)

// MemoryStore is an in-memory SimilarityStore with the same scoring path as
// the SQLite implementation. Useful for tests and single-process setups.
type MemoryStore struct {
	mu       sync.RWMutex
	vectors  map[string][]float32
	embedder knowledge.Embedder
}

// NewMemoryStore creates an empty in-memory similarity store
func NewMemoryStore(embedder knowledge.Embedder) *MemoryStore {
	return &MemoryStore{
		vectors:  make(map[string][]float32),
		embedder: embedder,
	}
}

// UpsertVector stores or replaces the embedding for an entity id
func (s *MemoryStore) UpsertVector(ctx context.Context, id string, vec []float32) error {
	if id == "" {
		return fmt.Errorf("vector id cannot be empty")
	}

	cp := make([]float32, len(vec))
	copy(cp, vec)

	s.mu.Lock()
	s.vectors[id] = cp
	s.mu.Unlock()
	return nil
}

// FindSimilar returns the k nearest entity ids by cosine similarity
func (s *MemoryStore) FindSimilar(ctx context.Context, vec []float32, limit int) ([]knowledge.Match, error) {
	if limit < 1 {
		limit = 10
	}

	s.mu.RLock()
	matches := make([]knowledge.Match, 0, len(s.vectors))
	for id, stored := range s.vectors {
		matches = append(matches, knowledge.Match{
			ID:    id,
			Score: CosineSimilarity(vec, stored),
		})
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// SemanticSearch embeds the text and performs k-NN over stored vectors
func (s *MemoryStore) SemanticSearch(ctx context.Context, text string, limit int) ([]knowledge.Match, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("semantic search requires an embedder")
	}

	result, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return s.FindSimilar(ctx, result.Vector, limit)
}

// DeleteVector removes the embedding for an entity id. Missing ids are a no-op.
func (s *MemoryStore) DeleteVector(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.vectors, id)
	s.mu.Unlock()
	return nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
