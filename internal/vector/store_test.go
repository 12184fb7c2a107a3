package vector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
)

// stubEmbedder returns canned vectors keyed by input text
type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) (*knowledge.EmbeddingResult, error) {
	vec, ok := s.vectors[text]
	if !ok {
		vec = []float32{0, 0, 0, 1}
	}
	return &knowledge.EmbeddingResult{Vector: vec, Dimensions: len(vec), Model: "stub"}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]*knowledge.EmbeddingResult, error) {
	results := make([]*knowledge.EmbeddingResult, len(texts))
	for i, t := range texts {
		r, _ := s.Embed(ctx, t)
		results[i] = r
	}
	return results, nil
}

func TestVectorCodecRoundTrip(t *testing.T) {
	original := []float32{0.5, -1.25, 3.75, 0}

	encoded, err := EncodeVector(original)
	require.NoError(t, err)

	decoded, err := DecodeVector(encoded)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestVectorCodec_Invalid(t *testing.T) {
	_, err := EncodeVector(nil)
	assert.Error(t, err)

	_, err = DecodeVector([]byte{1, 2})
	assert.Error(t, err)

	// Length prefix claims more floats than the payload carries
	encoded, err := EncodeVector([]float32{1, 2, 3})
	require.NoError(t, err)
	_, err = DecodeVector(encoded[:len(encoded)-4])
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}

	assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity(a, b), 1e-9)
	assert.Equal(t, CosineSimilarity(a, b), CosineSimilarity(b, a))

	// Mismatched or zero vectors score zero
	assert.Equal(t, 0.0, CosineSimilarity(a, []float32{1, 0}))
	assert.Equal(t, 0.0, CosineSimilarity(a, []float32{0, 0, 0}))
}

// storesUnderTest runs the contract tests against both backends
func storesUnderTest(t *testing.T, embedder knowledge.Embedder) map[string]knowledge.SimilarityStore {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "vectors.db"), embedder)
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]knowledge.SimilarityStore{
		"sqlite": sqlite,
		"memory": NewMemoryStore(embedder),
	}
}

func TestFindSimilar_OrderingAndLimit(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t, nil) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.UpsertVector(ctx, "exact", []float32{1, 0, 0, 0}))
			require.NoError(t, store.UpsertVector(ctx, "close", []float32{0.9, 0.1, 0, 0}))
			require.NoError(t, store.UpsertVector(ctx, "far", []float32{0, 0, 1, 0}))

			matches, err := store.FindSimilar(ctx, []float32{1, 0, 0, 0}, 2)
			require.NoError(t, err)
			require.Len(t, matches, 2)

			assert.Equal(t, "exact", matches[0].ID)
			assert.Equal(t, "close", matches[1].ID)
			assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
			assert.Greater(t, matches[0].Score, matches[1].Score)
		})
	}
}

func TestUpsertVector_Replaces(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t, nil) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.UpsertVector(ctx, "e1", []float32{1, 0, 0, 0}))
			require.NoError(t, store.UpsertVector(ctx, "e1", []float32{0, 1, 0, 0}))

			matches, err := store.FindSimilar(ctx, []float32{0, 1, 0, 0}, 1)
			require.NoError(t, err)
			require.Len(t, matches, 1)
			assert.Equal(t, "e1", matches[0].ID)
			assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
		})
	}
}

func TestDeleteVector_MissingIsNoop(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t, nil) {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, store.DeleteVector(ctx, "never-existed"))

			require.NoError(t, store.UpsertVector(ctx, "e1", []float32{1, 0, 0, 0}))
			require.NoError(t, store.DeleteVector(ctx, "e1"))

			matches, err := store.FindSimilar(ctx, []float32{1, 0, 0, 0}, 10)
			require.NoError(t, err)
			assert.Empty(t, matches)
		})
	}
}

func TestSemanticSearch_UsesEmbedder(t *testing.T) {
	ctx := context.Background()
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"wireless headphones": {1, 0, 0, 0},
	}}

	for name, store := range storesUnderTest(t, embedder) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.UpsertVector(ctx, "headphones", []float32{1, 0, 0, 0}))
			require.NoError(t, store.UpsertVector(ctx, "blender", []float32{0, 1, 0, 0}))

			matches, err := store.SemanticSearch(ctx, "wireless headphones", 1)
			require.NoError(t, err)
			require.Len(t, matches, 1)
			assert.Equal(t, "headphones", matches[0].ID)
		})
	}
}
