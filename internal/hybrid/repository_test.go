package hybrid

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harbouli/ai-ecommerce-sub000/internal/graphstore"
	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
	"github.com/harbouli/ai-ecommerce-sub000/internal/record"
	"github.com/harbouli/ai-ecommerce-sub000/internal/vector"
	apperrors "github.com/harbouli/ai-ecommerce-sub000/pkg/errors"
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

// failingGraph refuses every node mirror
type failingGraph struct {
	*graphstore.MemoryStore
}

func (f *failingGraph) UpsertEntityNode(ctx context.Context, entity *knowledge.Entity) error {
	return errors.New("graph store unreachable")
}

func (f *failingGraph) DeleteEntity(ctx context.Context, id string) error {
	return errors.New("graph store unreachable")
}

// failingVectors refuses every similarity operation
type failingVectors struct {
	*vector.MemoryStore
}

func (f *failingVectors) SemanticSearch(ctx context.Context, text string, limit int) ([]knowledge.Match, error) {
	return nil, errors.New("vector store unreachable")
}

func TestCreate_MirrorsToSecondaryStores(t *testing.T) {
	ctx := context.Background()
	graph := graphstore.NewMemoryStore()
	vectors := vector.NewMemoryStore(nil)
	repo := NewRepository(record.NewMemoryStore(), graph, vectors, Options{})

	result, err := repo.Create(ctx, &knowledge.Entity{
		Type:   knowledge.EntityTypeProduct,
		Name:   "Widget",
		Vector: []float32{1, 0, 0, 0},
	})
	require.NoError(t, err)

	assert.True(t, result.Sync.GraphSynced)
	assert.True(t, result.Sync.VectorSynced)

	matches, err := vectors.FindSimilar(ctx, []float32{1, 0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, result.Entity.ID, matches[0].ID)
}

func TestCreate_GraphFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	records := record.NewMemoryStore()
	repo := NewRepository(records, &failingGraph{graphstore.NewMemoryStore()}, vector.NewMemoryStore(nil), Options{})

	result, err := repo.Create(ctx, &knowledge.Entity{
		Type:   knowledge.EntityTypeProduct,
		Name:   "Widget",
		Vector: []float32{1, 0, 0, 0},
	})
	require.NoError(t, err)

	assert.False(t, result.Sync.GraphSynced)
	assert.Contains(t, result.Sync.GraphError, "unreachable")
	assert.True(t, result.Sync.VectorSynced)

	// The entity is durable regardless of the mirror outcome
	loaded, err := records.FindByID(ctx, result.Entity.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", loaded.Name)
}

func TestDelete_ReportsAbsenceAndMirrors(t *testing.T) {
	ctx := context.Background()
	graph := graphstore.NewMemoryStore()
	vectors := vector.NewMemoryStore(nil)
	repo := NewRepository(record.NewMemoryStore(), graph, vectors, Options{})

	result, err := repo.Create(ctx, &knowledge.Entity{
		Type:   knowledge.EntityTypeProduct,
		Name:   "Widget",
		Vector: []float32{1, 0, 0, 0},
	})
	require.NoError(t, err)

	found, sync, err := repo.Delete(ctx, result.Entity.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, sync.GraphSynced)
	assert.True(t, sync.VectorSynced)

	matches, err := vectors.FindSimilar(ctx, []float32{1, 0, 0, 0}, 1)
	require.NoError(t, err)
	assert.Empty(t, matches)

	found, _, err = repo.Delete(ctx, result.Entity.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestResync_RepairsDrift(t *testing.T) {
	ctx := context.Background()
	vectors := vector.NewMemoryStore(nil)
	repo := NewRepository(record.NewMemoryStore(), &failingGraph{graphstore.NewMemoryStore()}, vectors, Options{})

	created, err := repo.Create(ctx, &knowledge.Entity{
		Type:   knowledge.EntityTypeProduct,
		Name:   "Widget",
		Vector: []float32{1, 0, 0, 0},
	})
	require.NoError(t, err)
	require.False(t, created.Sync.GraphSynced)

	// Resync re-runs the mirrors; the graph is still down but reports honestly
	resynced, err := repo.Resync(ctx, created.Entity.ID)
	require.NoError(t, err)
	assert.False(t, resynced.Sync.GraphSynced)
	assert.True(t, resynced.Sync.VectorSynced)

	_, err = repo.Resync(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestFindSimilar_DropsDriftedMatches(t *testing.T) {
	ctx := context.Background()
	records := record.NewMemoryStore()
	vectors := vector.NewMemoryStore(nil)
	repo := NewRepository(records, graphstore.NewMemoryStore(), vectors, Options{})

	kept, err := repo.Create(ctx, &knowledge.Entity{
		Type:   knowledge.EntityTypeProduct,
		Name:   "Kept",
		Vector: []float32{1, 0, 0, 0},
	})
	require.NoError(t, err)

	ghost, err := repo.Create(ctx, &knowledge.Entity{
		Type:   knowledge.EntityTypeProduct,
		Name:   "Ghost",
		Vector: []float32{0.9, 0.1, 0, 0},
	})
	require.NoError(t, err)

	// Simulate drift: record gone, vector left behind
	_, err = records.Delete(ctx, ghost.Entity.ID)
	require.NoError(t, err)

	results, err := repo.FindSimilar(ctx, []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, kept.Entity.ID, results[0].Entity.ID)
}

func TestSemanticSearch_AppliesSimilarityThreshold(t *testing.T) {
	ctx := context.Background()
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"aligned": {1, 0, 0, 0},
	}}
	repo := NewRepository(record.NewMemoryStore(), graphstore.NewMemoryStore(), vector.NewMemoryStore(embedder), Options{
		SimilarityThreshold: 0.9,
	})

	for id, vec := range map[string][]float32{
		"aligned":    {1, 0, 0, 0},
		"orthogonal": {0, 1, 0, 0},
		"opposite":   {-1, 0, 0, 0},
	} {
		_, err := repo.Create(ctx, &knowledge.Entity{
			ID:     id,
			Type:   knowledge.EntityTypeProduct,
			Name:   id,
			Vector: vec,
		})
		require.NoError(t, err)
	}

	results, err := repo.SemanticSearch(ctx, "aligned", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "aligned", results[0].Entity.ID)
	assert.GreaterOrEqual(t, results[0].Score, 0.9)

	byVector, err := repo.FindSimilar(ctx, []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, byVector, 1)
	assert.Equal(t, "aligned", byVector[0].Entity.ID)
}

func TestHybridSearch_MergesAndOrders(t *testing.T) {
	ctx := context.Background()
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"headphones": {1, 0, 0, 0},
	}}
	repo := NewRepository(record.NewMemoryStore(), graphstore.NewMemoryStore(), vector.NewMemoryStore(embedder), Options{})

	_, err := repo.Create(ctx, &knowledge.Entity{
		ID:         "wireless",
		Type:       knowledge.EntityTypeProduct,
		Name:       "Wireless Headphones",
		Properties: map[string]string{knowledge.PropCategory: "Audio"},
		Vector:     []float32{1, 0, 0, 0},
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &knowledge.Entity{
		ID:         "stand",
		Type:       knowledge.EntityTypeProduct,
		Name:       "Headphones Stand",
		Properties: map[string]string{knowledge.PropCategory: "Accessories"},
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &knowledge.Entity{
		ID:     "blender",
		Type:   knowledge.EntityTypeProduct,
		Name:   "Blender",
		Vector: []float32{0, 0, 1, 0},
	})
	require.NoError(t, err)

	results, err := repo.HybridSearch(ctx, "headphones", Filters{}, 10)
	require.NoError(t, err)

	// The orthogonal blender vector falls below the similarity threshold;
	// both headphone entities survive, vector-backed first
	require.Len(t, results, 2)
	assert.Equal(t, "wireless", results[0].Entity.ID)
	assert.Equal(t, "stand", results[1].Entity.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestHybridSearch_AppliesFilters(t *testing.T) {
	ctx := context.Background()
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"headphones": {1, 0, 0, 0},
	}}
	repo := NewRepository(record.NewMemoryStore(), graphstore.NewMemoryStore(), vector.NewMemoryStore(embedder), Options{})

	_, err := repo.Create(ctx, &knowledge.Entity{
		ID:   "wireless",
		Type: knowledge.EntityTypeProduct,
		Name: "Wireless Headphones",
		Properties: map[string]string{
			knowledge.PropCategory: "Audio",
			knowledge.PropPrice:    "199",
		},
		Vector: []float32{1, 0, 0, 0},
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &knowledge.Entity{
		ID:   "stand",
		Type: knowledge.EntityTypeProduct,
		Name: "Headphones Stand",
		Properties: map[string]string{
			knowledge.PropCategory: "Accessories",
			knowledge.PropPrice:    "25",
		},
	})
	require.NoError(t, err)

	byCategory, err := repo.HybridSearch(ctx, "headphones", Filters{Category: "audio"}, 10)
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "wireless", byCategory[0].Entity.ID)

	byPrice, err := repo.HybridSearch(ctx, "headphones", Filters{MaxPrice: 50}, 10)
	require.NoError(t, err)
	require.Len(t, byPrice, 1)
	assert.Equal(t, "stand", byPrice[0].Entity.ID)

	none, err := repo.HybridSearch(ctx, "headphones", Filters{Brand: "Nope"}, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestHybridSearch_MatchesDescriptions(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(record.NewMemoryStore(), graphstore.NewMemoryStore(), vector.NewMemoryStore(nil), Options{})

	_, err := repo.Create(ctx, &knowledge.Entity{
		ID:          "case",
		Type:        knowledge.EntityTypeProduct,
		Name:        "Carrying Case",
		Description: "Hard shell case that fits most headphones",
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &knowledge.Entity{
		ID:          "blender",
		Type:        knowledge.EntityTypeProduct,
		Name:        "Blender",
		Description: "Crushes ice",
	})
	require.NoError(t, err)

	results, err := repo.HybridSearch(ctx, "headphones", Filters{}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "case", results[0].Entity.ID)
}

func TestHybridSearch_DegradesWhenVectorStoreDown(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(record.NewMemoryStore(), graphstore.NewMemoryStore(), &failingVectors{vector.NewMemoryStore(nil)}, Options{})

	_, err := repo.Create(ctx, &knowledge.Entity{
		ID:   "stand",
		Type: knowledge.EntityTypeProduct,
		Name: "Headphones Stand",
	})
	require.NoError(t, err)

	results, err := repo.HybridSearch(ctx, "headphones", Filters{}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "stand", results[0].Entity.ID)
}

func TestFilters_Matches(t *testing.T) {
	e := &knowledge.Entity{
		Type: knowledge.EntityTypeProduct,
		Properties: map[string]string{
			knowledge.PropCategory: "Audio",
			knowledge.PropBrand:    "Acme",
			knowledge.PropPrice:    "100",
		},
	}

	assert.True(t, Filters{}.Matches(e))
	assert.True(t, Filters{Category: "AUDIO", Brand: "acme", MinPrice: 50, MaxPrice: 150}.Matches(e))
	assert.False(t, Filters{MinPrice: 150}.Matches(e))
	assert.False(t, Filters{Type: knowledge.EntityTypeBrand}.Matches(e))

	// Price filters exclude entities without a price
	unpriced := &knowledge.Entity{Type: knowledge.EntityTypeProduct}
	assert.False(t, Filters{MaxPrice: 10}.Matches(unpriced))
}
