package recommend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harbouli/ai-ecommerce-sub000/internal/graphstore"
	"github.com/harbouli/ai-ecommerce-sub000/internal/hybrid"
	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
	"github.com/harbouli/ai-ecommerce-sub000/internal/record"
	"github.com/harbouli/ai-ecommerce-sub000/internal/vector"
)

func newEngineFixture(t *testing.T) (*Engine, *hybrid.Repository, *graphstore.MemoryStore) {
	t.Helper()
	graph := graphstore.NewMemoryStore()
	repo := hybrid.NewRepository(record.NewMemoryStore(), graph, vector.NewMemoryStore(nil), hybrid.Options{})
	return NewEngine(repo, graph), repo, graph
}

func seedProduct(t *testing.T, repo *hybrid.Repository, id, name string, props map[string]string, vec []float32) {
	t.Helper()
	_, err := repo.Create(context.Background(), &knowledge.Entity{
		ID:         id,
		Type:       knowledge.EntityTypeProduct,
		Name:       name,
		Properties: props,
		Vector:     vec,
	})
	require.NoError(t, err)
}

func TestFindRecommendations_UnknownSeedYieldsEmptyList(t *testing.T) {
	engine, _, _ := newEngineFixture(t)

	results, err := engine.FindRecommendations(context.Background(), "ghost", 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestFindRecommendations_RanksByCompositeScore(t *testing.T) {
	ctx := context.Background()
	engine, repo, _ := newEngineFixture(t)

	seedProduct(t, repo, "seed", "Seed Headphones", map[string]string{
		knowledge.PropPrice: "100",
		knowledge.PropTags:  "wireless,bluetooth",
	}, nil)

	// Strong candidate: high rating, popular, shared tags, close price
	seedProduct(t, repo, "strong", "Strong Candidate", map[string]string{
		knowledge.PropRating:   "5",
		knowledge.PropMentions: "100",
		knowledge.PropPrice:    "100",
		knowledge.PropTags:     "wireless,bluetooth",
		knowledge.PropActive:   "true",
		knowledge.PropFeatured: "true",
	}, nil)

	// Weak candidate: low rating, unknown popularity, far price
	seedProduct(t, repo, "weak", "Weak Candidate", map[string]string{
		knowledge.PropRating: "1",
		knowledge.PropPrice:  "900",
	}, nil)

	results, err := engine.FindRecommendations(ctx, "seed", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "strong", results[0].Entity.ID)
	assert.Equal(t, "weak", results[1].Entity.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.LessOrEqual(t, results[0].Score, 1.0)
}

func TestFindRecommendations_IncludesGraphNeighbors(t *testing.T) {
	ctx := context.Background()
	engine, repo, graph := newEngineFixture(t)

	seedProduct(t, repo, "seed", "Seed", nil, nil)
	seedProduct(t, repo, "neighbor", "Neighbor", nil, nil)

	_, err := graph.UpsertRelationship(ctx, &knowledge.Relationship{
		FromID: "seed",
		ToID:   "neighbor",
		Type:   knowledge.RelationshipSimilarTo,
		Weight: 0.8,
	})
	require.NoError(t, err)

	results, err := engine.FindRecommendations(ctx, "seed", 10)
	require.NoError(t, err)

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Entity.ID)
	}
	assert.Contains(t, ids, "neighbor")
	assert.NotContains(t, ids, "seed")
}

func TestFindRecommendations_ExcludesOtherTypes(t *testing.T) {
	ctx := context.Background()
	engine, repo, graph := newEngineFixture(t)

	seedProduct(t, repo, "seed", "Seed", nil, nil)
	_, err := repo.Create(ctx, &knowledge.Entity{
		ID:   "audio",
		Type: knowledge.EntityTypeCategory,
		Name: "Audio",
	})
	require.NoError(t, err)

	_, err = graph.UpsertRelationship(ctx, &knowledge.Relationship{
		FromID: "seed",
		ToID:   "audio",
		Type:   knowledge.RelationshipBelongsTo,
		Weight: 1.0,
	})
	require.NoError(t, err)

	results, err := engine.FindRecommendations(ctx, "seed", 10)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, knowledge.EntityTypeProduct, r.Entity.Type)
	}
}

func TestFindRecommendations_UsesVectorNeighbors(t *testing.T) {
	ctx := context.Background()
	engine, repo, _ := newEngineFixture(t)

	seedProduct(t, repo, "seed", "Seed", nil, []float32{1, 0, 0, 0})
	seedProduct(t, repo, "close", "Close Vector", nil, []float32{0.9, 0.1, 0, 0})

	results, err := engine.FindRecommendations(ctx, "seed", 10)
	require.NoError(t, err)

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Entity.ID)
	}
	assert.Contains(t, ids, "close")
}

func TestFindRecommendations_Limit(t *testing.T) {
	ctx := context.Background()
	engine, repo, _ := newEngineFixture(t)

	seedProduct(t, repo, "seed", "Seed", nil, nil)
	for _, id := range []string{"a", "b", "c", "d"} {
		seedProduct(t, repo, id, "Product "+id, nil, nil)
	}

	results, err := engine.FindRecommendations(ctx, "seed", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
