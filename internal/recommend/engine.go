package recommend

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/harbouli/ai-ecommerce-sub000/internal/kag"
	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
	apperrors "github.com/harbouli/ai-ecommerce-sub000/pkg/errors"
	"github.com/harbouli/ai-ecommerce-sub000/pkg/logger"
)

// Weights of the composite recommendation score
const (
	ratingWeight    = 0.4
	mentionsWeight  = 0.2
	degreeWeight    = 0.1
	tagWeight       = 0.2
	priceWeight     = 0.1
	featuredBonus   = 0.05
	activeBonus     = 0.02
	mentionsCeiling = 100
)

// Repository is the read surface the engine recommends from. The hybrid
// repository satisfies it.
type Repository interface {
	FindByID(ctx context.Context, id string) (*knowledge.Entity, error)
	FindByType(ctx context.Context, entityType knowledge.EntityType) ([]*knowledge.Entity, error)
	FindRelated(ctx context.Context, id string, hops int) ([]knowledge.RelatedEntity, error)
	FindSimilar(ctx context.Context, vector []float32, limit int) ([]knowledge.ScoredEntity, error)
}

// Engine ranks candidate entities around a seed product. Candidates come
// from the seed's graph neighborhood, its vector neighbors and its same-type
// siblings; each is scored on rating, popularity, connectivity, tag overlap
// and price proximity.
type Engine struct {
	repo   Repository
	graph  knowledge.RelationshipStore
	logger *zap.Logger
}

// NewEngine creates a recommendation engine
func NewEngine(repo Repository, graph knowledge.RelationshipStore) *Engine {
	return &Engine{
		repo:   repo,
		graph:  graph,
		logger: logger.Get(),
	}
}

// FindRecommendations returns up to limit entities ranked by composite
// score. An unknown seed yields an empty list, not an error. Graph and
// vector outages shrink the candidate pool instead of failing the call.
func (e *Engine) FindRecommendations(ctx context.Context, seedID string, limit int) ([]knowledge.ScoredEntity, error) {
	if limit < 1 {
		limit = 10
	}

	seed, err := e.repo.FindByID(ctx, seedID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return []knowledge.ScoredEntity{}, nil
		}
		return nil, err
	}

	candidates := e.gatherCandidates(ctx, seed, limit)

	scored := make([]knowledge.ScoredEntity, 0, len(candidates))
	for _, candidate := range candidates {
		scored = append(scored, knowledge.ScoredEntity{
			Entity: candidate,
			Score:  e.compositeScore(ctx, seed, candidate),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Entity.Name < scored[j].Entity.Name
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// gatherCandidates merges graph neighbors, vector neighbors and same-type
// siblings, deduplicated by id and excluding the seed itself
func (e *Engine) gatherCandidates(ctx context.Context, seed *knowledge.Entity, limit int) []*knowledge.Entity {
	seen := map[string]bool{seed.ID: true}
	var candidates []*knowledge.Entity

	add := func(entity *knowledge.Entity) {
		if entity == nil || seen[entity.ID] || entity.Type != seed.Type {
			return
		}
		seen[entity.ID] = true
		candidates = append(candidates, entity)
	}

	related, err := e.repo.FindRelated(ctx, seed.ID, 2)
	if err != nil {
		e.logger.Warn("Graph candidates unavailable", zap.String("seed_id", seed.ID), zap.Error(err))
	}
	for _, re := range related {
		add(re.Entity)
	}

	if len(seed.Vector) > 0 {
		similar, err := e.repo.FindSimilar(ctx, seed.Vector, limit*2)
		if err != nil {
			e.logger.Warn("Vector candidates unavailable", zap.String("seed_id", seed.ID), zap.Error(err))
		}
		for _, hit := range similar {
			add(hit.Entity)
		}
	}

	siblings, err := e.repo.FindByType(ctx, seed.Type)
	if err != nil {
		e.logger.Warn("Sibling candidates unavailable", zap.String("seed_id", seed.ID), zap.Error(err))
	}
	for _, sibling := range siblings {
		add(sibling)
	}

	return candidates
}

// compositeScore blends the candidate's quality and popularity signals with
// its affinity to the seed
func (e *Engine) compositeScore(ctx context.Context, seed, candidate *knowledge.Entity) float64 {
	score := 0.0

	if rating, ok := candidate.Rating(); ok {
		score += ratingWeight * math.Min(rating/5, 1)
	}

	mentions := float64(candidate.Mentions())
	score += mentionsWeight * math.Min(mentions/mentionsCeiling, 1)

	degree, err := e.graph.Degree(ctx, candidate.ID)
	if err != nil {
		e.logger.Debug("Degree unavailable", zap.String("entity_id", candidate.ID), zap.Error(err))
	} else {
		score += degreeWeight * math.Min(float64(degree)*0.1, 1)
	}

	score += tagWeight * kag.TagOverlap(seed.Tags(), candidate.Tags())

	if seedPrice, ok := seed.Price(); ok {
		if candidatePrice, ok := candidate.Price(); ok {
			avg := (seedPrice + candidatePrice) / 2
			if avg > 0 {
				score += priceWeight * math.Max(0, 1-math.Abs(seedPrice-candidatePrice)/avg)
			}
		}
	}

	if candidate.Featured() {
		score += featuredBonus
	}
	if candidate.Active() {
		score += activeBonus
	}

	if score > 1 {
		score = 1
	}
	return score
}
