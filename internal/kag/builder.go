package kag

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
	apperrors "github.com/harbouli/ai-ecommerce-sub000/pkg/errors"
	"github.com/harbouli/ai-ecommerce-sub000/pkg/logger"
)

// Repository is the entity surface the augmenter writes through. The hybrid
// repository satisfies it; writes fan out to the graph and vector mirrors.
type Repository interface {
	Create(ctx context.Context, entity *knowledge.Entity) (*knowledge.WriteResult, error)
	Update(ctx context.Context, id string, patch knowledge.EntityPatch) (*knowledge.WriteResult, error)
	FindByID(ctx context.Context, id string) (*knowledge.Entity, error)
	FindByType(ctx context.Context, entityType knowledge.EntityType) ([]*knowledge.Entity, error)
}

// Augmenter turns batches of catalog products into knowledge entities and
// typed weighted relationships. Entity writes go through the repository so
// every store stays in step; edges go straight to the relationship store.
type Augmenter struct {
	repo        Repository
	graph       knowledge.RelationshipStore
	embedder    knowledge.Embedder
	concurrency int
	logger      *zap.Logger
}

// BuildReport summarizes one augmentation pass
type BuildReport struct {
	ProductsProcessed    int `json:"productsProcessed"`
	EntitiesCreated      int `json:"entitiesCreated"`
	EntitiesUpdated      int `json:"entitiesUpdated"`
	RelationshipsCreated int `json:"relationshipsCreated"`
	EmbeddingsFailed     int `json:"embeddingsFailed"`
}

// NewAugmenter creates a graph augmenter. Concurrency bounds the number of
// in-flight embedding requests.
func NewAugmenter(repo Repository, graph knowledge.RelationshipStore, embedder knowledge.Embedder, concurrency int) *Augmenter {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Augmenter{
		repo:        repo,
		graph:       graph,
		embedder:    embedder,
		concurrency: concurrency,
		logger:      logger.Get(),
	}
}

// Build ingests a product batch: embeds each product, upserts product,
// category and brand entities, links products to their category and brand
// via BelongsTo, and connects sufficiently similar product pairs with
// SimilarTo edges weighted by their similarity score.
func (a *Augmenter) Build(ctx context.Context, products []Product) (*BuildReport, error) {
	report := &BuildReport{ProductsProcessed: len(products)}
	if len(products) == 0 {
		return report, nil
	}

	for _, p := range products {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("product requires id and name, got id=%q name=%q", p.ID, p.Name)
		}
	}

	vectors := a.embedProducts(ctx, products, report)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	categories, err := a.loadByType(ctx, knowledge.EntityTypeCategory)
	if err != nil {
		return nil, err
	}
	brands, err := a.loadByType(ctx, knowledge.EntityTypeBrand)
	if err != nil {
		return nil, err
	}

	for i, p := range products {
		entity, created, err := a.upsertProduct(ctx, p, vectors[i])
		if err != nil {
			return nil, fmt.Errorf("failed to upsert product %s: %w", p.ID, err)
		}
		if created {
			report.EntitiesCreated++
		} else {
			report.EntitiesUpdated++
		}

		if p.Category != "" {
			target, fresh, err := a.ensureNamedEntity(ctx, categories, knowledge.EntityTypeCategory, p.Category)
			if err != nil {
				return nil, err
			}
			if fresh {
				report.EntitiesCreated++
			}
			if a.link(ctx, entity.ID, target.ID, knowledge.RelationshipBelongsTo, 1.0) {
				report.RelationshipsCreated++
			}
		}

		if p.Brand != "" {
			target, fresh, err := a.ensureNamedEntity(ctx, brands, knowledge.EntityTypeBrand, p.Brand)
			if err != nil {
				return nil, err
			}
			if fresh {
				report.EntitiesCreated++
			}
			if a.link(ctx, entity.ID, target.ID, knowledge.RelationshipBelongsTo, 1.0) {
				report.RelationshipsCreated++
			}
		}
	}

	linked, err := a.linkSimilarProducts(ctx)
	if err != nil {
		return nil, err
	}
	report.RelationshipsCreated += linked

	a.logger.Info("Knowledge graph build completed",
		zap.Int("products", report.ProductsProcessed),
		zap.Int("entities_created", report.EntitiesCreated),
		zap.Int("relationships_created", report.RelationshipsCreated),
		zap.Int("embeddings_failed", report.EmbeddingsFailed),
	)
	return report, nil
}

// embedProducts embeds every product with bounded concurrency. A failed
// embedding leaves that slot nil; the product is still ingested without a
// vector.
func (a *Augmenter) embedProducts(ctx context.Context, products []Product, report *BuildReport) [][]float32 {
	vectors := make([][]float32, len(products))
	var failed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, p := range products {
		g.Go(func() error {
			result, err := a.embedder.Embed(gctx, p.EmbedText())
			if err != nil {
				a.logger.Warn("Embedding failed, ingesting product without vector",
					zap.String("product_id", p.ID),
					zap.Error(err),
				)
				failed.Add(1)
				return nil
			}
			vectors[i] = result.Vector
			return nil
		})
	}
	// Goroutines only return nil; Wait is for completion
	_ = g.Wait()

	report.EmbeddingsFailed = int(failed.Load())
	return vectors
}

func (a *Augmenter) upsertProduct(ctx context.Context, p Product, vec []float32) (*knowledge.Entity, bool, error) {
	entity := p.Entity()
	entity.Vector = vec

	existing, err := a.repo.FindByID(ctx, p.ID)
	if err == nil && existing != nil {
		patch := knowledge.EntityPatch{
			Name:        &entity.Name,
			Description: &entity.Description,
			Properties:  entity.Properties,
			Vector:      vec,
		}
		result, err := a.repo.Update(ctx, p.ID, patch)
		if err != nil {
			return nil, false, err
		}
		return result.Entity, false, nil
	}
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, false, err
	}

	result, err := a.repo.Create(ctx, entity)
	if err != nil {
		return nil, false, err
	}
	return result.Entity, true, nil
}

// loadByType indexes existing entities of a type by normalized name
func (a *Augmenter) loadByType(ctx context.Context, entityType knowledge.EntityType) (map[string]*knowledge.Entity, error) {
	entities, err := a.repo.FindByType(ctx, entityType)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s entities: %w", entityType, err)
	}

	index := make(map[string]*knowledge.Entity, len(entities))
	for _, e := range entities {
		index[knowledge.NormalizeName(e.Name)] = e
	}
	return index, nil
}

// ensureNamedEntity returns the cached entity for the normalized name,
// creating it when absent. The bool reports whether a create happened.
func (a *Augmenter) ensureNamedEntity(ctx context.Context, cache map[string]*knowledge.Entity, entityType knowledge.EntityType, name string) (*knowledge.Entity, bool, error) {
	key := knowledge.NormalizeName(name)
	if existing, ok := cache[key]; ok {
		return existing, false, nil
	}

	result, err := a.repo.Create(ctx, &knowledge.Entity{
		Type: entityType,
		Name: name,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to create %s %q: %w", entityType, name, err)
	}
	cache[key] = result.Entity
	return result.Entity, true, nil
}

// linkSimilarProducts runs the pairwise similarity pass over all product
// entities and creates SimilarTo edges for pairs above the threshold. Pairs
// are ordered by id so each pair yields a single canonical edge.
func (a *Augmenter) linkSimilarProducts(ctx context.Context) (int, error) {
	entities, err := a.repo.FindByType(ctx, knowledge.EntityTypeProduct)
	if err != nil {
		return 0, fmt.Errorf("failed to load products for similarity pass: %w", err)
	}

	created := 0
	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			first, second := entities[i], entities[j]
			if second.ID < first.ID {
				first, second = second, first
			}

			score := CalculateSimilarityScore(first, second)
			if score <= SimilarityEdgeThreshold {
				continue
			}
			if a.link(ctx, first.ID, second.ID, knowledge.RelationshipSimilarTo, score) {
				created++
			}
		}
	}
	return created, nil
}

// link upserts an edge, reporting success. Edge failures are non-fatal; the
// record store already holds the entities and a later pass can repair edges.
func (a *Augmenter) link(ctx context.Context, fromID, toID string, relType knowledge.RelationshipType, weight float64) bool {
	_, err := a.graph.UpsertRelationship(ctx, &knowledge.Relationship{
		FromID: fromID,
		ToID:   toID,
		Type:   relType,
		Weight: weight,
	})
	if err != nil {
		a.logger.Warn("Failed to upsert relationship",
			zap.String("from", fromID),
			zap.String("to", toID),
			zap.String("type", string(relType)),
			zap.Error(err),
		)
		return false
	}
	return true
}
