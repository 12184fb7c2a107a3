package hybrid

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
	"github.com/harbouli/ai-ecommerce-sub000/pkg/logger"
)

const (
	defaultSimilarityThreshold = 0.5
	defaultSearchTimeout       = 3 * time.Second
)

// Options tunes search behavior
type Options struct {
	// SimilarityThreshold drops semantic matches scoring below it
	SimilarityThreshold float64
	// SearchTimeout bounds each hybrid search fan-out
	SearchTimeout time.Duration
}

// Repository coordinates the three stores. The record store is authoritative
// and written first; the relationship and similarity stores are mirrored
// concurrently on a best-effort basis. Mirror failures never fail a write,
// they are reported through SyncStatus.
type Repository struct {
	records knowledge.RecordStore
	graph   knowledge.RelationshipStore
	vectors knowledge.SimilarityStore

	similarityThreshold float64
	searchTimeout       time.Duration
	logger              *zap.Logger
}

// NewRepository wires the three stores behind one façade
func NewRepository(records knowledge.RecordStore, graph knowledge.RelationshipStore, vectors knowledge.SimilarityStore, opts Options) *Repository {
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = defaultSimilarityThreshold
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = defaultSearchTimeout
	}
	return &Repository{
		records:             records,
		graph:               graph,
		vectors:             vectors,
		similarityThreshold: opts.SimilarityThreshold,
		searchTimeout:       opts.SearchTimeout,
		logger:              logger.Get(),
	}
}

// Create writes the entity to the record store, then mirrors it to the graph
// and vector stores. A record-store failure fails the call; mirror failures
// only mark the sync status.
func (r *Repository) Create(ctx context.Context, entity *knowledge.Entity) (*knowledge.WriteResult, error) {
	created, err := r.records.Create(ctx, entity)
	if err != nil {
		return nil, err
	}

	sync := r.mirror(ctx, created)
	return &knowledge.WriteResult{Entity: created, Sync: sync}, nil
}

// Update patches the entity in the record store, then re-mirrors the merged
// state. Missing ids surface as the record store's typed not-found error.
func (r *Repository) Update(ctx context.Context, id string, patch knowledge.EntityPatch) (*knowledge.WriteResult, error) {
	updated, err := r.records.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	sync := r.mirror(ctx, updated)
	return &knowledge.WriteResult{Entity: updated, Sync: sync}, nil
}

// Delete removes the entity from the record store, then detaches its graph
// node and drops its vector. The boolean reports whether the entity existed.
func (r *Repository) Delete(ctx context.Context, id string) (bool, knowledge.SyncStatus, error) {
	found, err := r.records.Delete(ctx, id)
	if err != nil {
		return false, knowledge.SyncStatus{}, err
	}
	if !found {
		return false, knowledge.SyncStatus{}, nil
	}

	status := knowledge.SyncStatus{GraphSynced: true, VectorSynced: true}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := r.graph.DeleteEntity(ctx, id); err != nil {
			r.logger.Warn("Graph delete mirror failed", zap.String("entity_id", id), zap.Error(err))
			status.GraphSynced = false
			status.GraphError = err.Error()
		}
	}()
	go func() {
		defer wg.Done()
		if err := r.vectors.DeleteVector(ctx, id); err != nil {
			r.logger.Warn("Vector delete mirror failed", zap.String("entity_id", id), zap.Error(err))
			status.VectorSynced = false
			status.VectorError = err.Error()
		}
	}()
	wg.Wait()

	return true, status, nil
}

// FindByID reads from the authoritative record store
func (r *Repository) FindByID(ctx context.Context, id string) (*knowledge.Entity, error) {
	return r.records.FindByID(ctx, id)
}

// FindByType reads from the authoritative record store
func (r *Repository) FindByType(ctx context.Context, entityType knowledge.EntityType) ([]*knowledge.Entity, error) {
	return r.records.FindByType(ctx, entityType)
}

// FindByName reads from the authoritative record store
func (r *Repository) FindByName(ctx context.Context, pattern string) ([]*knowledge.Entity, error) {
	return r.records.FindByName(ctx, pattern)
}

// FindByProperties reads from the authoritative record store
func (r *Repository) FindByProperties(ctx context.Context, filter map[string]string) ([]*knowledge.Entity, error) {
	return r.records.FindByProperties(ctx, filter)
}

// Resync re-mirrors the current record-store state of one entity into the
// secondary stores, repairing drift left behind by earlier mirror failures
func (r *Repository) Resync(ctx context.Context, id string) (*knowledge.WriteResult, error) {
	entity, err := r.records.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sync := r.mirror(ctx, entity)
	return &knowledge.WriteResult{Entity: entity, Sync: sync}, nil
}

// mirror pushes an entity into both secondary stores concurrently and waits
// for both outcomes
func (r *Repository) mirror(ctx context.Context, entity *knowledge.Entity) knowledge.SyncStatus {
	status := knowledge.SyncStatus{GraphSynced: true, VectorSynced: true}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := r.graph.UpsertEntityNode(ctx, entity); err != nil {
			r.logger.Warn("Graph mirror failed",
				zap.String("entity_id", entity.ID),
				zap.Error(err),
			)
			status.GraphSynced = false
			status.GraphError = err.Error()
		}
	}()
	go func() {
		defer wg.Done()
		// Entities without an embedding have nothing to mirror
		if len(entity.Vector) == 0 {
			return
		}
		if err := r.vectors.UpsertVector(ctx, entity.ID, entity.Vector); err != nil {
			r.logger.Warn("Vector mirror failed",
				zap.String("entity_id", entity.ID),
				zap.Error(err),
			)
			status.VectorSynced = false
			status.VectorError = err.Error()
		}
	}()
	wg.Wait()

	return status
}
