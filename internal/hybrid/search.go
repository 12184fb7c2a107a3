package hybrid

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
	apperrors "github.com/harbouli/ai-ecommerce-sub000/pkg/errors"
)

// keywordMatchScore is the flat score assigned to keyword matches so they
// can be merged with semantic scores on one scale
const keywordMatchScore = 0.5

// Filters narrows hybrid search results. Zero values mean no constraint.
type Filters struct {
	Type     knowledge.EntityType `json:"type,omitempty"`
	Category string               `json:"category,omitempty"`
	Brand    string               `json:"brand,omitempty"`
	MinPrice float64              `json:"minPrice,omitempty"`
	MaxPrice float64              `json:"maxPrice,omitempty"`
}

// Matches reports whether the entity satisfies every set filter
func (f Filters) Matches(e *knowledge.Entity) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Category != "" && knowledge.NormalizeName(e.Category()) != knowledge.NormalizeName(f.Category) {
		return false
	}
	if f.Brand != "" && knowledge.NormalizeName(e.Brand()) != knowledge.NormalizeName(f.Brand) {
		return false
	}
	if f.MinPrice > 0 || f.MaxPrice > 0 {
		price, ok := e.Price()
		if !ok {
			return false
		}
		if f.MinPrice > 0 && price < f.MinPrice {
			return false
		}
		if f.MaxPrice > 0 && price > f.MaxPrice {
			return false
		}
	}
	return true
}

// FindSimilar runs k-NN over the similarity store, keeps matches at or above
// the similarity threshold, and enriches them with authoritative records.
// Matches whose record no longer exists are dropped as drift.
func (r *Repository) FindSimilar(ctx context.Context, vector []float32, limit int) ([]knowledge.ScoredEntity, error) {
	matches, err := r.vectors.FindSimilar(ctx, vector, limit)
	if err != nil {
		return nil, err
	}
	return r.enrichMatches(ctx, r.aboveThreshold(matches))
}

// SemanticSearch embeds the query text, runs k-NN, keeps matches at or above
// the similarity threshold, and enriches them with authoritative records
func (r *Repository) SemanticSearch(ctx context.Context, text string, limit int) ([]knowledge.ScoredEntity, error) {
	matches, err := r.vectors.SemanticSearch(ctx, text, limit)
	if err != nil {
		return nil, err
	}
	return r.enrichMatches(ctx, r.aboveThreshold(matches))
}

// aboveThreshold drops matches scoring below the similarity threshold
func (r *Repository) aboveThreshold(matches []knowledge.Match) []knowledge.Match {
	kept := matches[:0]
	for _, m := range matches {
		if m.Score >= r.similarityThreshold {
			kept = append(kept, m)
		}
	}
	return kept
}

// FindRelated traverses the graph up to the given hop count and swaps the
// mirrored node data for authoritative records, dropping drifted nodes
func (r *Repository) FindRelated(ctx context.Context, id string, hops int) ([]knowledge.RelatedEntity, error) {
	related, err := r.graph.FindRelated(ctx, id, hops)
	if err != nil {
		return nil, err
	}

	enriched := make([]knowledge.RelatedEntity, 0, len(related))
	for _, re := range related {
		record, err := r.records.FindByID(ctx, re.Entity.ID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		enriched = append(enriched, knowledge.RelatedEntity{
			Entity:   record,
			Distance: re.Distance,
		})
	}
	return enriched, nil
}

// HybridSearch fans out a semantic and a keyword search concurrently under
// the search timeout, merges the hits by entity id keeping the higher score,
// applies filters, and orders results with vector-backed entities first,
// then by score, then by name. A failed branch degrades to no results from
// that source instead of failing the search.
func (r *Repository) HybridSearch(ctx context.Context, query string, filters Filters, limit int) ([]knowledge.ScoredEntity, error) {
	if limit < 1 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(ctx, r.searchTimeout)
	defer cancel()

	var (
		semantic []knowledge.Match
		keyword  []*knowledge.Entity
		wg       sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		matches, err := r.vectors.SemanticSearch(ctx, query, limit*2)
		if err != nil {
			r.logger.Warn("Semantic branch degraded", zap.String("query", query), zap.Error(err))
			return
		}
		semantic = matches
	}()
	go func() {
		defer wg.Done()
		entities, err := r.records.FindByName(ctx, query)
		if err != nil {
			r.logger.Warn("Keyword branch degraded", zap.String("query", query), zap.Error(err))
			return
		}
		keyword = entities
	}()
	wg.Wait()

	// Merge by id, keeping the best score per entity
	best := make(map[string]float64)
	for _, m := range r.aboveThreshold(semantic) {
		if m.Score > best[m.ID] {
			best[m.ID] = m.Score
		}
	}
	records := make(map[string]*knowledge.Entity, len(keyword))
	for _, e := range keyword {
		records[e.ID] = e
		if keywordMatchScore > best[e.ID] {
			best[e.ID] = keywordMatchScore
		}
	}

	results := make([]knowledge.ScoredEntity, 0, len(best))
	for id, score := range best {
		record, ok := records[id]
		if !ok {
			loaded, err := r.records.FindByID(ctx, id)
			if err != nil {
				if apperrors.IsNotFound(err) {
					continue
				}
				return nil, err
			}
			record = loaded
		}
		if !filters.Matches(record) {
			continue
		}
		results = append(results, knowledge.ScoredEntity{Entity: record, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		iVec, jVec := len(results[i].Entity.Vector) > 0, len(results[j].Entity.Vector) > 0
		if iVec != jVec {
			return iVec
		}
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Entity.Name < results[j].Entity.Name
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// enrichMatches resolves match ids against the record store, keeping order
// and dropping ids whose record has been deleted
func (r *Repository) enrichMatches(ctx context.Context, matches []knowledge.Match) ([]knowledge.ScoredEntity, error) {
	results := make([]knowledge.ScoredEntity, 0, len(matches))
	for _, m := range matches {
		record, err := r.records.FindByID(ctx, m.ID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				r.logger.Debug("Dropping drifted match", zap.String("entity_id", m.ID))
				continue
			}
			return nil, err
		}
		results = append(results, knowledge.ScoredEntity{Entity: record, Score: m.Score})
	}
	return results, nil
}
