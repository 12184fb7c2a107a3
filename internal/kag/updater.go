package kag

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
)

// UpdateReport summarizes one relationship refresh
type UpdateReport struct {
	RelationshipsCreated int `json:"relationshipsCreated"`
	RelationshipsSkipped int `json:"relationshipsSkipped"`
}

// edgeSet tracks the (from, to, type) tuples already present in the graph so
// a refresh never re-merges an existing edge and inflates its weight
type edgeSet map[string]bool

func (s edgeSet) key(fromID, toID string, relType knowledge.RelationshipType) string {
	return fromID + "|" + toID + "|" + string(relType)
}

func (s edgeSet) has(fromID, toID string, relType knowledge.RelationshipType) bool {
	return s[s.key(fromID, toID, relType)]
}

// hasEither reports whether the tuple exists in either direction
func (s edgeSet) hasEither(a, b string, relType knowledge.RelationshipType) bool {
	return s.has(a, b, relType) || s.has(b, a, relType)
}

func (s edgeSet) add(fromID, toID string, relType knowledge.RelationshipType) {
	s[s.key(fromID, toID, relType)] = true
}

// UpdateRelationships re-derives the edges of a single entity: category and
// brand BelongsTo links, SimilarTo links against same-type entities, feature
// entities with HasFeature links, and RelatedTo links for tag overlap. The
// pass is idempotent; tuples already in the graph are skipped, so repeated
// refreshes converge instead of double-counting weights.
func (a *Augmenter) UpdateRelationships(ctx context.Context, entityID string) (*UpdateReport, error) {
	entity, err := a.repo.FindByID(ctx, entityID)
	if err != nil {
		return nil, err
	}

	existing, err := a.graph.FindRelationships(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load relationships for %s: %w", entityID, err)
	}
	seen := make(edgeSet, len(existing))
	for _, rel := range existing {
		seen.add(rel.FromID, rel.ToID, rel.Type)
	}

	report := &UpdateReport{}

	if err := a.refreshMembership(ctx, entity, seen, report); err != nil {
		return nil, err
	}
	if err := a.refreshSimilarity(ctx, entity, seen, report); err != nil {
		return nil, err
	}
	if err := a.refreshFeatures(ctx, entity, seen, report); err != nil {
		return nil, err
	}

	a.logger.Info("Relationship refresh completed",
		zap.String("entity_id", entityID),
		zap.Int("created", report.RelationshipsCreated),
		zap.Int("skipped", report.RelationshipsSkipped),
	)
	return report, nil
}

// refreshMembership links the entity to its category and brand entities,
// creating those entities when they do not exist yet
func (a *Augmenter) refreshMembership(ctx context.Context, entity *knowledge.Entity, seen edgeSet, report *UpdateReport) error {
	targets := []struct {
		name       string
		entityType knowledge.EntityType
	}{
		{entity.Category(), knowledge.EntityTypeCategory},
		{entity.Brand(), knowledge.EntityTypeBrand},
	}

	for _, t := range targets {
		if t.name == "" {
			continue
		}
		cache, err := a.loadByType(ctx, t.entityType)
		if err != nil {
			return err
		}
		target, _, err := a.ensureNamedEntity(ctx, cache, t.entityType, t.name)
		if err != nil {
			return err
		}

		if seen.has(entity.ID, target.ID, knowledge.RelationshipBelongsTo) {
			report.RelationshipsSkipped++
			continue
		}
		if a.link(ctx, entity.ID, target.ID, knowledge.RelationshipBelongsTo, 1.0) {
			seen.add(entity.ID, target.ID, knowledge.RelationshipBelongsTo)
			report.RelationshipsCreated++
		}
	}
	return nil
}

// refreshSimilarity scores the entity against every other entity of its type
// and links pairs above the threshold
func (a *Augmenter) refreshSimilarity(ctx context.Context, entity *knowledge.Entity, seen edgeSet, report *UpdateReport) error {
	peers, err := a.repo.FindByType(ctx, entity.Type)
	if err != nil {
		return fmt.Errorf("failed to load %s peers: %w", entity.Type, err)
	}

	for _, peer := range peers {
		if peer.ID == entity.ID {
			continue
		}

		score := CalculateSimilarityScore(entity, peer)
		if score > SimilarityEdgeThreshold {
			if seen.hasEither(entity.ID, peer.ID, knowledge.RelationshipSimilarTo) {
				report.RelationshipsSkipped++
			} else if a.linkPair(ctx, entity.ID, peer.ID, knowledge.RelationshipSimilarTo, score, seen) {
				report.RelationshipsCreated++
			}
		}

		overlap := TagOverlap(entity.Tags(), peer.Tags())
		if overlap > FeatureEdgeThreshold {
			if seen.hasEither(entity.ID, peer.ID, knowledge.RelationshipRelatedTo) {
				report.RelationshipsSkipped++
			} else if a.linkPair(ctx, entity.ID, peer.ID, knowledge.RelationshipRelatedTo, overlap, seen) {
				report.RelationshipsCreated++
			}
		}
	}
	return nil
}

// refreshFeatures materializes the entity's tags as Feature entities and
// links them via HasFeature
func (a *Augmenter) refreshFeatures(ctx context.Context, entity *knowledge.Entity, seen edgeSet, report *UpdateReport) error {
	tags := entity.Tags()
	if len(tags) == 0 {
		return nil
	}

	features, err := a.loadByType(ctx, knowledge.EntityTypeFeature)
	if err != nil {
		return err
	}

	for _, tag := range tags {
		if knowledge.NormalizeName(tag) == "" {
			continue
		}
		feature, _, err := a.ensureNamedEntity(ctx, features, knowledge.EntityTypeFeature, tag)
		if err != nil {
			return err
		}

		if seen.has(entity.ID, feature.ID, knowledge.RelationshipHasFeature) {
			report.RelationshipsSkipped++
			continue
		}
		if a.link(ctx, entity.ID, feature.ID, knowledge.RelationshipHasFeature, 1.0) {
			seen.add(entity.ID, feature.ID, knowledge.RelationshipHasFeature)
			report.RelationshipsCreated++
		}
	}
	return nil
}

// linkPair creates one canonical edge per unordered pair (lower id first)
func (a *Augmenter) linkPair(ctx context.Context, aID, bID string, relType knowledge.RelationshipType, weight float64, seen edgeSet) bool {
	fromID, toID := aID, bID
	if toID < fromID {
		fromID, toID = toID, fromID
	}
	if a.link(ctx, fromID, toID, relType, weight) {
		seen.add(fromID, toID, relType)
		return true
	}
	return false
}
