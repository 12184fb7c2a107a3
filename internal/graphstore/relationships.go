package graphstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
	"go.uber.org/zap"
)

// ============================================================================
// Relationship Operations
// ============================================================================

// UpsertRelationship merges an edge on its (from, to, type) dedup tuple.
// Creating the same edge twice strengthens it instead of duplicating it:
// the incoming weight accumulates onto the existing one up to the soft cap.
func (s *Neo4jStore) UpsertRelationship(ctx context.Context, rel *knowledge.Relationship) (*knowledge.Relationship, error) {
	if err := knowledge.ValidateRelationship(rel); err != nil {
		return nil, err
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	relID := rel.ID
	if relID == "" {
		relID = uuid.NewString()
	}

	// The relationship type is a validated closed enum, so interpolating it
	// into the Cypher text is safe; Neo4j cannot parameterize rel types.
	query := fmt.Sprintf(`
		MATCH (a:Entity {id: $fromID})
		MATCH (b:Entity {id: $toID})
		MERGE (a)-[r:%s]->(b)
		ON CREATE SET
			r.id = $relID,
			r.weight = $weight,
			r.created_at = datetime($now)
		ON MATCH SET
			r.weight = CASE
				WHEN r.weight + $weight > $cap THEN $cap
				ELSE r.weight + $weight
			END
		RETURN r.id as id, r.weight as weight, r.created_at as created_at
	`, rel.Type)

	result, err := session.Run(ctx, query, map[string]interface{}{
		"fromID": rel.FromID,
		"toID":   rel.ToID,
		"relID":  relID,
		"weight": rel.Weight,
		"cap":    knowledge.MaxRelationshipWeight,
		"now":    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert relationship: %w", err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return nil, fmt.Errorf("relationship endpoints missing (%s -> %s): %w", rel.FromID, rel.ToID, err)
	}

	merged := &knowledge.Relationship{
		ID:        getStringFromRecord(record, "id"),
		FromID:    rel.FromID,
		ToID:      rel.ToID,
		Type:      rel.Type,
		Weight:    getFloat64FromRecord(record, "weight"),
		CreatedAt: getTimeFromRecord(record, "created_at"),
	}

	s.logger.Debug("Relationship upserted",
		zap.String("from", merged.FromID),
		zap.String("to", merged.ToID),
		zap.String("type", string(merged.Type)),
		zap.Float64("weight", merged.Weight),
	)
	return merged, nil
}

// FindRelationships returns every edge incident to the entity, in either
// direction, with endpoint direction preserved
func (s *Neo4jStore) FindRelationships(ctx context.Context, id string) ([]*knowledge.Relationship, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (a:Entity {id: $id})-[r]-(b:Entity)
		RETURN DISTINCT
			r.id as id,
			startNode(r).id as from_id,
			endNode(r).id as to_id,
			type(r) as rel_type,
			r.weight as weight,
			r.created_at as created_at
		ORDER BY rel_type, from_id, to_id
	`

	result, err := session.Run(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to find relationships for %s: %w", id, err)
	}

	var rels []*knowledge.Relationship
	for result.Next(ctx) {
		record := result.Record()
		rels = append(rels, &knowledge.Relationship{
			ID:        getStringFromRecord(record, "id"),
			FromID:    getStringFromRecord(record, "from_id"),
			ToID:      getStringFromRecord(record, "to_id"),
			Type:      knowledge.RelationshipType(getStringFromRecord(record, "rel_type")),
			Weight:    getFloat64FromRecord(record, "weight"),
			CreatedAt: getTimeFromRecord(record, "created_at"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate relationships: %w", err)
	}

	return rels, nil
}
