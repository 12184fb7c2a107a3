package graphstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
)

// ============================================================================
// Traversal Operations
// ============================================================================

const maxTraversalHops = 6

// FindRelated returns distinct entities reachable within the given hop
// count, ordered by increasing distance then name
func (s *Neo4jStore) FindRelated(ctx context.Context, id string, hops int) ([]knowledge.RelatedEntity, error) {
	if hops < 1 {
		hops = 1
	}
	if hops > maxTraversalHops {
		hops = maxTraversalHops
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH path = (start:Entity {id: $id})-[*1..%d]-(related:Entity)
		WHERE related.id <> $id
		WITH related, min(length(path)) as distance
		RETURN
			related.id as id,
			related.type as type,
			related.name as name,
			related.description as description,
			related.props as props,
			distance
		ORDER BY distance, name
	`, hops)

	result, err := session.Run(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to traverse from %s: %w", id, err)
	}

	var related []knowledge.RelatedEntity
	for result.Next(ctx) {
		record := result.Record()
		related = append(related, knowledge.RelatedEntity{
			Entity:   entityFromRecord(record),
			Distance: getIntFromRecord(record, "distance"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate traversal results: %w", err)
	}

	return related, nil
}

// ShortestPath returns the shortest undirected path between two entities,
// or nil when no path exists
func (s *Neo4jStore) ShortestPath(ctx context.Context, fromID, toID string) (*knowledge.Path, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (a:Entity {id: $fromID}), (b:Entity {id: $toID})
		MATCH p = shortestPath((a)-[*..10]-(b))
		RETURN [n IN nodes(p) | n.id] as ids, length(p) as len
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"fromID": fromID,
		"toID":   toID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find path %s -> %s: %w", fromID, toID, err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to read path result: %w", err)
		}
		return nil, nil
	}

	record := result.Record()
	return &knowledge.Path{
		EntityIDs: getStringSliceFromRecord(record, "ids"),
		Length:    getIntFromRecord(record, "len"),
	}, nil
}
