package graphstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
)

// ============================================================================
// Read-only Analytics
// ============================================================================

// Degree returns the number of edges incident to the entity
func (s *Neo4jStore) Degree(ctx context.Context, id string) (int, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (e:Entity {id: $id})
		OPTIONAL MATCH (e)-[r]-()
		RETURN count(r) as degree
	`

	result, err := session.Run(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return 0, fmt.Errorf("failed to compute degree for %s: %w", id, err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return 0, fmt.Errorf("failed to read degree result: %w", err)
		}
		return 0, nil
	}
	return getIntFromRecord(result.Record(), "degree"), nil
}

// ClusteringCoefficient returns the fraction of an entity's neighbor pairs
// that are themselves connected, in [0, 1]
func (s *Neo4jStore) ClusteringCoefficient(ctx context.Context, id string) (float64, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (e:Entity {id: $id})--(n:Entity)
		WITH collect(DISTINCT n) as neighbors
		WITH neighbors, size(neighbors) as k
		WHERE k >= 2
		UNWIND neighbors as n1
		UNWIND neighbors as n2
		WITH k, n1, n2
		WHERE elementId(n1) < elementId(n2) AND (n1)--(n2)
		WITH k, count(*) as links
		RETURN (2.0 * links) / (k * (k - 1)) as coefficient
	`

	result, err := session.Run(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return 0, fmt.Errorf("failed to compute clustering coefficient for %s: %w", id, err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return 0, fmt.Errorf("failed to read clustering result: %w", err)
		}
		// Fewer than two neighbors
		return 0, nil
	}
	return getFloat64FromRecord(result.Record(), "coefficient"), nil
}

// RankInfluence ranks entities by the sum of their incident edge weights
func (s *Neo4jStore) RankInfluence(ctx context.Context, limit int) ([]knowledge.InfluenceScore, error) {
	if limit < 1 {
		limit = 10
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (e:Entity)-[r]-()
		RETURN e.id as id, sum(coalesce(r.weight, 1.0)) as score
		ORDER BY score DESC, id
		LIMIT $limit
	`

	result, err := session.Run(ctx, query, map[string]interface{}{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("failed to rank influence: %w", err)
	}

	var scores []knowledge.InfluenceScore
	for result.Next(ctx) {
		record := result.Record()
		scores = append(scores, knowledge.InfluenceScore{
			EntityID: getStringFromRecord(record, "id"),
			Score:    getFloat64FromRecord(record, "score"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate influence results: %w", err)
	}

	return scores, nil
}
