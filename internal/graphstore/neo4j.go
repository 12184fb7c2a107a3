package graphstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
	"github.com/harbouli/ai-ecommerce-sub000/pkg/logger"
	"go.uber.org/zap"
)

// Neo4jStore is a RelationshipStore backed by Neo4j. Entity nodes carry the
// record-store id verbatim; edges are native typed relationships merged on
// the (from, to, type) tuple.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewNeo4jStore creates a relationship store over an existing driver
func NewNeo4jStore(driver neo4j.DriverWithContext) *Neo4jStore {
	return &Neo4jStore{
		driver: driver,
		logger: logger.Get(),
	}
}

// Connect builds a driver, verifies connectivity, and wraps it in a store
func Connect(ctx context.Context, uri, user, password string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}
	return NewNeo4jStore(driver), nil
}

// Close closes the Neo4j driver connection
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// UpsertEntityNode mirrors an entity as a graph node (create-or-update)
func (s *Neo4jStore) UpsertEntityNode(ctx context.Context, entity *knowledge.Entity) error {
	if err := knowledge.ValidateEntity(entity); err != nil {
		return err
	}
	if entity.ID == "" {
		return fmt.Errorf("entity id cannot be empty")
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	props := "{}"
	if len(entity.Properties) > 0 {
		raw, err := json.Marshal(entity.Properties)
		if err != nil {
			return fmt.Errorf("failed to encode node properties: %w", err)
		}
		props = string(raw)
	}

	query := `
		MERGE (e:Entity {id: $id})
		ON CREATE SET e.created_at = datetime($now)
		SET e.type = $type,
		    e.name = $name,
		    e.description = $description,
		    e.props = $props,
		    e.updated_at = datetime($now)
	`

	_, err := session.Run(ctx, query, map[string]interface{}{
		"id":          entity.ID,
		"type":        string(entity.Type),
		"name":        entity.Name,
		"description": entity.Description,
		"props":       props,
		"now":         time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert entity node %s: %w", entity.ID, err)
	}

	return nil
}

// DeleteEntity detaches and removes the node and all incident edges.
// Deleting an absent node is a no-op.
func (s *Neo4jStore) DeleteEntity(ctx context.Context, id string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `MATCH (e:Entity {id: $id}) DETACH DELETE e`
	_, err := session.Run(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete entity node %s: %w", id, err)
	}

	s.logger.Debug("Entity node deleted", zap.String("entity_id", id))
	return nil
}

// ============================================================================
// Record helpers
// ============================================================================

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getFloat64FromRecord(record *neo4j.Record, key string) float64 {
	val, ok := record.Get(key)
	if !ok {
		return 0
	}
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func getIntFromRecord(record *neo4j.Record, key string) int {
	val, ok := record.Get(key)
	if !ok {
		return 0
	}
	if i, ok := val.(int64); ok {
		return int(i)
	}
	return 0
}

func getStringSliceFromRecord(record *neo4j.Record, key string) []string {
	val, ok := record.Get(key)
	if !ok {
		return nil
	}
	slice, ok := val.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(slice))
	for _, v := range slice {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

func getTimeFromRecord(record *neo4j.Record, key string) time.Time {
	val, ok := record.Get(key)
	if !ok {
		return time.Time{}
	}
	if t, ok := val.(time.Time); ok {
		return t
	}
	return time.Time{}
}

func entityFromRecord(record *neo4j.Record) *knowledge.Entity {
	e := &knowledge.Entity{
		ID:          getStringFromRecord(record, "id"),
		Type:        knowledge.EntityType(getStringFromRecord(record, "type")),
		Name:        getStringFromRecord(record, "name"),
		Description: getStringFromRecord(record, "description"),
	}
	if props := getStringFromRecord(record, "props"); props != "" && props != "{}" {
		if err := json.Unmarshal([]byte(props), &e.Properties); err != nil {
			logger.Get().Warn("Failed to decode node properties",
				zap.String("entity_id", e.ID),
				zap.Error(err),
			)
		}
	}
	return e
}
