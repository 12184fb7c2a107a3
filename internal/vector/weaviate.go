package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/go-openapi/strfmt"
	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
	"github.com/harbouli/ai-ecommerce-sub000/pkg/logger"
	"go.uber.org/zap"
)

// WeaviateConfig holds connection settings for a Weaviate deployment
type WeaviateConfig struct {
	Host   string
	Scheme string
	APIKey string
	Class  string
}

// WeaviateStore is a SimilarityStore backed by a Weaviate instance.
// Entity ids are kept in an entityId property; the object id is a
// deterministic UUID derived from the entity id so upserts stay idempotent.
type WeaviateStore struct {
	client   *weaviate.Client
	class    string
	embedder knowledge.Embedder
	logger   *zap.Logger
}

// NewWeaviateStore connects to Weaviate and ensures the vector class exists
func NewWeaviateStore(ctx context.Context, cfg WeaviateConfig, embedder knowledge.Embedder) (*WeaviateStore, error) {
	clientCfg := weaviate.Config{
		Host:   cfg.Host,
		Scheme: cfg.Scheme,
	}
	if cfg.APIKey != "" {
		clientCfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}

	client, err := weaviate.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	class := cfg.Class
	if class == "" {
		class = "KnowledgeEntity"
	}

	store := &WeaviateStore{
		client:   client,
		class:    class,
		embedder: embedder,
		logger:   logger.Get(),
	}

	if err := store.ensureClass(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *WeaviateStore) ensureClass(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(s.class).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check weaviate class %s: %w", s.class, err)
	}
	if exists {
		return nil
	}

	classObj := &models.Class{
		Class:      s.class,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "entityId", DataType: []string{"text"}},
		},
	}
	if err := s.client.Schema().ClassCreator().WithClass(classObj).Do(ctx); err != nil {
		// A concurrent creator may have won the race
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return fmt.Errorf("failed to create weaviate class %s: %w", s.class, err)
	}
	return nil
}

func (s *WeaviateStore) objectID(id string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String())
}

// UpsertVector stores or replaces the embedding for an entity id
func (s *WeaviateStore) UpsertVector(ctx context.Context, id string, vec []float32) error {
	if id == "" {
		return fmt.Errorf("vector id cannot be empty")
	}

	obj := &models.Object{
		Class:      s.class,
		ID:         s.objectID(id),
		Properties: map[string]interface{}{"entityId": id},
		Vector:     vec,
	}

	if _, err := s.client.Batch().ObjectsBatcher().WithObjects(obj).Do(ctx); err != nil {
		return fmt.Errorf("failed to upsert vector %s: %w", id, err)
	}
	return nil
}

// FindSimilar returns the k nearest entity ids by vector distance
func (s *WeaviateStore) FindSimilar(ctx context.Context, vec []float32, limit int) ([]knowledge.Match, error) {
	if limit < 1 {
		limit = 10
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithFields(
			graphql.Field{Name: "entityId"},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
		).
		WithNearVector(s.client.GraphQL().NearVectorArgBuilder().WithVector(vec)).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to execute near-vector search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("near-vector search rejected: %s", result.Errors[0].Message)
	}

	return s.parseMatches(result.Data)
}

// SemanticSearch embeds the text and performs k-NN
func (s *WeaviateStore) SemanticSearch(ctx context.Context, text string, limit int) ([]knowledge.Match, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("semantic search requires an embedder")
	}

	embedded, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return s.FindSimilar(ctx, embedded.Vector, limit)
}

// DeleteVector removes the embedding for an entity id
func (s *WeaviateStore) DeleteVector(ctx context.Context, id string) error {
	err := s.client.Data().Deleter().
		WithClassName(s.class).
		WithID(string(s.objectID(id))).
		Do(ctx)
	if err != nil && !strings.Contains(err.Error(), "404") {
		return fmt.Errorf("failed to delete vector %s: %w", id, err)
	}
	return nil
}

// Close is a no-op; the weaviate client holds no persistent connection
func (s *WeaviateStore) Close() error {
	return nil
}

func (s *WeaviateStore) parseMatches(data map[string]models.JSONObject) ([]knowledge.Match, error) {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	items, ok := get[s.class].([]interface{})
	if !ok {
		return nil, nil
	}

	var matches []knowledge.Match
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		entityID, _ := obj["entityId"].(string)
		if entityID == "" {
			continue
		}

		score := 0.0
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			if distance, ok := additional["distance"].(float64); ok {
				// Cosine distance in [0, 2]; convert back to similarity
				score = 1 - distance
			}
		}

		matches = append(matches, knowledge.Match{ID: entityID, Score: score})
	}

	return matches, nil
}
