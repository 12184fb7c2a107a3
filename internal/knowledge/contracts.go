package knowledge

import "context"

// ============================================================================
// Store Contracts
// ============================================================================

// EntityPatch describes a partial update to an entity. Nil fields are left
// untouched; Properties entries are merged over the existing map.
type EntityPatch struct {
	Name        *string
	Description *string
	Properties  map[string]string
	Vector      []float32
}

// RecordStore is the authoritative, strongly consistent CRUD store.
// FindByID and Update return a typed not-found error (pkg/errors) for a
// missing id; Delete reports absence through its boolean result.
type RecordStore interface {
	Create(ctx context.Context, entity *Entity) (*Entity, error)
	FindByID(ctx context.Context, id string) (*Entity, error)
	FindByType(ctx context.Context, entityType EntityType) ([]*Entity, error)
	FindByName(ctx context.Context, pattern string) ([]*Entity, error)
	FindByProperties(ctx context.Context, filter map[string]string) ([]*Entity, error)
	Update(ctx context.Context, id string, patch EntityPatch) (*Entity, error)
	Delete(ctx context.Context, id string) (bool, error)
	Close() error
}

// RelatedEntity is a traversal result with its hop distance from the origin
type RelatedEntity struct {
	Entity   *Entity `json:"entity"`
	Distance int     `json:"distance"`
}

// Path is a shortest-path result as an ordered list of entity ids
type Path struct {
	EntityIDs []string `json:"entity_ids"`
	Length    int      `json:"length"`
}

// InfluenceScore ranks an entity by its weighted connectivity
type InfluenceScore struct {
	EntityID string  `json:"entity_id"`
	Score    float64 `json:"score"`
}

// RelationshipStore stores typed, weighted edges between entity ids.
// Eventually consistent relative to the record store.
type RelationshipStore interface {
	// UpsertEntityNode mirrors an entity as a graph node (create-or-update)
	UpsertEntityNode(ctx context.Context, entity *Entity) error
	// UpsertRelationship merges on the (from, to, type) dedup tuple,
	// accumulating weight instead of duplicating edges
	UpsertRelationship(ctx context.Context, rel *Relationship) (*Relationship, error)
	// FindRelated returns distinct entities within the given hop count,
	// ordered by increasing distance then name
	FindRelated(ctx context.Context, id string, hops int) ([]RelatedEntity, error)
	FindRelationships(ctx context.Context, id string) ([]*Relationship, error)
	ShortestPath(ctx context.Context, fromID, toID string) (*Path, error)
	// DeleteEntity detaches and removes all incident edges
	DeleteEntity(ctx context.Context, id string) error
	Degree(ctx context.Context, id string) (int, error)
	ClusteringCoefficient(ctx context.Context, id string) (float64, error)
	RankInfluence(ctx context.Context, limit int) ([]InfluenceScore, error)
	Close(ctx context.Context) error
}

// Match is a k-NN hit: an entity id with its similarity score
type Match struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// SimilarityStore keys one embedding vector per entity id.
// Eventually consistent relative to the record store.
type SimilarityStore interface {
	UpsertVector(ctx context.Context, id string, vector []float32) error
	FindSimilar(ctx context.Context, vector []float32, limit int) ([]Match, error)
	// SemanticSearch embeds the text via the embedding provider, then
	// performs k-NN
	SemanticSearch(ctx context.Context, text string, limit int) ([]Match, error)
	DeleteVector(ctx context.Context, id string) error
	Close() error
}

// EmbeddingResult is the provider contract for a single embedding
type EmbeddingResult struct {
	Vector     []float32 `json:"vector"`
	Dimensions int       `json:"dimensions"`
	Model      string    `json:"model"`
}

// Embedder converts text to fixed-dimension vectors. Implementations may be
// rate-limited; such rejections surface as transient upstream-provider errors.
type Embedder interface {
	Embed(ctx context.Context, text string) (*EmbeddingResult, error)
	EmbedBatch(ctx context.Context, texts []string) ([]*EmbeddingResult, error)
}

// ============================================================================
// Hybrid write results
// ============================================================================

// SyncStatus records the outcome of the best-effort secondary-store mirrors
// for one write. A false flag never fails the overall operation.
type SyncStatus struct {
	GraphSynced  bool   `json:"graph_synced"`
	VectorSynced bool   `json:"vector_synced"`
	GraphError   string `json:"graph_error,omitempty"`
	VectorError  string `json:"vector_error,omitempty"`
}

// WriteResult is the authoritative record-store state plus sync diagnostics
type WriteResult struct {
	Entity *Entity    `json:"entity"`
	Sync   SyncStatus `json:"sync"`
}

// ScoredEntity pairs a full record with a retrieval or ranking score
type ScoredEntity struct {
	Entity *Entity `json:"entity"`
	Score  float64 `json:"score"`
}
