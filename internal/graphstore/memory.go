package graphstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
)

// edgeKey is the (from, to, type) dedup tuple
type edgeKey struct {
	from string
	to   string
	typ  knowledge.RelationshipType
}

// MemoryStore is an in-memory RelationshipStore with the same semantics as
// the Neo4j implementation. Nodes live in an arena keyed by entity id and
// edges in a separate index keyed by the dedup tuple, so entities never hold
// direct references to each other.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]*knowledge.Entity
	edges map[edgeKey]*knowledge.Relationship
}

// NewMemoryStore creates an empty in-memory relationship store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[string]*knowledge.Entity),
		edges: make(map[edgeKey]*knowledge.Relationship),
	}
}

// UpsertEntityNode mirrors an entity as a graph node (create-or-update)
func (s *MemoryStore) UpsertEntityNode(ctx context.Context, entity *knowledge.Entity) error {
	if err := knowledge.ValidateEntity(entity); err != nil {
		return err
	}
	if entity.ID == "" {
		return fmt.Errorf("entity id cannot be empty")
	}

	s.mu.Lock()
	s.nodes[entity.ID] = entity.Clone()
	s.mu.Unlock()
	return nil
}

// UpsertRelationship merges an edge on its (from, to, type) dedup tuple,
// accumulating weight up to the soft cap
func (s *MemoryStore) UpsertRelationship(ctx context.Context, rel *knowledge.Relationship) (*knowledge.Relationship, error) {
	if err := knowledge.ValidateRelationship(rel); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[rel.FromID]; !ok {
		return nil, fmt.Errorf("relationship endpoints missing (%s -> %s): from node absent", rel.FromID, rel.ToID)
	}
	if _, ok := s.nodes[rel.ToID]; !ok {
		return nil, fmt.Errorf("relationship endpoints missing (%s -> %s): to node absent", rel.FromID, rel.ToID)
	}

	key := edgeKey{from: rel.FromID, to: rel.ToID, typ: rel.Type}
	if existing, ok := s.edges[key]; ok {
		existing.Weight = knowledge.AccumulateWeight(existing.Weight, rel.Weight)
		cp := *existing
		return &cp, nil
	}

	created := &knowledge.Relationship{
		ID:        rel.ID,
		FromID:    rel.FromID,
		ToID:      rel.ToID,
		Type:      rel.Type,
		Weight:    rel.Weight,
		CreatedAt: time.Now().UTC(),
	}
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	s.edges[key] = created

	cp := *created
	return &cp, nil
}

// FindRelated returns distinct entities within the given hop count via BFS,
// ordered by increasing distance then name
func (s *MemoryStore) FindRelated(ctx context.Context, id string, hops int) ([]knowledge.RelatedEntity, error) {
	if hops < 1 {
		hops = 1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[id]; !ok {
		return nil, nil
	}

	distances := map[string]int{id: 0}
	frontier := []string{id}
	for depth := 1; depth <= hops && len(frontier) > 0; depth++ {
		var next []string
		for _, current := range frontier {
			for _, neighbor := range s.neighborsLocked(current) {
				if _, seen := distances[neighbor]; seen {
					continue
				}
				distances[neighbor] = depth
				next = append(next, neighbor)
			}
		}
		frontier = next
	}

	var related []knowledge.RelatedEntity
	for nodeID, distance := range distances {
		if nodeID == id {
			continue
		}
		node, ok := s.nodes[nodeID]
		if !ok {
			continue
		}
		related = append(related, knowledge.RelatedEntity{
			Entity:   node.Clone(),
			Distance: distance,
		})
	}

	sort.Slice(related, func(i, j int) bool {
		if related[i].Distance != related[j].Distance {
			return related[i].Distance < related[j].Distance
		}
		return related[i].Entity.Name < related[j].Entity.Name
	})
	return related, nil
}

// FindRelationships returns every edge incident to the entity
func (s *MemoryStore) FindRelationships(ctx context.Context, id string) ([]*knowledge.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rels []*knowledge.Relationship
	for key, rel := range s.edges {
		if key.from == id || key.to == id {
			cp := *rel
			rels = append(rels, &cp)
		}
	}

	sort.Slice(rels, func(i, j int) bool {
		if rels[i].Type != rels[j].Type {
			return rels[i].Type < rels[j].Type
		}
		if rels[i].FromID != rels[j].FromID {
			return rels[i].FromID < rels[j].FromID
		}
		return rels[i].ToID < rels[j].ToID
	})
	return rels, nil
}

// ShortestPath returns the shortest undirected path between two entities,
// or nil when no path exists
func (s *MemoryStore) ShortestPath(ctx context.Context, fromID, toID string) (*knowledge.Path, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[fromID]; !ok {
		return nil, nil
	}
	if _, ok := s.nodes[toID]; !ok {
		return nil, nil
	}
	if fromID == toID {
		return &knowledge.Path{EntityIDs: []string{fromID}, Length: 0}, nil
	}

	parents := map[string]string{fromID: ""}
	frontier := []string{fromID}
	for len(frontier) > 0 {
		var next []string
		for _, current := range frontier {
			for _, neighbor := range s.neighborsLocked(current) {
				if _, seen := parents[neighbor]; seen {
					continue
				}
				parents[neighbor] = current
				if neighbor == toID {
					return buildPath(parents, fromID, toID), nil
				}
				next = append(next, neighbor)
			}
		}
		frontier = next
	}

	return nil, nil
}

// DeleteEntity detaches and removes the node and all incident edges
func (s *MemoryStore) DeleteEntity(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.nodes, id)
	for key := range s.edges {
		if key.from == id || key.to == id {
			delete(s.edges, key)
		}
	}
	return nil
}

// Degree returns the number of edges incident to the entity
func (s *MemoryStore) Degree(ctx context.Context, id string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for key := range s.edges {
		if key.from == id || key.to == id {
			count++
		}
	}
	return count, nil
}

// ClusteringCoefficient returns the fraction of the entity's neighbor pairs
// that are themselves connected, in [0, 1]
func (s *MemoryStore) ClusteringCoefficient(ctx context.Context, id string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	neighbors := s.neighborsLocked(id)
	k := len(neighbors)
	if k < 2 {
		return 0, nil
	}

	links := 0
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			if s.connectedLocked(neighbors[i], neighbors[j]) {
				links++
			}
		}
	}

	return float64(2*links) / float64(k*(k-1)), nil
}

// RankInfluence ranks entities by the sum of their incident edge weights
func (s *MemoryStore) RankInfluence(ctx context.Context, limit int) ([]knowledge.InfluenceScore, error) {
	if limit < 1 {
		limit = 10
	}

	s.mu.RLock()
	totals := make(map[string]float64)
	for key, rel := range s.edges {
		totals[key.from] += rel.Weight
		totals[key.to] += rel.Weight
	}
	s.mu.RUnlock()

	scores := make([]knowledge.InfluenceScore, 0, len(totals))
	for id, score := range totals {
		scores = append(scores, knowledge.InfluenceScore{EntityID: id, Score: score})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].EntityID < scores[j].EntityID
	})

	if len(scores) > limit {
		scores = scores[:limit]
	}
	return scores, nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

// neighborsLocked returns the distinct undirected neighbors of a node.
// Callers must hold at least a read lock.
func (s *MemoryStore) neighborsLocked(id string) []string {
	seen := make(map[string]bool)
	var neighbors []string
	for key := range s.edges {
		var other string
		switch id {
		case key.from:
			other = key.to
		case key.to:
			other = key.from
		default:
			continue
		}
		if !seen[other] {
			seen[other] = true
			neighbors = append(neighbors, other)
		}
	}
	sort.Strings(neighbors)
	return neighbors
}

func (s *MemoryStore) connectedLocked(a, b string) bool {
	for key := range s.edges {
		if (key.from == a && key.to == b) || (key.from == b && key.to == a) {
			return true
		}
	}
	return false
}

func buildPath(parents map[string]string, fromID, toID string) *knowledge.Path {
	var reversed []string
	for current := toID; current != ""; current = parents[current] {
		reversed = append(reversed, current)
		if current == fromID {
			break
		}
	}

	ids := make([]string, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		ids = append(ids, reversed[i])
	}
	return &knowledge.Path{EntityIDs: ids, Length: len(ids) - 1}
}
