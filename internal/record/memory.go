package record

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
	apperrors "github.com/harbouli/ai-ecommerce-sub000/pkg/errors"
)

// MemoryStore is an in-memory RecordStore with the same semantics as the
// SQLite implementation. Entities live in an arena keyed by id; callers
// always receive copies, never shared references.
type MemoryStore struct {
	mu       sync.RWMutex
	entities map[string]*knowledge.Entity
}

// NewMemoryStore creates an empty in-memory record store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entities: make(map[string]*knowledge.Entity)}
}

// Create inserts a new entity, assigning an id when none is supplied
func (s *MemoryStore) Create(ctx context.Context, entity *knowledge.Entity) (*knowledge.Entity, error) {
	if err := knowledge.ValidateEntity(entity); err != nil {
		return nil, err
	}

	e := entity.Clone()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entities[e.ID]; exists {
		return nil, apperrors.NewValidation("entity.id", fmt.Sprintf("id already exists: %s", e.ID))
	}
	s.entities[e.ID] = e.Clone()
	return e, nil
}

// FindByID returns the entity or a typed not-found error
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*knowledge.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return nil, apperrors.NewEntityNotFound(id)
	}
	return e.Clone(), nil
}

// FindByType returns all entities of a type, ordered by name
func (s *MemoryStore) FindByType(ctx context.Context, entityType knowledge.EntityType) ([]*knowledge.Entity, error) {
	return s.filter(func(e *knowledge.Entity) bool {
		return e.Type == entityType
	}), nil
}

// FindByName returns entities whose name or description contains the
// pattern, case-insensitively, ordered by name
func (s *MemoryStore) FindByName(ctx context.Context, pattern string) ([]*knowledge.Entity, error) {
	needle := strings.ToLower(pattern)
	return s.filter(func(e *knowledge.Entity) bool {
		return strings.Contains(strings.ToLower(e.Name), needle) ||
			strings.Contains(strings.ToLower(e.Description), needle)
	}), nil
}

// FindByProperties returns entities whose property map contains every
// filter entry, ordered by name
func (s *MemoryStore) FindByProperties(ctx context.Context, filter map[string]string) ([]*knowledge.Entity, error) {
	return s.filter(func(e *knowledge.Entity) bool {
		return matchesProperties(e, filter)
	}), nil
}

// Update applies a partial patch; a missing id yields a typed not-found error
func (s *MemoryStore) Update(ctx context.Context, id string, patch knowledge.EntityPatch) (*knowledge.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[id]
	if !ok {
		return nil, apperrors.NewEntityNotFound(id)
	}

	if patch.Name != nil {
		e.Name = *patch.Name
	}
	if patch.Description != nil {
		e.Description = *patch.Description
	}
	if len(patch.Properties) > 0 {
		if e.Properties == nil {
			e.Properties = make(map[string]string, len(patch.Properties))
		}
		for k, v := range patch.Properties {
			e.Properties[k] = v
		}
	}
	if patch.Vector != nil {
		e.Vector = make([]float32, len(patch.Vector))
		copy(e.Vector, patch.Vector)
	}
	e.UpdatedAt = time.Now().UTC()

	return e.Clone(), nil
}

// Delete removes an entity, reporting false (not an error) when it is absent
func (s *MemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[id]; !ok {
		return false, nil
	}
	delete(s.entities, id)
	return true, nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) filter(keep func(*knowledge.Entity) bool) []*knowledge.Entity {
	s.mu.RLock()
	var out []*knowledge.Entity
	for _, e := range s.entities {
		if keep(e) {
			out = append(out, e.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
