package knowledge

import (
	apperrors "github.com/harbouli/ai-ecommerce-sub000/pkg/errors"
)

// ValidateEntity checks an entity before it reaches the record store
func ValidateEntity(e *Entity) error {
	if e == nil {
		return apperrors.NewValidation("entity", "must not be nil")
	}
	if !e.Type.Valid() {
		return apperrors.NewValidation("entity.type", "unknown entity type "+string(e.Type))
	}
	if e.Name == "" {
		return apperrors.NewValidation("entity.name", "must not be empty")
	}
	return nil
}

// ValidateRelationship checks an edge before it reaches the relationship store
func ValidateRelationship(r *Relationship) error {
	if r == nil {
		return apperrors.NewValidation("relationship", "must not be nil")
	}
	if r.FromID == "" {
		return apperrors.NewValidation("relationship.from_entity_id", "must not be empty")
	}
	if r.ToID == "" {
		return apperrors.NewValidation("relationship.to_entity_id", "must not be empty")
	}
	if r.FromID == r.ToID {
		return apperrors.NewValidation("relationship", "must not be a self loop")
	}
	if !r.Type.Valid() {
		return apperrors.NewValidation("relationship.type", "unknown relationship type "+string(r.Type))
	}
	if r.Weight < 0 {
		return apperrors.NewValidation("relationship.weight", "must not be negative")
	}
	return nil
}
