package knowledge

import (
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// Entity Types
// ============================================================================

// EntityType is the closed set of knowledge entity kinds
type EntityType string

const (
	EntityTypeProduct  EntityType = "Product"
	EntityTypeCategory EntityType = "Category"
	EntityTypeBrand    EntityType = "Brand"
	EntityTypeFeature  EntityType = "Feature"
	EntityTypeCustomer EntityType = "Customer"
	EntityTypeConcept  EntityType = "Concept"
)

// Valid reports whether t is a known entity type
func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeProduct, EntityTypeCategory, EntityTypeBrand,
		EntityTypeFeature, EntityTypeCustomer, EntityTypeConcept:
		return true
	}
	return false
}

// RelationshipType is the closed set of edge kinds
type RelationshipType string

const (
	RelationshipBelongsTo      RelationshipType = "BelongsTo"
	RelationshipSimilarTo      RelationshipType = "SimilarTo"
	RelationshipHasFeature     RelationshipType = "HasFeature"
	RelationshipRelatedTo      RelationshipType = "RelatedTo"
	RelationshipPurchasedWith  RelationshipType = "PurchasedWith"
	RelationshipRecommendedFor RelationshipType = "RecommendedFor"
)

// Valid reports whether t is a known relationship type
func (t RelationshipType) Valid() bool {
	switch t {
	case RelationshipBelongsTo, RelationshipSimilarTo, RelationshipHasFeature,
		RelationshipRelatedTo, RelationshipPurchasedWith, RelationshipRecommendedFor:
		return true
	}
	return false
}

// MaxRelationshipWeight is the soft cap for accumulated edge weights
const MaxRelationshipWeight = 10.0

// AccumulateWeight merges a repeated relationship-creation attempt into the
// existing edge weight, honoring the soft cap
func AccumulateWeight(existing, delta float64) float64 {
	sum := existing + delta
	if sum > MaxRelationshipWeight {
		return MaxRelationshipWeight
	}
	return sum
}

// ============================================================================
// Core Records
// ============================================================================

// Entity is the knowledge record shared across all three stores.
// ID is assigned once by the record store and reused verbatim as the node id
// in the relationship store and the key in the similarity store.
type Entity struct {
	ID          string            `json:"id"`
	Type        EntityType        `json:"type"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
	Vector      []float32         `json:"vector,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Clone returns a deep copy so callers never share property maps or vectors
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	cp := *e
	if e.Properties != nil {
		cp.Properties = make(map[string]string, len(e.Properties))
		for k, v := range e.Properties {
			cp.Properties[k] = v
		}
	}
	if e.Vector != nil {
		cp.Vector = make([]float32, len(e.Vector))
		copy(cp.Vector, e.Vector)
	}
	return &cp
}

// Relationship is a typed, directed, weighted edge between two entity ids.
// Identity for dedup purposes is the (FromID, ToID, Type) tuple.
type Relationship struct {
	ID         string            `json:"id"`
	FromID     string            `json:"from_entity_id"`
	ToID       string            `json:"to_entity_id"`
	Type       RelationshipType  `json:"type"`
	Weight     float64           `json:"weight"`
	Properties map[string]string `json:"properties,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// ============================================================================
// Well-known properties
// ============================================================================

const (
	PropPrice    = "price"
	PropCategory = "category"
	PropBrand    = "brand"
	PropTags     = "tags"
	PropRating   = "rating"
	PropMentions = "mentions"
	PropActive   = "isActive"
	PropFeatured = "isFeatured"
)

// Price returns the parsed price property, false when absent or malformed
func (e *Entity) Price() (float64, bool) {
	return e.floatProp(PropPrice)
}

// Rating returns the parsed rating property, false when absent or malformed
func (e *Entity) Rating() (float64, bool) {
	return e.floatProp(PropRating)
}

// Mentions returns the mention/sales count property, zero when absent
func (e *Entity) Mentions() int {
	v, ok := e.Properties[PropMentions]
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// Tags returns the comma-separated tags property as a trimmed list
func (e *Entity) Tags() []string {
	raw, ok := e.Properties[PropTags]
	if !ok || raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Category returns the category property
func (e *Entity) Category() string {
	return e.Properties[PropCategory]
}

// Brand returns the brand property
func (e *Entity) Brand() string {
	return e.Properties[PropBrand]
}

// Active reports whether the entity carries isActive=true
func (e *Entity) Active() bool {
	return e.boolProp(PropActive)
}

// Featured reports whether the entity carries isFeatured=true
func (e *Entity) Featured() bool {
	return e.boolProp(PropFeatured)
}

func (e *Entity) floatProp(key string) (float64, bool) {
	v, ok := e.Properties[key]
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (e *Entity) boolProp(key string) bool {
	v, ok := e.Properties[key]
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// NormalizeName lowercases and collapses whitespace so categories, brands and
// feature tags deduplicate on spelling variants
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), " ")
}
