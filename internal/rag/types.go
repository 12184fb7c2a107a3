package rag

import (
	"time"

	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
)

// Context is one retrieved snippet ready to be injected into a prompt.
// Key identifies the snippet for dedup purposes; Source names the retrieval
// channel that produced it. Category and Brand carry the entity's own
// properties so score fusion never has to re-parse the rendered content.
type Context struct {
	Key       string    `json:"key"`
	Content   string    `json:"content"`
	Score     float64   `json:"score"`
	Source    string    `json:"source"`
	EntityID  string    `json:"entity_id,omitempty"`
	Category  string    `json:"category,omitempty"`
	Brand     string    `json:"brand,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Retrieval sources
const (
	SourceSemantic = "semantic"
	SourceKeyword  = "keyword"
	SourceGraph    = "graph"
)

// UserProfile carries the preferences used for personalization boosts
type UserProfile struct {
	UserID              string   `json:"user_id"`
	PreferredCategories []string `json:"preferred_categories,omitempty"`
	PreferredBrands     []string `json:"preferred_brands,omitempty"`
}

// PrefersCategory reports whether the category is among the user's preferred
func (p *UserProfile) PrefersCategory(category string) bool {
	return containsNormalized(p.PreferredCategories, category)
}

// PrefersBrand reports whether the brand is among the user's preferred
func (p *UserProfile) PrefersBrand(brand string) bool {
	return containsNormalized(p.PreferredBrands, brand)
}

func containsNormalized(haystack []string, needle string) bool {
	n := knowledge.NormalizeName(needle)
	if n == "" {
		return false
	}
	for _, candidate := range haystack {
		if knowledge.NormalizeName(candidate) == n {
			return true
		}
	}
	return false
}
