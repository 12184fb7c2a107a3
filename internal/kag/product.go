package kag

import (
	"strconv"
	"strings"

	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
)

// Product is a catalog item from the domain feed. Only ID and Name are
// required; everything else enriches the knowledge graph when present.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Brand       string   `json:"brand,omitempty"`
	Price       float64  `json:"price,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	IsActive    bool     `json:"isActive,omitempty"`
	IsFeatured  bool     `json:"isFeatured,omitempty"`
}

// EmbedText concatenates the salient text fields for the embedding provider
func (p Product) EmbedText() string {
	parts := []string{p.Name}
	if p.Description != "" {
		parts = append(parts, p.Description)
	}
	if p.Category != "" {
		parts = append(parts, p.Category)
	}
	if p.Brand != "" {
		parts = append(parts, p.Brand)
	}
	if len(p.Tags) > 0 {
		parts = append(parts, strings.Join(p.Tags, " "))
	}
	return strings.Join(parts, ". ")
}

// Entity converts the product into its knowledge-entity shape
func (p Product) Entity() *knowledge.Entity {
	props := make(map[string]string)
	if p.Category != "" {
		props[knowledge.PropCategory] = p.Category
	}
	if p.Brand != "" {
		props[knowledge.PropBrand] = p.Brand
	}
	if p.Price > 0 {
		props[knowledge.PropPrice] = strconv.FormatFloat(p.Price, 'f', -1, 64)
	}
	if len(p.Tags) > 0 {
		props[knowledge.PropTags] = strings.Join(p.Tags, ",")
	}
	props[knowledge.PropActive] = strconv.FormatBool(p.IsActive)
	props[knowledge.PropFeatured] = strconv.FormatBool(p.IsFeatured)

	return &knowledge.Entity{
		ID:          p.ID,
		Type:        knowledge.EntityTypeProduct,
		Name:        p.Name,
		Description: p.Description,
		Properties:  props,
	}
}
