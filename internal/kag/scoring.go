package kag

import (
	"math"

	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
	"github.com/harbouli/ai-ecommerce-sub000/internal/vector"
)

// SimilarityEdgeThreshold is the minimum score that creates a SimilarTo edge
const SimilarityEdgeThreshold = 0.6

// FeatureEdgeThreshold is the minimum tag overlap that creates a tag-overlap edge
const FeatureEdgeThreshold = 0.3

// Per-factor weights of the similarity score
const (
	categoryWeight = 0.4
	brandWeight    = 0.3
	priceWeight    = 0.2
	vectorWeight   = 0.1
)

// CalculateSimilarityScore computes a weighted average over the applicable
// factors: same-category match, same-brand match, price closeness and vector
// cosine similarity. Factors missing on either entity do not dilute the
// score; the sum is divided by the weight of the factors that applied.
func CalculateSimilarityScore(a, b *knowledge.Entity) float64 {
	var score, applied float64

	if catA, catB := knowledge.NormalizeName(a.Category()), knowledge.NormalizeName(b.Category()); catA != "" && catB != "" {
		applied += categoryWeight
		if catA == catB {
			score += categoryWeight
		}
	}

	if brandA, brandB := knowledge.NormalizeName(a.Brand()), knowledge.NormalizeName(b.Brand()); brandA != "" && brandB != "" {
		applied += brandWeight
		if brandA == brandB {
			score += brandWeight
		}
	}

	if priceA, okA := a.Price(); okA {
		if priceB, okB := b.Price(); okB {
			avg := (priceA + priceB) / 2
			if avg > 0 {
				applied += priceWeight
				closeness := math.Max(0, 1-math.Abs(priceA-priceB)/avg)
				score += closeness * priceWeight
			}
		}
	}

	if len(a.Vector) > 0 && len(b.Vector) > 0 {
		applied += vectorWeight
		cos := vector.CosineSimilarity(a.Vector, b.Vector)
		if cos > 0 {
			score += cos * vectorWeight
		}
	}

	if applied == 0 {
		return 0
	}
	return score / applied
}

// TagOverlap returns |common| / max(|a|, |b|) over normalized tags
func TagOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(a))
	for _, tag := range a {
		if n := knowledge.NormalizeName(tag); n != "" {
			setA[n] = true
		}
	}

	setB := make(map[string]bool, len(b))
	common := 0
	for _, tag := range b {
		n := knowledge.NormalizeName(tag)
		if n == "" || setB[n] {
			continue
		}
		setB[n] = true
		if setA[n] {
			common++
		}
	}

	larger := len(setA)
	if len(setB) > larger {
		larger = len(setB)
	}
	if larger == 0 {
		return 0
	}
	return float64(common) / float64(larger)
}
