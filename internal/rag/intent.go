package rag

import "strings"

// commercialTerms are the lexical markers of purchase intent in a query
var commercialTerms = []string{
	"buy", "purchase", "order", "price", "cost", "cheap", "cheapest",
	"deal", "discount", "sale", "afford", "shop", "shopping",
}

// wordCutset strips the punctuation that clings to tokenized words
const wordCutset = ".,!?;:\"'()[]"

// CommercialIntent scores how strongly a text signals purchase intent,
// in [0, 1]. One marker yields 0.5, two or more saturate at 1.
func CommercialIntent(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	hits := 0
	for _, w := range words {
		trimmed := strings.Trim(w, wordCutset)
		for _, term := range commercialTerms {
			if trimmed == term {
				hits++
				break
			}
		}
	}

	switch {
	case hits == 0:
		return 0
	case hits == 1:
		return 0.5
	default:
		return 1
	}
}

// KeywordOverlap is the fraction of query terms found in the content,
// case-insensitively, in [0, 1]
func KeywordOverlap(query, content string) float64 {
	lc := strings.ToLower(content)
	total, matched := 0, 0
	for _, w := range strings.Fields(strings.ToLower(query)) {
		term := strings.Trim(w, wordCutset)
		if term == "" {
			continue
		}
		total++
		if strings.Contains(lc, term) {
			matched++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total)
}
