package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
	"github.com/harbouli/ai-ecommerce-sub000/pkg/logger"
)

// Boost caps of the score fusion. The fused score never exceeds 1.
const (
	personalizationBoostMax = 0.2
	commercialBoostMax      = 0.1
	recencyBoostMax         = 0.05
	lengthBoostMax          = 0.02

	recencyWindow    = 30 * 24 * time.Hour
	lengthSaturation = 500

	graphBaseScore = 0.4
)

// Searcher is the retrieval surface the engine pulls context from. The
// hybrid repository satisfies it.
type Searcher interface {
	SemanticSearch(ctx context.Context, text string, limit int) ([]knowledge.ScoredEntity, error)
	FindByName(ctx context.Context, pattern string) ([]*knowledge.Entity, error)
	FindRelated(ctx context.Context, id string, hops int) ([]knowledge.RelatedEntity, error)
}

// ProfileStore resolves user profiles for personalization. A nil profile
// means no personalization boost.
type ProfileStore interface {
	Profile(ctx context.Context, userID string) (*UserProfile, error)
}

// Options tunes retrieval
type Options struct {
	// MinScore drops fused contexts scoring below it
	MinScore float64
}

// Engine retrieves knowledge context for a user query and fuses the scores
// of its retrieval channels into one ranking
type Engine struct {
	searcher Searcher
	profiles ProfileStore
	minScore float64
	logger   *zap.Logger
}

// NewEngine creates a retrieval engine. profiles may be nil when no
// personalization source exists.
func NewEngine(searcher Searcher, profiles ProfileStore, opts Options) *Engine {
	if opts.MinScore <= 0 {
		opts.MinScore = 0.3
	}
	return &Engine{
		searcher: searcher,
		profiles: profiles,
		minScore: opts.MinScore,
		logger:   logger.Get(),
	}
}

// RetrieveRelevantContext gathers context from the semantic, keyword and
// graph channels concurrently, fuses each candidate's base score with
// personalization, commercial-intent, recency and length boosts, dedups by
// content key keeping the best score, filters by the minimum score, and
// returns the top results in descending score order.
func (e *Engine) RetrieveRelevantContext(ctx context.Context, query, userID string, limit int) ([]Context, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if limit < 1 {
		limit = 5
	}

	var (
		semantic []knowledge.ScoredEntity
		keyword  []*knowledge.Entity
		wg       sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		results, err := e.searcher.SemanticSearch(ctx, query, limit*2)
		if err != nil {
			e.logger.Warn("Semantic retrieval degraded", zap.String("query", query), zap.Error(err))
			return
		}
		semantic = results
	}()
	go func() {
		defer wg.Done()
		results, err := e.searcher.FindByName(ctx, query)
		if err != nil {
			e.logger.Warn("Keyword retrieval degraded", zap.String("query", query), zap.Error(err))
			return
		}
		keyword = results
	}()
	wg.Wait()

	candidates := make([]Context, 0, len(semantic)+len(keyword))
	for _, hit := range semantic {
		candidates = append(candidates, entityContext(hit.Entity, hit.Score, SourceSemantic))
	}
	for _, entity := range keyword {
		c := entityContext(entity, 0, SourceKeyword)
		c.Score = KeywordOverlap(query, c.Content)
		candidates = append(candidates, c)
	}
	candidates = append(candidates, e.graphContexts(ctx, semantic)...)

	profile := e.lookupProfile(ctx, userID)
	intent := CommercialIntent(query)

	now := time.Now().UTC()
	best := make(map[string]Context, len(candidates))
	for _, c := range candidates {
		c.Score = fuseScore(c, profile, intent, now)
		if c.Score < e.minScore {
			continue
		}
		if existing, ok := best[c.Key]; !ok || c.Score > existing.Score {
			best[c.Key] = c
		}
	}

	results := make([]Context, 0, len(best))
	for _, c := range best {
		results = append(results, c)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Key < results[j].Key
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// graphContexts expands the strongest semantic hits one hop into the graph
func (e *Engine) graphContexts(ctx context.Context, semantic []knowledge.ScoredEntity) []Context {
	const expandTop = 3

	var contexts []Context
	for i, hit := range semantic {
		if i >= expandTop {
			break
		}
		related, err := e.searcher.FindRelated(ctx, hit.Entity.ID, 1)
		if err != nil {
			e.logger.Warn("Graph retrieval degraded",
				zap.String("entity_id", hit.Entity.ID),
				zap.Error(err),
			)
			continue
		}
		for _, re := range related {
			contexts = append(contexts, entityContext(re.Entity, graphBaseScore, SourceGraph))
		}
	}
	return contexts
}

func (e *Engine) lookupProfile(ctx context.Context, userID string) *UserProfile {
	if e.profiles == nil || userID == "" {
		return nil
	}
	profile, err := e.profiles.Profile(ctx, userID)
	if err != nil {
		e.logger.Warn("Profile lookup failed, skipping personalization",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil
	}
	return profile
}

// entityContext renders an entity as a context snippet keyed by its content
func entityContext(entity *knowledge.Entity, score float64, source string) Context {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s", entity.Type, entity.Name))
	if entity.Description != "" {
		sb.WriteString(" - ")
		sb.WriteString(entity.Description)
	}
	if price, ok := entity.Price(); ok {
		sb.WriteString(fmt.Sprintf(" (price: %.2f)", price))
	}
	if category := entity.Category(); category != "" {
		sb.WriteString(fmt.Sprintf(" [category: %s]", category))
	}
	if brand := entity.Brand(); brand != "" {
		sb.WriteString(fmt.Sprintf(" [brand: %s]", brand))
	}

	content := sb.String()
	return Context{
		Key:       knowledge.NormalizeName(content),
		Content:   content,
		Score:     score,
		Source:    source,
		EntityID:  entity.ID,
		Category:  entity.Category(),
		Brand:     entity.Brand(),
		CreatedAt: entity.UpdatedAt,
	}
}

// fuseScore combines the base retrieval score with the boosts, capped at 1
func fuseScore(c Context, profile *UserProfile, intent float64, now time.Time) float64 {
	score := c.Score

	if profile != nil {
		if profile.PrefersCategory(c.Category) {
			score += personalizationBoostMax
		} else if profile.PrefersBrand(c.Brand) {
			score += personalizationBoostMax / 2
		}
	}

	if intent > 0 {
		if candidateIntent := CommercialIntent(c.Content); candidateIntent > 0 {
			score += commercialBoostMax * intent * candidateIntent
		}
	}

	if !c.CreatedAt.IsZero() {
		age := now.Sub(c.CreatedAt)
		if age < 0 {
			age = 0
		}
		if age < recencyWindow {
			score += recencyBoostMax * (1 - float64(age)/float64(recencyWindow))
		}
	}

	length := float64(len(c.Content)) / lengthSaturation
	if length > 1 {
		length = 1
	}
	score += lengthBoostMax * length

	if score > 1 {
		score = 1
	}
	return score
}
