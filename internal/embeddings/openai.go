package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
	apperrors "github.com/harbouli/ai-ecommerce-sub000/pkg/errors"
	"github.com/harbouli/ai-ecommerce-sub000/pkg/logger"
	"go.uber.org/zap"
)

const providerName = "openai"

// OpenAIEmbedder converts text to vectors through an OpenAI-compatible
// embeddings endpoint. Rate-limit rejections are retried with backoff and
// surface as transient upstream-provider errors when retries are exhausted.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	maxRetries int
	logger     *zap.Logger
}

// NewOpenAIEmbedder creates an embedder against baseURL (any OpenAI-compatible
// gateway works; the API key may be a placeholder for local gateways)
func NewOpenAIEmbedder(baseURL, apiKey, model string, dimensions int) *OpenAIEmbedder {
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(config),
		model:      model,
		dimensions: dimensions,
		maxRetries: 3,
		logger:     logger.Get(),
	}
}

// Embed returns the embedding for a single text
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) (*knowledge.EmbeddingResult, error) {
	results, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, apperrors.NewUpstreamProvider(providerName, false, fmt.Errorf("no embedding in response"))
	}
	return results[0], nil
}

// EmbedBatch returns one embedding per input text, in input order
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]*knowledge.EmbeddingResult, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	var resp openai.EmbeddingResponse
	var err error
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			e.logger.Warn("Retrying embedding request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err = e.client.CreateEmbeddings(ctx, req)
		if err == nil {
			break
		}

		e.logger.Error("Embedding request failed",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.String("model", e.model),
		)

		if !isTransient(err) {
			return nil, apperrors.NewUpstreamProvider(providerName, false, err)
		}
	}
	if err != nil {
		return nil, apperrors.NewUpstreamProvider(providerName, isRateLimit(err),
			fmt.Errorf("embedding failed after %d attempts: %w", e.maxRetries, err))
	}

	if len(resp.Data) != len(texts) {
		return nil, apperrors.NewUpstreamProvider(providerName, false,
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	results := make([]*knowledge.EmbeddingResult, len(resp.Data))
	for i, data := range resp.Data {
		results[i] = &knowledge.EmbeddingResult{
			Vector:     data.Embedding,
			Dimensions: len(data.Embedding),
			Model:      string(resp.Model),
		}
	}
	return results, nil
}

func isRateLimit(err error) bool {
	var apiErr *openai.APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429
}

func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	// Network-level failures are worth one more attempt
	return true
}
