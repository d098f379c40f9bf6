// Package openai provides the query embedder over the OpenAI-compatible
// embeddings API.
package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/palate-labs/palate/internal/config"
	"github.com/palate-labs/palate/internal/domain"
	"github.com/palate-labs/palate/internal/llm"
	"github.com/palate-labs/palate/internal/metrics"
)

// embeddingAPI is the slice of the OpenAI client the embedder uses.
type embeddingAPI interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Embedder turns query text into vectors. Embedding calls draw from the
// same rate limiter as the chat calls so the provider quota holds across
// every model call the service makes.
type Embedder struct {
	client     embeddingAPI
	limiter    *llm.Limiter
	model      string
	dimensions int
	log        *zap.Logger
}

// NewEmbedder builds the embedder from config. limiter may be nil.
func NewEmbedder(cfg config.EmbeddingConfig, limiter *llm.Limiter, log *zap.Logger) *Embedder {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Embedder{
		client:     openai.NewClientWithConfig(apiCfg),
		limiter:    limiter,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		log:        log,
	}
}

// Embed returns the embedding vector for one query string.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty input", domain.ErrEmbeddingProviderError)
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dimensions,
	})
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.model, "error").Inc()
		e.log.Warn("embedding request failed", zap.String("model", e.model), zap.Error(err))
		return nil, parseAPIError(err)
	}
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.model, "success").Inc()

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: empty embedding response", domain.ErrEmbeddingProviderError)
	}
	return resp.Data[0].Embedding, nil
}

func parseAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d: %s", domain.ErrEmbeddingProviderError, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: status %d: %v", domain.ErrEmbeddingProviderError, reqErr.HTTPStatusCode, reqErr.Err)
	}
	return fmt.Errorf("%w: %v", domain.ErrEmbeddingProviderError, err)
}
