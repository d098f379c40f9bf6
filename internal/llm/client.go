// Package llm wraps the chat-completion provider behind a small client
// interface, with shared rate limiting and reply-JSON extraction.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/palate-labs/palate/internal/config"
	"github.com/palate-labs/palate/internal/domain"
	"github.com/palate-labs/palate/internal/metrics"
)

// Request is one chat-completion call. Component names the caller for
// metrics and logs. Model overrides the client default when set.
type Request struct {
	Component   string
	Model       string
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// Client issues chat completions.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// OpenAI is the production Client over the OpenAI-compatible API.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
	limiter     *Limiter
	log         *zap.Logger
}

// NewOpenAI builds the chat client from config. The limiter is shared by
// every pipeline component that talks to the model.
func NewOpenAI(cfg config.LLMConfig, limiter *Limiter, log *zap.Logger) *OpenAI {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAI{
		client:      openai.NewClientWithConfig(apiCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		limiter:     limiter,
		log:         log,
	}
}

// Complete sends one system+user exchange and returns the reply text.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	model := req.Model
	if model == "" {
		model = o.model
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = o.temperature
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
	})
	elapsed := time.Since(start)
	metrics.LLMRequestDuration.WithLabelValues(req.Component, model).Observe(elapsed.Seconds())

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(req.Component, model, "error").Inc()
		o.log.Warn("chat completion failed",
			zap.String("component", req.Component),
			zap.String("model", model),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return "", parseAPIError(err)
	}
	metrics.LLMRequestsTotal.WithLabelValues(req.Component, model, "success").Inc()
	metrics.LLMTokensTotal.WithLabelValues(req.Component, model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.LLMTokensTotal.WithLabelValues(req.Component, model, "completion").Add(float64(resp.Usage.CompletionTokens))

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", domain.ErrMalformedResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// parseAPIError maps provider errors onto the domain sentinel so callers
// can trigger their deterministic fallbacks with errors.Is.
func parseAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d: %s", domain.ErrLLMProviderError, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: status %d: %v", domain.ErrLLMProviderError, reqErr.HTTPStatusCode, reqErr.Err)
	}
	return fmt.Errorf("%w: %v", domain.ErrLLMProviderError, err)
}
