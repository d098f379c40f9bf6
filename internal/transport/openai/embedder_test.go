package openai

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/palate-labs/palate/internal/domain"
	"github.com/palate-labs/palate/internal/llm"
)

type fakeEmbeddingAPI struct {
	resp  openai.EmbeddingResponse
	err   error
	calls int
}

func (f *fakeEmbeddingAPI) CreateEmbeddings(context.Context, openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	f.calls++
	return f.resp, f.err
}

func testEmbedder(api embeddingAPI, limiter *llm.Limiter) *Embedder {
	return &Embedder{
		client:     api,
		limiter:    limiter,
		model:      "text-embedding-3-small",
		dimensions: 512,
		log:        zap.NewNop(),
	}
}

func TestEmbedReturnsVector(t *testing.T) {
	api := &fakeEmbeddingAPI{resp: openai.EmbeddingResponse{
		Data: []openai.Embedding{{Embedding: []float32{0.1, 0.2}}},
	}}
	e := testEmbedder(api, nil)

	vec, err := e.Embed(context.Background(), "veg biryani")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 2 || api.calls != 1 {
		t.Fatalf("vec = %v, calls = %d", vec, api.calls)
	}
}

func TestEmbedRejectsEmptyInput(t *testing.T) {
	api := &fakeEmbeddingAPI{}
	e := testEmbedder(api, nil)

	_, err := e.Embed(context.Background(), "")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("err = %v", err)
	}
	if api.calls != 0 {
		t.Fatalf("calls = %d, want none", api.calls)
	}
}

func TestEmbedWrapsProviderError(t *testing.T) {
	api := &fakeEmbeddingAPI{err: &openai.APIError{HTTPStatusCode: 429, Message: "quota"}}
	e := testEmbedder(api, nil)

	_, err := e.Embed(context.Background(), "anything")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("err = %v", err)
	}
}

func TestEmbedHonorsRateLimiter(t *testing.T) {
	api := &fakeEmbeddingAPI{resp: openai.EmbeddingResponse{
		Data: []openai.Embedding{{Embedding: []float32{0.1}}},
	}}
	// A one-per-minute budget: the first call drains it, the second must
	// block until the context gives up.
	limiter := llm.NewLimiter(1)
	e := testEmbedder(api, limiter)

	if _, err := e.Embed(context.Background(), "first"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Embed(ctx, "second")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if api.calls != 1 {
		t.Fatalf("calls = %d, limited call must not reach the API", api.calls)
	}
}
