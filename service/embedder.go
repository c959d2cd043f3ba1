package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
)

const (
	embeddingModelName = "embedding-001"
	embeddingBatchSize = 100
)

// GeminiEmbedder maps batches of text to fixed-dimension vectors using the
// Gemini embedding API. Successive batches within one call are paced by a
// rate limiter; concurrent calls are not coordinated with each other.
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	batchSize int
	limiter   *rate.Limiter
}

// GeminiEmbedderOption is a functional option for GeminiEmbedder
type GeminiEmbedderOption func(*GeminiEmbedder)

// EmbedderWithBatchSize sets the number of texts sent per batch call
func EmbedderWithBatchSize(n int) GeminiEmbedderOption {
	return func(e *GeminiEmbedder) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// EmbedderWithLimiter sets the pacing policy between batch calls
func EmbedderWithLimiter(limiter *rate.Limiter) GeminiEmbedderOption {
	return func(e *GeminiEmbedder) {
		e.limiter = limiter
	}
}

// NewGeminiEmbedder creates a new Gemini embedder. The default pacing allows
// one batch per second.
func NewGeminiEmbedder(client *genai.Client, opts ...GeminiEmbedderOption) *GeminiEmbedder {
	e := &GeminiEmbedder{
		client:    client,
		model:     embeddingModelName,
		batchSize: embeddingBatchSize,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EmbedDocuments embeds chunk texts in document mode, returning one vector
// per text in input order. A batch response with a mismatched vector count
// is a hard failure; nothing is retried.
func (e *GeminiEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	em := e.client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalDocument

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		}

		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := em.NewBatch()
		for _, text := range texts[start:end] {
			batch.AddContent(genai.Text(text))
		}

		resp, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("%w: sent %d texts, got %d vectors",
				ErrEmbeddingFailed, end-start, len(resp.Embeddings))
		}

		for _, embedding := range resp.Embeddings {
			vectors = append(vectors, embedding.Values)
		}
	}

	return vectors, nil
}

// EmbedQuery embeds a single query string in query mode.
func (e *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	em := e.client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalQuery

	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", ErrEmbeddingFailed)
	}

	return resp.Embedding.Values, nil
}
