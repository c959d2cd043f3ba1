package service

import "errors"

// Pipeline error kinds. Handlers map these to HTTP status codes; everything
// here surfaces as a 500 with the underlying message.
var (
	ErrLoaderFailed     = errors.New("document loader failed")
	ErrChunkerFailed    = errors.New("document chunker failed")
	ErrEmbeddingFailed  = errors.New("failed to generate embedding")
	ErrStoreFailed      = errors.New("chunk store operation failed")
	ErrGenerationFailed = errors.New("failed to generate content")
)
