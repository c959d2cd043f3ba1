package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"policyrag-backend/models"
)

// Generator produces free-form text from a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const (
	retrievalLimit   = 5
	contextDelimiter = "\n\n---\n\n"
)

const adjudicationPromptTemplate = `You are an expert Insurance Claims Adjudicator. Analyze the user's question based *only* on the provided document excerpts. Your final output must be a single, valid JSON object with "decision", "amount", and "justification" keys. CONTEXT: %s --- USER QUESTION: %s --- JSON RESPONSE:`

// Fixed fallback decisions for the two locally recovered failure modes.
var (
	decisionNotFound = models.Decision{
		Decision:      "Not Found",
		Amount:        0,
		Justification: "Could not find any relevant information in the specified document(s).",
	}
	decisionParseError = models.Decision{
		Decision:      "Error",
		Amount:        0,
		Justification: "The AI returned a response that could not be formatted as valid JSON.",
	}
)

// QueryService orchestrates query embedding, chunk retrieval, prompt assembly
// and decision parsing. Every query is stateless and independent.
type QueryService struct {
	embedder   Embedder
	chunkStore ChunkStore
	generator  Generator
}

// QueryServiceOption is a functional option for QueryService
type QueryServiceOption func(*QueryService)

// QueryWithEmbedder sets the embedder
func QueryWithEmbedder(embedder Embedder) QueryServiceOption {
	return func(s *QueryService) {
		s.embedder = embedder
	}
}

// QueryWithChunkStore sets the chunk store
func QueryWithChunkStore(store ChunkStore) QueryServiceOption {
	return func(s *QueryService) {
		s.chunkStore = store
	}
}

// QueryWithGenerator sets the generative model
func QueryWithGenerator(generator Generator) QueryServiceOption {
	return func(s *QueryService) {
		s.generator = generator
	}
}

// NewQueryService creates a new query service
func NewQueryService(opts ...QueryServiceOption) *QueryService {
	s := &QueryService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query returns a Decision for a natural-language question, optionally
// restricted to one document. Failures before retrieval propagate; empty
// retrieval and unparseable model output are recovered into sentinel
// decisions.
func (s *QueryService) Query(ctx context.Context, userRequest, documentID string) (*models.Decision, error) {
	if s.embedder == nil {
		return nil, errors.New("embedder not set")
	}
	if s.chunkStore == nil {
		return nil, errors.New("chunk store not set")
	}
	if s.generator == nil {
		return nil, errors.New("generator not set")
	}

	embedding, err := s.embedder.EmbedQuery(ctx, userRequest)
	if err != nil {
		return nil, err
	}

	chunks, err := s.chunkStore.Search(ctx, embedding, retrievalLimit, documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}

	if len(chunks) == 0 {
		decision := decisionNotFound
		return &decision, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	prompt := fmt.Sprintf(adjudicationPromptTemplate,
		strings.Join(texts, contextDelimiter), userRequest)

	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	decision, err := parseDecision(raw)
	if err != nil {
		log.Printf("Could not parse model response as JSON: %v", err)
		fallback := decisionParseError
		return &fallback, nil
	}

	return decision, nil
}

// parseDecision strips Markdown code fences from the model output and parses
// the remainder as a Decision.
func parseDecision(raw string) (*models.Decision, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var decision models.Decision
	if err := json.Unmarshal([]byte(cleaned), &decision); err != nil {
		return nil, err
	}
	return &decision, nil
}
