package repository

import (
	"context"
	"fmt"

	"policyrag-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// embeddingDimensions matches the Gemini embedding-001 output size and the
// vector(768) column in the policy_chunks table.
const embeddingDimensions = 768

// ChunkRepository handles database operations for document chunks
type ChunkRepository struct {
	db *pgxpool.Pool
}

// NewChunkRepository creates a new chunk repository
func NewChunkRepository(db *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// Insert stores all chunks of a document in a single batch. Chunk IDs are
// expected to carry the document order ("{document_id}_{index}").
func (r *ChunkRepository) Insert(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for _, chunk := range chunks {
		if len(chunk.Embedding) != embeddingDimensions {
			return fmt.Errorf("chunk %s: embedding must be %d dimensions, got %d",
				chunk.ID, embeddingDimensions, len(chunk.Embedding))
		}
	}

	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		batch.Queue(`
			INSERT INTO policy_chunks (id, document_id, chunk_index, chunk_text, embedding)
			VALUES ($1, $2, $3, $4, $5)`,
			chunk.ID,
			chunk.DocumentID,
			chunk.Index,
			chunk.Text,
			pgvector.NewVector(chunk.Embedding),
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	return nil
}

// Search returns up to limit chunks ordered by cosine distance to the query
// embedding. An empty documentID searches across all documents.
func (r *ChunkRepository) Search(
	ctx context.Context,
	embedding []float32,
	limit int,
	documentID string,
) ([]models.Chunk, error) {
	if len(embedding) != embeddingDimensions {
		return nil, fmt.Errorf("embedding must be %d dimensions, got %d",
			embeddingDimensions, len(embedding))
	}

	var query string
	var args []interface{}
	if documentID == "" {
		query = `
			SELECT id, document_id, chunk_index, chunk_text, embedding <=> $1 AS distance
			FROM policy_chunks
			ORDER BY embedding <=> $1
			LIMIT $2`
		args = []interface{}{pgvector.NewVector(embedding), limit}
	} else {
		query = `
			SELECT id, document_id, chunk_index, chunk_text, embedding <=> $1 AS distance
			FROM policy_chunks
			WHERE document_id = $2
			ORDER BY embedding <=> $1
			LIMIT $3`
		args = []interface{}{pgvector.NewVector(embedding), documentID, limit}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var chunk models.Chunk
		err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.Index,
			&chunk.Text,
			&chunk.Distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunks: %w", err)
	}

	return chunks, nil
}

// CountByDocumentID returns the number of stored chunks for a document.
func (r *ChunkRepository) CountByDocumentID(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM policy_chunks WHERE document_id = $1", documentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}
