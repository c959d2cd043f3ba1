package repository

import (
	"context"

	"policyrag-backend/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentRepository handles database operations for indexed documents
type DocumentRepository struct {
	db *pgxpool.Pool
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create creates a new document record
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (
			id, name, source_type, source, storage_path, chunk_count
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRow(
		ctx, query,
		doc.ID,
		doc.Name,
		doc.SourceType,
		doc.Source,
		doc.StoragePath,
		doc.ChunkCount,
	).Scan(&doc.CreatedAt)

	return err
}

// GetByID retrieves a document record by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	doc := &models.Document{}
	query := `
		SELECT id, name, source_type, source, storage_path, chunk_count, created_at
		FROM documents
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.Name,
		&doc.SourceType,
		&doc.Source,
		&doc.StoragePath,
		&doc.ChunkCount,
		&doc.CreatedAt,
	)

	if err != nil {
		return nil, err
	}

	return doc, nil
}

// List retrieves all document records, newest first
func (r *DocumentRepository) List(ctx context.Context) ([]*models.Document, error) {
	query := `
		SELECT id, name, source_type, source, storage_path, chunk_count, created_at
		FROM documents
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc := &models.Document{}
		err := rows.Scan(
			&doc.ID,
			&doc.Name,
			&doc.SourceType,
			&doc.Source,
			&doc.StoragePath,
			&doc.ChunkCount,
			&doc.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// CountByName returns how many indexed documents share a source name.
// Re-indexing the same name is allowed and produces a new document ID;
// this only supports skip checks in bulk tooling.
func (r *DocumentRepository) CountByName(ctx context.Context, name string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM documents WHERE name = $1", name,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
