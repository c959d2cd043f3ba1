package models

import "time"

// Document source types
const (
	SourceTypeURL    = "url"
	SourceTypeUpload = "upload"
)

// Document records one indexed document. The ID is generated at index time
// ("{stem}-{6 hex chars}") and scopes all of the document's chunks.
type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	SourceType  string    `json:"source_type"` // "url" or "upload"
	Source      string    `json:"source"`
	StoragePath *string   `json:"storage_path,omitempty"`
	ChunkCount  int       `json:"chunk_count"`
	CreatedAt   time.Time `json:"created_at"`
}
