package models

// Chunk represents one embedded text segment of an indexed document.
// The chunk ID is "{document_id}_{index}", assigned in chunking order.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Index      int       `json:"index"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"-"`
	Distance   float64   `json:"distance,omitempty"` // Vector similarity distance
}
