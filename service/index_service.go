package service

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"policyrag-backend/models"
	"policyrag-backend/storage"

	"github.com/google/uuid"
)

// Loader converts a document source into plain text
type Loader interface {
	Load(ctx context.Context, source Source) (string, error)
}

// Chunker splits plain text into ordered chunk texts
type Chunker interface {
	Chunk(text string) ([]string, error)
}

// Embedder maps text to fixed-dimension vectors, with distinct document and
// query modes
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChunkStore persists embedded chunks and answers nearest-neighbor queries
type ChunkStore interface {
	Insert(ctx context.Context, chunks []models.Chunk) error
	Search(ctx context.Context, embedding []float32, limit int, documentID string) ([]models.Chunk, error)
}

// DocumentCatalog records indexed documents
type DocumentCatalog interface {
	Create(ctx context.Context, doc *models.Document) error
}

// IndexService orchestrates Loader -> Chunker -> Embedder -> ChunkStore for
// one document and reports the chunk count produced.
type IndexService struct {
	loader     Loader
	chunker    Chunker
	embedder   Embedder
	chunkStore ChunkStore
	documents  DocumentCatalog
	storage    storage.Storage
}

// IndexServiceOption is a functional option for IndexService
type IndexServiceOption func(*IndexService)

// IndexWithLoader sets the document loader
func IndexWithLoader(loader Loader) IndexServiceOption {
	return func(s *IndexService) {
		s.loader = loader
	}
}

// IndexWithChunker sets the chunker
func IndexWithChunker(chunker Chunker) IndexServiceOption {
	return func(s *IndexService) {
		s.chunker = chunker
	}
}

// IndexWithEmbedder sets the embedder
func IndexWithEmbedder(embedder Embedder) IndexServiceOption {
	return func(s *IndexService) {
		s.embedder = embedder
	}
}

// IndexWithChunkStore sets the chunk store
func IndexWithChunkStore(store ChunkStore) IndexServiceOption {
	return func(s *IndexService) {
		s.chunkStore = store
	}
}

// IndexWithDocumentCatalog sets the document catalog (optional)
func IndexWithDocumentCatalog(catalog DocumentCatalog) IndexServiceOption {
	return func(s *IndexService) {
		s.documents = catalog
	}
}

// IndexWithStorage sets the upload archive (optional)
func IndexWithStorage(store storage.Storage) IndexServiceOption {
	return func(s *IndexService) {
		s.storage = store
	}
}

// NewIndexService creates a new index service
func NewIndexService(opts ...IndexServiceOption) *IndexService {
	s := &IndexService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewDocumentID builds "{stem}-{6 hex chars}". Uniqueness rests on the
// random suffix alone; there is no collision check.
func NewDocumentID(stem string) string {
	id := uuid.New()
	return fmt.Sprintf("%s-%s", stem, hex.EncodeToString(id[:])[:6])
}

// StemFromFilename strips the directory and extension from a filename.
func StemFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// StemFromURL derives a human-readable stem from a URL path, with any query
// string stripped first.
func StemFromURL(rawURL string) string {
	trimmed := rawURL
	if idx := strings.Index(trimmed, "?"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if u, err := url.Parse(trimmed); err == nil {
		if u.Path != "" && u.Path != "/" {
			return StemFromFilename(path.Base(u.Path))
		}
		if u.Host != "" {
			return u.Host
		}
	}
	return StemFromFilename(path.Base(trimmed))
}

// IndexURL indexes a document fetched from a URL. Returns the generated
// document ID and the number of chunks stored.
func (s *IndexService) IndexURL(ctx context.Context, rawURL string) (string, int, error) {
	stem := StemFromURL(rawURL)
	documentID := NewDocumentID(stem)

	count, err := s.indexDocument(ctx, documentID, Source{URL: rawURL}, stem, models.SourceTypeURL, rawURL, nil)
	if err != nil {
		return "", 0, err
	}
	return documentID, count, nil
}

// IndexFile indexes a document from uploaded bytes. The raw upload is
// archived to storage first when an archive is configured; archive failures
// are logged and do not fail the request.
func (s *IndexService) IndexFile(ctx context.Context, filename string, data []byte) (string, int, error) {
	stem := StemFromFilename(filename)
	documentID := NewDocumentID(stem)

	var storagePath *string
	if s.storage != nil {
		archived, err := s.storage.Upload(ctx, documentID, filename, bytes.NewReader(data))
		if err != nil {
			log.Printf("Warning: failed to archive upload %q: %v", filename, err)
		} else {
			storagePath = &archived
		}
	}

	count, err := s.indexDocument(ctx, documentID, Source{Name: filename, Data: data}, filename, models.SourceTypeUpload, filename, storagePath)
	if err != nil {
		return "", 0, err
	}
	return documentID, count, nil
}

// indexDocument runs the pipeline for one document. Any step failure
// propagates to the caller; nothing is written before the single bulk insert.
func (s *IndexService) indexDocument(
	ctx context.Context,
	documentID string,
	source Source,
	name string,
	sourceType string,
	origin string,
	storagePath *string,
) (int, error) {
	if s.loader == nil {
		return 0, errors.New("document loader not set")
	}
	if s.chunker == nil {
		return 0, errors.New("chunker not set")
	}
	if s.embedder == nil {
		return 0, errors.New("embedder not set")
	}
	if s.chunkStore == nil {
		return 0, errors.New("chunk store not set")
	}

	text, err := s.loader.Load(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLoaderFailed, err)
	}

	texts, err := s.chunker.Chunk(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrChunkerFailed, err)
	}
	log.Printf("Document %s: created %d chunks", documentID, len(texts))

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("%w: embedded %d of %d chunks",
			ErrEmbeddingFailed, len(vectors), len(texts))
	}

	chunks := make([]models.Chunk, len(texts))
	for i, chunkText := range texts {
		chunks[i] = models.Chunk{
			ID:         fmt.Sprintf("%s_%d", documentID, i),
			DocumentID: documentID,
			Index:      i,
			Text:       chunkText,
			Embedding:  vectors[i],
		}
	}

	if err := s.chunkStore.Insert(ctx, chunks); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}

	if s.documents != nil {
		doc := &models.Document{
			ID:          documentID,
			Name:        name,
			SourceType:  sourceType,
			Source:      origin,
			StoragePath: storagePath,
			ChunkCount:  len(chunks),
		}
		if err := s.documents.Create(ctx, doc); err != nil {
			log.Printf("Warning: failed to record document %s: %v", documentID, err)
		}
	}

	return len(chunks), nil
}
