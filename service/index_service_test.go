package service

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"testing"

	"policyrag-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	text string
	err  error
}

func (f *fakeLoader) Load(ctx context.Context, source Source) (string, error) {
	return f.text, f.err
}

type fakeChunker struct {
	chunks []string
	err    error
}

func (f *fakeChunker) Chunk(text string) ([]string, error) {
	return f.chunks, f.err
}

type fakeEmbedder struct {
	docVectors  [][]float32
	docErr      error
	docTexts    []string
	queryVector []float32
	queryErr    error
	queryText   string
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	f.docTexts = texts
	if f.docErr != nil {
		return nil, f.docErr
	}
	if f.docVectors != nil {
		return f.docVectors, nil
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(i), 1}
	}
	return vectors, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.queryText = text
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.queryVector != nil {
		return f.queryVector, nil
	}
	return []float32{0.5, 0.5}, nil
}

type fakeChunkStore struct {
	inserted      []models.Chunk
	insertErr     error
	results       []models.Chunk
	searchErr     error
	lastEmbedding []float32
	lastLimit     int
	lastFilter    string
}

func (f *fakeChunkStore) Insert(ctx context.Context, chunks []models.Chunk) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, chunks...)
	return nil
}

func (f *fakeChunkStore) Search(ctx context.Context, embedding []float32, limit int, documentID string) ([]models.Chunk, error) {
	f.lastEmbedding = embedding
	f.lastLimit = limit
	f.lastFilter = documentID
	return f.results, f.searchErr
}

type fakeCatalog struct {
	created []*models.Document
	err     error
}

func (f *fakeCatalog) Create(ctx context.Context, doc *models.Document) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, doc)
	return nil
}

type fakeStorage struct {
	uploadedID   string
	uploadedName string
	err          error
}

func (f *fakeStorage) Upload(ctx context.Context, documentID string, filename string, data io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploadedID = documentID
	f.uploadedName = filename
	return "ar/" + documentID, nil
}

func (f *fakeStorage) Download(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	return nil, nil
}

func (f *fakeStorage) Delete(ctx context.Context, storagePath string) error {
	return nil
}

var documentIDPattern = regexp.MustCompile(`^(.+)-([0-9a-f]{6})$`)

func newTestIndexService(loader Loader, chunker Chunker, embedder Embedder, store ChunkStore, extra ...IndexServiceOption) *IndexService {
	opts := []IndexServiceOption{
		IndexWithLoader(loader),
		IndexWithChunker(chunker),
		IndexWithEmbedder(embedder),
		IndexWithChunkStore(store),
	}
	return NewIndexService(append(opts, extra...)...)
}

func TestIndexFileStoresChunksInOrder(t *testing.T) {
	store := &fakeChunkStore{}
	svc := newTestIndexService(
		&fakeLoader{text: "some extracted text"},
		&fakeChunker{chunks: []string{"first", "second", "third"}},
		&fakeEmbedder{},
		store,
	)

	documentID, count, err := svc.IndexFile(context.Background(), "policy.pdf", []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, 3, count)
	require.Len(t, store.inserted, 3)
	for i, chunk := range store.inserted {
		assert.Equal(t, fmt.Sprintf("%s_%d", documentID, i), chunk.ID)
		assert.Equal(t, documentID, chunk.DocumentID)
		assert.Equal(t, i, chunk.Index)
		assert.NotEmpty(t, chunk.Embedding)
	}
	assert.Equal(t, "first", store.inserted[0].Text)
	assert.Equal(t, "second", store.inserted[1].Text)
	assert.Equal(t, "third", store.inserted[2].Text)
}

func TestIndexURLDocumentIDFormat(t *testing.T) {
	svc := newTestIndexService(
		&fakeLoader{text: "text"},
		&fakeChunker{chunks: []string{"only"}},
		&fakeEmbedder{},
		&fakeChunkStore{},
	)

	first, _, err := svc.IndexURL(context.Background(), "https://example.com/docs/policy.pdf?sig=abc123")
	require.NoError(t, err)
	second, _, err := svc.IndexURL(context.Background(), "https://example.com/docs/policy.pdf?sig=abc123")
	require.NoError(t, err)

	matches := documentIDPattern.FindStringSubmatch(first)
	require.NotNil(t, matches, "document ID %q should match {stem}-{hex6}", first)
	assert.Equal(t, "policy", matches[1])

	// Same input name, fresh random suffix
	assert.NotEqual(t, first, second)
}

func TestIndexSameFileTwiceProducesIndependentChunkSets(t *testing.T) {
	store := &fakeChunkStore{}
	svc := newTestIndexService(
		&fakeLoader{text: "text"},
		&fakeChunker{chunks: []string{"a", "b"}},
		&fakeEmbedder{},
		store,
	)

	first, _, err := svc.IndexFile(context.Background(), "claims.txt", []byte("x"))
	require.NoError(t, err)
	second, _, err := svc.IndexFile(context.Background(), "claims.txt", []byte("x"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Len(t, store.inserted, 4)
}

func TestIndexLoaderFailure(t *testing.T) {
	store := &fakeChunkStore{}
	svc := newTestIndexService(
		&fakeLoader{err: fmt.Errorf("corrupt document")},
		&fakeChunker{},
		&fakeEmbedder{},
		store,
	)

	_, _, err := svc.IndexFile(context.Background(), "bad.pdf", []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoaderFailed)
	assert.Empty(t, store.inserted)
}

func TestIndexEmbedderFailureLeavesNothingStored(t *testing.T) {
	store := &fakeChunkStore{}
	svc := newTestIndexService(
		&fakeLoader{text: "text"},
		&fakeChunker{chunks: []string{"a", "b"}},
		&fakeEmbedder{docErr: fmt.Errorf("%w: quota exceeded", ErrEmbeddingFailed)},
		store,
	)

	_, _, err := svc.IndexFile(context.Background(), "doc.txt", []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Empty(t, store.inserted)
}

func TestIndexVectorCountMismatchIsHardFailure(t *testing.T) {
	store := &fakeChunkStore{}
	svc := newTestIndexService(
		&fakeLoader{text: "text"},
		&fakeChunker{chunks: []string{"a", "b", "c"}},
		&fakeEmbedder{docVectors: [][]float32{{1}, {2}}},
		store,
	)

	_, _, err := svc.IndexFile(context.Background(), "doc.txt", []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Empty(t, store.inserted)
}

func TestIndexStoreFailure(t *testing.T) {
	svc := newTestIndexService(
		&fakeLoader{text: "text"},
		&fakeChunker{chunks: []string{"a"}},
		&fakeEmbedder{},
		&fakeChunkStore{insertErr: fmt.Errorf("connection refused")},
	)

	_, _, err := svc.IndexFile(context.Background(), "doc.txt", []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreFailed)
}

func TestIndexFileArchivesUploadAndRecordsDocument(t *testing.T) {
	archive := &fakeStorage{}
	catalog := &fakeCatalog{}
	svc := newTestIndexService(
		&fakeLoader{text: "text"},
		&fakeChunker{chunks: []string{"a", "b"}},
		&fakeEmbedder{},
		&fakeChunkStore{},
		IndexWithStorage(archive),
		IndexWithDocumentCatalog(catalog),
	)

	documentID, count, err := svc.IndexFile(context.Background(), "policy.pdf", []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, documentID, archive.uploadedID)
	assert.Equal(t, "policy.pdf", archive.uploadedName)

	require.Len(t, catalog.created, 1)
	doc := catalog.created[0]
	assert.Equal(t, documentID, doc.ID)
	assert.Equal(t, models.SourceTypeUpload, doc.SourceType)
	assert.Equal(t, count, doc.ChunkCount)
	require.NotNil(t, doc.StoragePath)
	assert.Equal(t, "ar/"+documentID, *doc.StoragePath)
}

func TestIndexFileArchiveFailureDoesNotFailIndexing(t *testing.T) {
	archive := &fakeStorage{err: fmt.Errorf("bucket unavailable")}
	catalog := &fakeCatalog{}
	svc := newTestIndexService(
		&fakeLoader{text: "text"},
		&fakeChunker{chunks: []string{"a"}},
		&fakeEmbedder{},
		&fakeChunkStore{},
		IndexWithStorage(archive),
		IndexWithDocumentCatalog(catalog),
	)

	_, count, err := svc.IndexFile(context.Background(), "policy.pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.Len(t, catalog.created, 1)
	assert.Nil(t, catalog.created[0].StoragePath)
}

func TestStemFromFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"policy.pdf", "policy"},
		{"dir/claims report.docx", "claims report"},
		{"noext", "noext"},
		{"archive.tar.gz", "archive.tar"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StemFromFilename(tt.in), "input %q", tt.in)
	}
}

func TestStemFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/docs/policy.pdf", "policy"},
		{"https://example.com/docs/policy.pdf?X-Amz-Signature=abc&v=2", "policy"},
		{"https://example.com/a/b/terms.html", "terms"},
		{"https://example.com", "example.com"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StemFromURL(tt.in), "input %q", tt.in)
	}
}
