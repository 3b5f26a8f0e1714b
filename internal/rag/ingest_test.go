package rag

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"notebookllm/internal/loader/loadertest"
	"notebookllm/internal/models"
	"notebookllm/internal/splitter"
	"notebookllm/internal/storage"
	"notebookllm/internal/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestTextCreatesCollectionAndIndexes(t *testing.T) {
	gw, store := newMemoryGateway()
	catalog := storage.NewMemoryCatalog()
	ing := NewIngestor(gw, nil, catalog, nil)

	res, err := ing.IngestText(context.Background(), IngestRequest{Text: "Paris is the capital of France."})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Chunks)
	assert.Equal(t, 31, res.TextLength)
	assert.Equal(t, 1, store.Len("text"))

	doc, err := catalog.GetDocument(context.Background(), res.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusIndexed, doc.Status)
	assert.Equal(t, 1, doc.Chunks)
}

func TestIngestSameTextTwiceAppends(t *testing.T) {
	gw, store := newMemoryGateway()
	ing := NewIngestor(gw, nil, storage.NewMemoryCatalog(), nil)
	ctx := context.Background()

	first, err := ing.IngestText(ctx, IngestRequest{Text: "Duplicate me."})
	require.NoError(t, err)
	second, err := ing.IngestText(ctx, IngestRequest{Text: "Duplicate me."})
	require.NoError(t, err)

	assert.Equal(t, 2, store.Len("text"))
	assert.Empty(t, first.DuplicateOf)
	assert.Equal(t, first.Document.ID, second.DuplicateOf)
}

func TestIngestBlankTextIsValidationError(t *testing.T) {
	idx := &countingIndexer{}
	ing := NewIngestor(idx, missingKey, nil, nil)

	_, err := ing.IngestText(context.Background(), IngestRequest{Text: "  \n\t "})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Zero(t, idx.calls)
}

func TestIngestMissingKeyFailsBeforeStore(t *testing.T) {
	idx := &countingIndexer{}
	ing := NewIngestor(idx, missingKey, nil, nil)

	_, err := ing.IngestText(context.Background(), IngestRequest{Text: "hello"})
	require.Error(t, err)
	assert.Equal(t, KindConfiguration, KindOf(err))
	assert.Zero(t, idx.calls)
}

func TestIngestStoreUnavailable(t *testing.T) {
	idx := &countingIndexer{err: fmt.Errorf("qdrant PUT: dial tcp: %w", vectorstore.ErrUnavailable)}
	catalog := storage.NewMemoryCatalog()
	ing := NewIngestor(idx, nil, catalog, nil)

	_, err := ing.IngestText(context.Background(), IngestRequest{Text: "hello"})
	require.Error(t, err)
	assert.Equal(t, KindStorageUnavailable, KindOf(err))

	docs, err := catalog.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, models.StatusFailed, docs[0].Status)
	assert.NotEmpty(t, docs[0].FailReason)
}

func TestIngestZeroBytePDFMakesNoStoreCall(t *testing.T) {
	idx := &countingIndexer{}
	ing := NewIngestor(idx, nil, nil, nil)

	_, err := ing.IngestPDF(context.Background(), PDFUpload{Filename: "empty.pdf"})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Zero(t, idx.calls)
}

func TestIngestNonPDFMarkedUnsupported(t *testing.T) {
	idx := &countingIndexer{}
	catalog := storage.NewMemoryCatalog()
	ing := NewIngestor(idx, nil, catalog, nil)

	_, err := ing.IngestPDF(context.Background(), PDFUpload{Filename: "notes.txt", Data: []byte("plain text notes")})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Zero(t, idx.calls)

	docs, err := catalog.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, models.StatusUnsupported, docs[0].Status)
}

func TestIngestPDFIndexesPages(t *testing.T) {
	gw, store := newMemoryGateway()
	catalog := storage.NewMemoryCatalog()
	ing := NewIngestor(gw, nil, catalog, nil)

	data := loadertest.BuildPDF([]string{"Paris is the capital of France", "", "Berlin is the capital of Germany"})
	res, err := ing.IngestPDF(context.Background(), PDFUpload{Filename: "capitals.pdf", Data: data})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 2, res.Chunks)
	assert.Equal(t, "capitals.pdf", res.Filename)
	assert.Equal(t, 2, store.Len("text"))

	doc, err := catalog.GetDocument(context.Background(), res.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusIndexed, doc.Status)
	assert.Equal(t, 3, doc.Pages)
	assert.Equal(t, 2, doc.Chunks)

	again, err := ing.IngestPDF(context.Background(), PDFUpload{Filename: "copy.pdf", Data: data})
	require.NoError(t, err)
	assert.Equal(t, res.Document.ID, again.DuplicateOf)
}

func TestIngestCorruptPDFIsValidationError(t *testing.T) {
	idx := &countingIndexer{}
	ing := NewIngestor(idx, nil, nil, nil)

	_, err := ing.IngestPDF(context.Background(), PDFUpload{Filename: "broken.pdf", Data: []byte("%PDF-1.4 garbage")})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Zero(t, idx.calls)
}

func TestBuildChunksNumbersAcrossPages(t *testing.T) {
	sp := splitter.NewRecursive(40, 10)
	pages := []PageText{
		{Number: 1, Text: strings.Repeat("alpha beta ", 8)},
		{Number: 2, Text: "   "},
		{Number: 3, Text: "gamma"},
	}
	chunks := BuildChunks(sp, "doc-1", pages, map[string]string{"type": "pdf"})
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, "doc-1", c.DocumentID)
		assert.Equal(t, "pdf", c.Metadata["type"])
		assert.LessOrEqual(t, len([]rune(c.Text)), 40)
	}
	last := chunks[len(chunks)-1]
	assert.Equal(t, "3", last.Metadata["page"])
	assert.Equal(t, "gamma", last.Text)
}

func TestBuildChunksTextHasNoPage(t *testing.T) {
	chunks := BuildChunks(splitter.NewRecursive(1000, 200), "d", []PageText{{Text: "hello"}}, map[string]string{"source": SourceUserInput})
	require.Len(t, chunks, 1)
	_, ok := chunks[0].Metadata["page"]
	assert.False(t, ok)
	assert.Equal(t, SourceUserInput, chunks[0].Metadata["source"])
}
