package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"notebookllm/internal/loader"
	"notebookllm/internal/models"
	"notebookllm/internal/splitter"
	"notebookllm/internal/storage"
	"notebookllm/internal/util"
	"notebookllm/internal/vectorstore"

	"github.com/google/uuid"
)

// SourceUserInput labels pasted text, as opposed to a file name.
const SourceUserInput = "user_input"

// Indexer is the write side of the vector store gateway.
type Indexer interface {
	AddDocuments(ctx context.Context, chunks []models.Chunk) (vectorstore.AddResult, error)
}

// CredentialChecker reports missing provider credentials without network I/O.
type CredentialChecker interface {
	CheckCredentials(needLLM bool) error
}

type Ingestor struct {
	index    Indexer
	creds    CredentialChecker
	catalog  storage.Catalog
	splitter splitter.Splitter
	now      func() time.Time
}

func NewIngestor(index Indexer, creds CredentialChecker, catalog storage.Catalog, sp splitter.Splitter) *Ingestor {
	if catalog == nil {
		catalog = storage.NewMemoryCatalog()
	}
	if sp == nil {
		sp = splitter.NewRecursive(splitter.DefaultChunkSize, splitter.DefaultChunkOverlap)
	}
	return &Ingestor{index: index, creds: creds, catalog: catalog, splitter: sp, now: time.Now}
}

func (i *Ingestor) Catalog() storage.Catalog { return i.catalog }

type IngestRequest struct {
	Text   string
	Name   string
	Source string
}

type IngestResult struct {
	Document    models.Document
	Chunks      int
	TextLength  int
	DuplicateOf string
}

type PDFUpload struct {
	Filename string
	Data     []byte
}

type PDFResult struct {
	Document    models.Document
	Pages       int
	Chunks      int
	Filename    string
	DuplicateOf string
}

// PageText is a unit of text chunked independently. Number is 0 for plain
// text and the 1-based page number for PDFs.
type PageText struct {
	Number int
	Text   string
}

// IngestText validates, chunks, embeds and stores pasted text.
func (i *Ingestor) IngestText(ctx context.Context, req IngestRequest) (IngestResult, error) {
	const op = "ingest text"
	if strings.TrimSpace(req.Text) == "" {
		return IngestResult{}, validationError(op, "Text is required")
	}
	if err := i.checkCredentials(); err != nil {
		return IngestResult{}, Classify(op, err)
	}
	source := req.Source
	if source == "" {
		source = SourceUserInput
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Pasted Text"
	}
	doc := i.newDocument(name, models.KindText, int64(len(req.Text)), util.ContentHash([]byte(req.Text)))
	dup := i.register(ctx, doc)

	chunks := BuildChunks(i.splitter, doc.ID, []PageText{{Text: req.Text}}, i.baseMetadata(source, models.KindText, doc.CreatedAt))
	if err := i.store(ctx, op, doc.ID, chunks, 0); err != nil {
		return IngestResult{}, err
	}
	doc.Status, doc.Chunks = models.StatusIndexed, len(chunks)
	log.Printf("text indexed document_id=%s chunks=%d text_length=%d", doc.ID, len(chunks), utf8.RuneCountInString(req.Text))
	return IngestResult{
		Document:    doc,
		Chunks:      len(chunks),
		TextLength:  utf8.RuneCountInString(req.Text),
		DuplicateOf: dup,
	}, nil
}

// IngestPDF extracts per-page text from an uploaded PDF and indexes it.
func (i *Ingestor) IngestPDF(ctx context.Context, up PDFUpload) (PDFResult, error) {
	const op = "ingest pdf"
	if len(up.Data) == 0 {
		return PDFResult{}, validationError(op, "No file uploaded")
	}
	name := strings.TrimSpace(up.Filename)
	if name == "" {
		name = "upload.pdf"
	}
	if !loader.IsPDF(name, up.Data) {
		doc := i.newDocument(name, models.KindPDF, int64(len(up.Data)), util.ContentHash(up.Data))
		doc.Status = models.StatusUnsupported
		doc.FailReason = "not a PDF"
		i.register(ctx, doc)
		return PDFResult{}, validationError(op, "Only PDF files are supported")
	}
	if err := i.checkCredentials(); err != nil {
		return PDFResult{}, Classify(op, err)
	}

	parsed, err := loader.LoadPDF(up.Data)
	if err != nil {
		if errors.Is(err, loader.ErrNoExtractableText) {
			return PDFResult{}, &Error{Kind: KindValidation, Op: op, Msg: "No extractable text found in PDF", Err: err}
		}
		return PDFResult{}, &Error{Kind: KindValidation, Op: op, Msg: "Failed to process PDF: " + err.Error(), Err: err}
	}
	doc := i.newDocument(name, models.KindPDF, int64(len(up.Data)), util.ContentHash(up.Data))
	doc.Pages = parsed.NumPages
	dup := i.register(ctx, doc)

	pages := make([]PageText, 0, len(parsed.Pages))
	for _, p := range parsed.Pages {
		pages = append(pages, PageText{Number: p.Number, Text: p.Text})
	}
	chunks := BuildChunks(i.splitter, doc.ID, pages, i.baseMetadata(name, models.KindPDF, doc.CreatedAt))
	if err := i.store(ctx, op, doc.ID, chunks, parsed.NumPages); err != nil {
		return PDFResult{}, err
	}
	doc.Status, doc.Chunks = models.StatusIndexed, len(chunks)
	log.Printf("pdf indexed document_id=%s filename=%q pages=%d chunks=%d", doc.ID, name, parsed.NumPages, len(chunks))
	return PDFResult{
		Document:    doc,
		Pages:       parsed.NumPages,
		Chunks:      len(chunks),
		Filename:    up.Filename,
		DuplicateOf: dup,
	}, nil
}

// IndexChunks stores chunks for an already-registered document and records
// the outcome in the catalog. The async ingestion workflow calls it directly.
func (i *Ingestor) IndexChunks(ctx context.Context, documentID string, chunks []models.Chunk, pages int) error {
	if err := i.checkCredentials(); err != nil {
		return Classify("index chunks", err)
	}
	return i.store(ctx, "index chunks", documentID, chunks, pages)
}

// Register creates a pending catalog entry for text that will be indexed
// later and returns it.
func (i *Ingestor) Register(ctx context.Context, req IngestRequest) (models.Document, error) {
	if strings.TrimSpace(req.Text) == "" {
		return models.Document{}, validationError("register document", "Text is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Pasted Text"
	}
	doc := i.newDocument(name, models.KindText, int64(len(req.Text)), util.ContentHash([]byte(req.Text)))
	if err := i.catalog.CreateDocument(ctx, doc); err != nil {
		return models.Document{}, fmt.Errorf("register document: %w", err)
	}
	return doc, nil
}

// ChunkText splits text into chunks carrying the standard metadata.
func (i *Ingestor) ChunkText(documentID, source string, kind models.DocumentKind, uploadedAt time.Time, pages []PageText) []models.Chunk {
	if source == "" {
		source = SourceUserInput
	}
	return BuildChunks(i.splitter, documentID, pages, i.baseMetadata(source, kind, uploadedAt))
}

func (i *Ingestor) checkCredentials() error {
	if i.creds == nil {
		return nil
	}
	return i.creds.CheckCredentials(false)
}

func (i *Ingestor) newDocument(name string, kind models.DocumentKind, size int64, hash string) models.Document {
	now := i.now().UTC()
	return models.Document{
		ID:          uuid.NewString(),
		Name:        name,
		Kind:        kind,
		Size:        size,
		Status:      models.StatusPending,
		ContentHash: hash,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// register records doc in the catalog and returns the id of an earlier
// indexed document with the same content, if any. Catalog failures are
// logged; they never block ingestion.
func (i *Ingestor) register(ctx context.Context, doc models.Document) string {
	dup := ""
	if prev, ok, err := i.catalog.FindIndexedByHash(ctx, doc.ContentHash); err != nil {
		log.Printf("catalog hash lookup failed document_id=%s err=%v", doc.ID, err)
	} else if ok {
		dup = prev.ID
	}
	if err := i.catalog.CreateDocument(ctx, doc); err != nil {
		log.Printf("catalog create failed document_id=%s err=%v", doc.ID, err)
	}
	return dup
}

func (i *Ingestor) store(ctx context.Context, op, documentID string, chunks []models.Chunk, pages int) error {
	res, err := i.index.AddDocuments(ctx, chunks)
	if err != nil {
		perr := Classify(op, err)
		i.setStatus(ctx, storage.StatusUpdate{DocumentID: documentID, Status: models.StatusFailed, Pages: pages, FailReason: perr.Error()})
		log.Printf("indexing failed document_id=%s kind=%s err=%v", documentID, KindOf(perr), err)
		if KindOf(perr) == KindNoDocuments {
			// A missing collection after the create fallback is a store fault.
			return &Error{Kind: KindStorageUnavailable, Op: op, Msg: "Unable to connect to vector database. Please check configuration.", Err: err}
		}
		return perr
	}
	if res.CollectionCreated {
		log.Printf("created new collection document_id=%s", documentID)
	}
	i.setStatus(ctx, storage.StatusUpdate{DocumentID: documentID, Status: models.StatusIndexed, Chunks: len(chunks), Pages: pages})
	return nil
}

func (i *Ingestor) setStatus(ctx context.Context, u storage.StatusUpdate) {
	if err := i.catalog.UpdateStatus(ctx, u); err != nil {
		log.Printf("catalog status update failed document_id=%s status=%s err=%v", u.DocumentID, u.Status, err)
	}
}

func (i *Ingestor) baseMetadata(source string, kind models.DocumentKind, uploadedAt time.Time) map[string]string {
	return map[string]string{
		"source":     source,
		"type":       string(kind),
		"uploadedAt": uploadedAt.UTC().Format(time.RFC3339),
	}
}

// BuildChunks splits each page independently and numbers the resulting
// chunks across the whole document. Blank chunks are dropped.
func BuildChunks(sp splitter.Splitter, documentID string, pages []PageText, base map[string]string) []models.Chunk {
	out := make([]models.Chunk, 0)
	for _, p := range pages {
		for _, span := range sp.Split(p.Text) {
			if splitter.IsBlank(span.Text) {
				continue
			}
			meta := make(map[string]string, len(base)+1)
			for k, v := range base {
				meta[k] = v
			}
			if p.Number > 0 {
				meta["page"] = strconv.Itoa(p.Number)
			}
			out = append(out, models.Chunk{
				DocumentID: documentID,
				Index:      len(out),
				Start:      span.Start,
				End:        span.End,
				Text:       span.Text,
				Metadata:   meta,
			})
		}
	}
	return out
}
