package models

import "time"

type DocumentKind string

const (
	KindText DocumentKind = "text"
	KindPDF  DocumentKind = "pdf"
)

type DocumentStatus string

const (
	StatusPending     DocumentStatus = "pending"
	StatusIndexed     DocumentStatus = "indexed"
	StatusFailed      DocumentStatus = "failed"
	StatusUnsupported DocumentStatus = "unsupported"
)

type Document struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Kind        DocumentKind   `json:"kind"`
	Size        int64          `json:"size"`
	Status      DocumentStatus `json:"status"`
	Chunks      int            `json:"chunks"`
	Pages       int            `json:"pages,omitempty"`
	ContentHash string         `json:"contentHash,omitempty"`
	FailReason  string         `json:"failReason,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Chunk is a contiguous span of a document's text. Start and End are rune
// offsets into the text the chunk was cut from (a page, for PDFs).
type Chunk struct {
	DocumentID string            `json:"documentId"`
	Index      int               `json:"index"`
	Start      int               `json:"start"`
	End        int               `json:"end"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

type ChatMessage struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type RetrievedChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// RetrievalResult is ordered by descending similarity.
type RetrievalResult struct {
	Chunks []RetrievedChunk `json:"chunks"`
}

func (r RetrievalResult) Len() int { return len(r.Chunks) }
