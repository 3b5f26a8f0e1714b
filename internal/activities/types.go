package activities

import (
	"time"

	"notebookllm/internal/models"
)

type ChunkDocumentInput struct {
	DocumentID string    `json:"document_id"`
	Source     string    `json:"source"`
	Text       string    `json:"text"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type ChunkDocumentOutput struct {
	Chunks     []models.Chunk `json:"chunks"`
	TextLength int            `json:"text_length"`
}

type IndexChunksInput struct {
	DocumentID string         `json:"document_id"`
	Chunks     []models.Chunk `json:"chunks"`
}

type IndexChunksOutput struct {
	Points int `json:"points"`
}

type UpdateDocumentStatusInput struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	Chunks     int    `json:"chunks,omitempty"`
	FailReason string `json:"fail_reason,omitempty"`
}
