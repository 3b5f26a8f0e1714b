package workflows

import "time"

type DocumentIngestInput struct {
	DocumentID string    `json:"document_id"`
	Name       string    `json:"name"`
	Source     string    `json:"source"`
	Text       string    `json:"text"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type IngestProgress struct {
	DocumentID  string            `json:"documentId"`
	CurrentStep string            `json:"currentStep"`
	Status      string            `json:"status"`
	Chunks      int               `json:"chunks"`
	TextLength  int               `json:"textLength,omitempty"`
	FailReason  string            `json:"failReason,omitempty"`
	Steps       map[string]string `json:"steps"`
}
