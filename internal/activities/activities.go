package activities

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"notebookllm/internal/models"
	"notebookllm/internal/rag"
	"notebookllm/internal/storage"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

type Activities struct {
	ingestor *rag.Ingestor
	catalog  storage.Catalog
}

func New(ingestor *rag.Ingestor) *Activities {
	return &Activities{ingestor: ingestor, catalog: ingestor.Catalog()}
}

func (a *Activities) ChunkDocumentActivity(ctx context.Context, in ChunkDocumentInput) (ChunkDocumentOutput, error) {
	_ = ctx
	chunks := a.ingestor.ChunkText(in.DocumentID, in.Source, models.KindText, in.UploadedAt, []rag.PageText{{Text: in.Text}})
	return ChunkDocumentOutput{Chunks: chunks, TextLength: utf8.RuneCountInString(in.Text)}, nil
}

func (a *Activities) IndexChunksActivity(ctx context.Context, in IndexChunksInput) (IndexChunksOutput, error) {
	activity.GetLogger(ctx).Info("indexing chunks", "document_id", in.DocumentID, "chunks", len(in.Chunks))
	if err := a.ingestor.IndexChunks(ctx, in.DocumentID, in.Chunks, 0); err != nil {
		activity.GetLogger(ctx).Warn("indexing failed", "document_id", in.DocumentID, "error", err)
		return IndexChunksOutput{}, asActivityError(err)
	}
	return IndexChunksOutput{Points: len(in.Chunks)}, nil
}

func (a *Activities) UpdateDocumentStatusActivity(ctx context.Context, in UpdateDocumentStatusInput) error {
	err := a.catalog.UpdateStatus(ctx, storage.StatusUpdate{
		DocumentID: in.DocumentID,
		Status:     models.DocumentStatus(in.Status),
		Chunks:     in.Chunks,
		FailReason: in.FailReason,
	})
	if errors.Is(err, storage.ErrNotFound) {
		return temporal.NewNonRetryableApplicationError(err.Error(), "NotFound", err)
	}
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return nil
}

// asActivityError carries the user-facing message across the activity
// boundary and stops retries for failures another attempt cannot fix.
func asActivityError(err error) error {
	var perr *rag.Error
	if !errors.As(err, &perr) {
		return err
	}
	switch perr.Kind {
	case rag.KindValidation, rag.KindConfiguration, rag.KindAuth:
		return temporal.NewNonRetryableApplicationError(perr.Msg, string(perr.Kind), nil)
	default:
		return temporal.NewApplicationError(perr.Msg, string(perr.Kind))
	}
}
