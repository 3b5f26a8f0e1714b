package workflows

import (
	"errors"
	"time"

	"notebookllm/internal/activities"
	"notebookllm/internal/models"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const QueryGetProgress = "GetProgress"

const (
	stepChunk = "chunk_text"
	stepIndex = "index_chunks"
)

// DocumentIngestWorkflow chunks and indexes one pre-registered text
// document. It returns the final document status.
func DocumentIngestWorkflow(ctx workflow.Context, input DocumentIngestInput) (string, error) {
	progress := IngestProgress{
		DocumentID:  input.DocumentID,
		CurrentStep: "init",
		Status:      "processing",
		Steps:       map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetProgress, func() (IngestProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	fail := func(reason string) (string, error) {
		progress.Status = string(models.StatusFailed)
		progress.FailReason = reason
		progress.Steps[progress.CurrentStep] = "failed"
		_ = workflow.ExecuteActivity(ctx, "UpdateDocumentStatusActivity", activities.UpdateDocumentStatusInput{
			DocumentID: input.DocumentID,
			Status:     string(models.StatusFailed),
			FailReason: reason,
		}).Get(ctx, nil)
		return progress.Status, nil
	}

	progress.CurrentStep = stepChunk
	progress.Steps[stepChunk] = "processing"
	var chunkOut activities.ChunkDocumentOutput
	if err := workflow.ExecuteActivity(ctx, "ChunkDocumentActivity", activities.ChunkDocumentInput{
		DocumentID: input.DocumentID,
		Source:     input.Source,
		Text:       input.Text,
		UploadedAt: input.UploadedAt,
	}).Get(ctx, &chunkOut); err != nil {
		return fail(failureMessage(err))
	}
	if len(chunkOut.Chunks) == 0 {
		return fail("no indexable text")
	}
	progress.Chunks = len(chunkOut.Chunks)
	progress.TextLength = chunkOut.TextLength
	progress.Steps[stepChunk] = "done"

	progress.CurrentStep = stepIndex
	progress.Steps[stepIndex] = "processing"
	if err := workflow.ExecuteActivity(ctx, "IndexChunksActivity", activities.IndexChunksInput{
		DocumentID: input.DocumentID,
		Chunks:     chunkOut.Chunks,
	}).Get(ctx, nil); err != nil {
		return fail(failureMessage(err))
	}
	progress.Steps[stepIndex] = "done"

	progress.CurrentStep = "done"
	progress.Status = string(models.StatusIndexed)
	return progress.Status, nil
}

// failureMessage prefers the user-facing message an activity attached to
// its application error.
func failureMessage(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return err.Error()
}
