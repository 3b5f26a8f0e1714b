package workflows

import (
	"context"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

// Client starts and inspects ingestion workflows.
type Client struct {
	temporal  tclient.Client
	taskQueue string
}

func NewClient(c tclient.Client, taskQueue string) *Client {
	return &Client{temporal: c, taskQueue: taskQueue}
}

// Dial connects lazily, so a server can start before Temporal is reachable.
func Dial(hostPort, taskQueue string) (*Client, error) {
	c, err := tclient.NewLazyClient(tclient.Options{HostPort: hostPort})
	if err != nil {
		return nil, fmt.Errorf("temporal client: %w", err)
	}
	return NewClient(c, taskQueue), nil
}

func WorkflowID(documentID string) string {
	return "document-ingest-" + documentID
}

func (c *Client) StartIngest(ctx context.Context, in DocumentIngestInput) (workflowID, runID string, err error) {
	we, err := c.temporal.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:                                       WorkflowID(in.DocumentID),
		TaskQueue:                                c.taskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, DocumentIngestWorkflow, in)
	if err != nil {
		return "", "", fmt.Errorf("start ingest workflow: %w", err)
	}
	return we.GetID(), we.GetRunID(), nil
}

func (c *Client) Progress(ctx context.Context, documentID string) (IngestProgress, error) {
	resp, err := c.temporal.QueryWorkflow(ctx, WorkflowID(documentID), "", QueryGetProgress)
	if err != nil {
		return IngestProgress{}, fmt.Errorf("query ingest progress: %w", err)
	}
	var prog IngestProgress
	if err := resp.Get(&prog); err != nil {
		return IngestProgress{}, fmt.Errorf("decode ingest progress: %w", err)
	}
	return prog, nil
}

func (c *Client) Close() {
	c.temporal.Close()
}
