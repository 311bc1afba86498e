package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/latticekg/lattice/pkg/lattice"
	"github.com/latticekg/lattice/pkg/logger"
)

// IndexDocumentMsg is the payload published to the index queue.
type IndexDocumentMsg struct {
	DocumentID string `json:"document_id,omitempty"`
	Content    string `json:"content"`
}

// ProcessIndexMessage runs one indexing job through the pipeline.
func ProcessIndexMessage(ctx context.Context, pipeline *lattice.Pipeline, body []byte) error {
	var msg IndexDocumentMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decoding index message: %w", err)
	}
	if msg.Content == "" {
		logger.Warn("[Queue] Index message with empty content, skipping", "document_id", msg.DocumentID)
		return nil
	}

	documentID, err := pipeline.IndexDocument(ctx, msg.DocumentID, msg.Content)
	if err != nil {
		return err
	}

	logger.Info("[Queue] Document indexed", "document_id", documentID)
	return nil
}
