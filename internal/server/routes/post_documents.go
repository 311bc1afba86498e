package routes

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/latticekg/lattice/internal/queue"
	"github.com/latticekg/lattice/internal/server/middleware"
	"github.com/latticekg/lattice/pkg/logger"
)

// CreateDocumentHandler accepts a document and queues it for indexing.
// Indexing is asynchronous; the returned document ID can be used to
// fetch the document once the worker has processed it.
func CreateDocumentHandler(c echo.Context) error {
	type createDocumentBody struct {
		DocumentID string `json:"document_id"`
		Content    string `json:"content" validate:"required"`
	}

	type createDocumentResponse struct {
		Message    string `json:"message"`
		DocumentID string `json:"document_id,omitempty"`
	}

	data := new(createDocumentBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createDocumentResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createDocumentResponse{
			Message: "Invalid request body",
		})
	}

	documentID := data.DocumentID
	if documentID == "" {
		id, err := gonanoid.New()
		if err != nil {
			logger.Error("Failed to generate document ID", "err", err)
			return c.JSON(http.StatusInternalServerError, createDocumentResponse{
				Message: "Internal server error",
			})
		}
		documentID = id
	}

	msg, err := json.Marshal(queue.IndexDocumentMsg{
		DocumentID: documentID,
		Content:    data.Content,
	})
	if err != nil {
		logger.Error("Failed to marshal index message", "err", err)
		return c.JSON(http.StatusInternalServerError, createDocumentResponse{
			Message: "Internal server error",
		})
	}

	ch := c.(*middleware.AppContext).Queue
	if err := queue.PublishFIFO(ch, queue.IndexQueue, msg); err != nil {
		logger.Error("Failed to publish index message", "document_id", documentID, "err", err)
		return c.JSON(http.StatusInternalServerError, createDocumentResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, createDocumentResponse{
		Message:    "Document queued for indexing",
		DocumentID: documentID,
	})
}
