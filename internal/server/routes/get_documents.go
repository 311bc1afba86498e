package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/latticekg/lattice/internal/server/middleware"
	"github.com/latticekg/lattice/pkg/common"
	"github.com/latticekg/lattice/pkg/lattice"
	"github.com/latticekg/lattice/pkg/logger"
)

// GetDocumentHandler returns a stored document by ID.
func GetDocumentHandler(c echo.Context) error {
	type getDocumentResponse struct {
		Message  string            `json:"message,omitempty"`
		Document *lattice.Document `json:"document,omitempty"`
	}

	documentID := c.Param("id")
	app := c.(*middleware.AppContext).App

	doc, err := lattice.GetDocument(c.Request().Context(), app.KV, documentID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return c.JSON(http.StatusNotFound, getDocumentResponse{
				Message: "Document not found",
			})
		}
		logger.Error("Failed to load document", "document_id", documentID, "err", err)
		return c.JSON(http.StatusInternalServerError, getDocumentResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getDocumentResponse{Document: doc})
}
