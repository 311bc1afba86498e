package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/latticekg/lattice/internal/server/middleware"
	"github.com/latticekg/lattice/pkg/common"
	"github.com/latticekg/lattice/pkg/logger"
	"github.com/latticekg/lattice/pkg/query"
)

// QueryHandler answers a question over the knowledge graph using the
// requested retrieval mode.
func QueryHandler(c echo.Context) error {
	type queryBody struct {
		Mode     string `json:"mode" validate:"required,oneof=local global naive"`
		Question string `json:"question" validate:"required"`
	}

	type queryResponse struct {
		Message string `json:"message,omitempty"`
		Answer  string `json:"answer,omitempty"`
	}

	data := new(queryBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, queryResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, queryResponse{
			Message: "Invalid request body",
		})
	}

	app := c.(*middleware.AppContext).App
	answer, err := app.Engine.Query(c.Request().Context(), query.Mode(data.Mode), data.Question)
	if err != nil {
		if errors.Is(err, common.ErrUnsupportedMode) {
			return c.JSON(http.StatusBadRequest, queryResponse{
				Message: "Unsupported query mode",
			})
		}
		logger.Error("Query failed", "mode", data.Mode, "err", err)
		return c.JSON(http.StatusInternalServerError, queryResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, queryResponse{Answer: answer})
}
