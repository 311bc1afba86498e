package routes

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/latticekg/lattice/internal/server/middleware"
	"github.com/latticekg/lattice/pkg/common"
)

// GetCommunitiesHandler lists the current community hierarchy, optionally
// filtered to one level.
func GetCommunitiesHandler(c echo.Context) error {
	type getCommunitiesResponse struct {
		Message     string              `json:"message,omitempty"`
		Communities []*common.Community `json:"communities"`
	}

	app := c.(*middleware.AppContext).App
	hierarchy := app.Builder.Hierarchy()
	if hierarchy == nil {
		return c.JSON(http.StatusOK, getCommunitiesResponse{
			Communities: []*common.Community{},
		})
	}

	communities := hierarchy.Communities
	if levelParam := c.QueryParam("level"); levelParam != "" {
		level, err := strconv.Atoi(levelParam)
		if err != nil {
			return c.JSON(http.StatusBadRequest, getCommunitiesResponse{
				Message: "Invalid level parameter",
			})
		}
		communities = hierarchy.AtLevel(level)
	}
	if communities == nil {
		communities = []*common.Community{}
	}

	return c.JSON(http.StatusOK, getCommunitiesResponse{Communities: communities})
}
