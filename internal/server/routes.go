package server

import (
	"github.com/labstack/echo/v4"

	"github.com/latticekg/lattice/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Document routes
	apiRoutes.POST("/documents", routes.CreateDocumentHandler)
	apiRoutes.GET("/documents/:id", routes.GetDocumentHandler)

	// Query routes
	apiRoutes.POST("/query", routes.QueryHandler)

	// Community routes
	apiRoutes.GET("/communities", routes.GetCommunitiesHandler)
}
