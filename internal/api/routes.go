// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/labstack/echo/v4"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Videos   VideoStore
	Analyzer Analyzer
	Version  string
	Model    string
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Video   VideoHandler
	Analyze AnalyzeHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, deps.Model, deps.Videos),
		Video:   NewVideoHandler(deps.Videos),
		Analyze: NewAnalyzeHandler(deps.Videos, deps.Analyzer),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Staged videos
	videoGroup := apiGroup.Group("/videos")
	videoGroup.POST("", handlers.Video.HandleUploadVideo)
	videoGroup.GET("/:id", handlers.Video.HandleGetVideo)
	videoGroup.GET("/:id/content", handlers.Video.HandleGetVideoContent)
	videoGroup.DELETE("/:id", handlers.Video.HandleDeleteVideo)

	// Analysis
	videoGroup.POST("/:id/analyze", handlers.Analyze.HandleAnalyzeVideo)
}

// SetupMiddleware configures the error handler
func SetupMiddleware(e *echo.Echo, showErrorDetails bool) {
	e.HTTPErrorHandler = NewErrorHandler(showErrorDetails)
}
