// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/video-summary/backend/internal/analysis"
	"github.com/video-summary/backend/internal/models"
	"github.com/video-summary/backend/internal/staging"
)

// VideoHandler handles staged video operations
type VideoHandler interface {
	HandleUploadVideo(c echo.Context) error
	HandleGetVideo(c echo.Context) error
	HandleGetVideoContent(c echo.Context) error
	HandleDeleteVideo(c echo.Context) error
}

// AnalyzeHandler handles analysis requests
type AnalyzeHandler interface {
	HandleAnalyzeVideo(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// VideoStore defines the staging operations the handlers need.
// *staging.Store satisfies it.
type VideoStore interface {
	Stage(name string, r io.Reader) (*models.StagedVideo, error)
	Get(id string) (*models.StagedVideo, error)
	Discard(id string) error
	Stats() staging.Stats
}

// Analyzer runs one analysis attempt. *analysis.Service satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, videoID, query string) analysis.Outcome
}
