// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	model   string
	videos  VideoStore
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version, model string, videos VideoStore) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		model:   model,
		videos:  videos,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"model":   h.model,
	}
	if h.videos != nil {
		resp["staging"] = h.videos.Stats()
	}
	return c.JSON(http.StatusOK, resp)
}
