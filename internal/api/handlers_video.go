// handlers_video.go - Staged video handlers
package api

import (
	"errors"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/video-summary/backend/internal/staging"
)

// VideoHandlerImpl implements the VideoHandler interface
type VideoHandlerImpl struct {
	videos VideoStore
}

// NewVideoHandler creates a new video handler instance
func NewVideoHandler(videos VideoStore) VideoHandler {
	return &VideoHandlerImpl{videos: videos}
}

// HandleUploadVideo stages a video sent as multipart field "file"
func (h *VideoHandlerImpl) HandleUploadVideo(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	video, err := h.videos.Stage(file.Filename, src)
	if err != nil {
		if errors.Is(err, staging.ErrUnsupportedFormat) {
			return NewUnsupportedFormatError(err)
		}
		return NewInternalError("failed to stage video", err)
	}

	return c.JSON(http.StatusCreated, video)
}

// HandleGetVideo returns metadata for a staged video
func (h *VideoHandlerImpl) HandleGetVideo(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	video, err := h.videos.Get(id)
	if err != nil {
		return NewNotFoundError("video", id)
	}

	return c.JSON(http.StatusOK, video)
}

// HandleGetVideoContent streams the staged file for the preview player
func (h *VideoHandlerImpl) HandleGetVideoContent(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	video, err := h.videos.Get(id)
	if err != nil {
		return NewNotFoundError("video", id)
	}

	f, err := os.Open(video.Path)
	if err != nil {
		// analysis removed it in the meantime
		return NewNotFoundError("video", id)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return NewInternalError("failed to read staged video", err)
	}

	c.Response().Header().Set(echo.HeaderContentType, contentTypeFor(video.Ext))
	http.ServeContent(c.Response(), c.Request(), video.Name, stat.ModTime(), f)
	return nil
}

// HandleDeleteVideo discards a staged video that will not be analysed
func (h *VideoHandlerImpl) HandleDeleteVideo(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.videos.Discard(id); err != nil {
		if errors.Is(err, staging.ErrInUse) {
			return NewConflictError("video is being analysed")
		}
		if errors.Is(err, staging.ErrNotFound) {
			return NewNotFoundError("video", id)
		}
		return NewInternalError("failed to delete video", err)
	}

	return c.NoContent(http.StatusNoContent)
}

func contentTypeFor(ext string) string {
	switch ext {
	case "mov":
		return "video/quicktime"
	case "avi":
		return "video/x-msvideo"
	default:
		return "video/mp4"
	}
}
