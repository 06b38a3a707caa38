// handlers_analyze.go - Video analysis handler
package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/video-summary/backend/internal/analysis"
	"github.com/vmihailenco/msgpack/v5"
)

// MIMEApplicationMsgpack is accepted as an alternative response encoding
const MIMEApplicationMsgpack = "application/msgpack"

// AnalyzeHandlerImpl implements the AnalyzeHandler interface
type AnalyzeHandlerImpl struct {
	videos   VideoStore
	analyzer Analyzer
	markdown *MarkdownRenderer
}

// NewAnalyzeHandler creates a new analyze handler instance
func NewAnalyzeHandler(videos VideoStore, analyzer Analyzer) AnalyzeHandler {
	return &AnalyzeHandlerImpl{
		videos:   videos,
		analyzer: analyzer,
		markdown: NewMarkdownRenderer(),
	}
}

// HandleAnalyzeVideo runs the agent on a staged video. The request blocks
// until the answer is ready; the staged video is gone afterwards unless the
// query was blank.
func (h *AnalyzeHandlerImpl) HandleAnalyzeVideo(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	if _, err := h.videos.Get(id); err != nil {
		return NewNotFoundError("video", id)
	}

	out := h.analyzer.Analyze(c.Request().Context(), id, req.Query)
	switch out.State {
	case analysis.StateFileStaged:
		return NewEmptyQueryError(out.Warning)
	case analysis.StateRendering:
	default:
		return NewAnalysisError(out)
	}

	rendered, err := h.markdown.Render(out.Result.Text)
	if err != nil {
		return NewInternalError("failed to render answer", err)
	}

	resp := analyzeResponse{
		VideoID:   id,
		Query:     strings.TrimSpace(req.Query),
		Markdown:  out.Result.Text,
		HTML:      rendered,
		Model:     out.Result.Model,
		ToolCalls: out.Result.ToolCalls,
		ElapsedMs: out.Elapsed.Milliseconds(),
	}

	if wantsMsgpack(c) {
		data, err := msgpack.Marshal(&resp)
		if err != nil {
			return NewInternalError("failed to encode msgpack", err)
		}
		return c.Blob(http.StatusOK, MIMEApplicationMsgpack, data)
	}
	return c.JSON(http.StatusOK, resp)
}

// Request/Response types

type analyzeRequest struct {
	Query string `json:"query" form:"query"`
}

type analyzeResponse struct {
	VideoID   string `json:"videoId" msgpack:"videoId"`
	Query     string `json:"query" msgpack:"query"`
	Markdown  string `json:"markdown" msgpack:"markdown"`
	HTML      string `json:"html" msgpack:"html"`
	Model     string `json:"model" msgpack:"model"`
	ToolCalls int    `json:"toolCalls" msgpack:"toolCalls"`
	ElapsedMs int64  `json:"elapsedMs" msgpack:"elapsedMs"`
}

func wantsMsgpack(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), MIMEApplicationMsgpack)
}
