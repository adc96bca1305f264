package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/ai-summarizer/internal/domain/summarizer"
)

// SummaryHandler wires the HTTP transport to the summarizer service.
type SummaryHandler struct {
	svc    summarizer.Service
	logger *slog.Logger
}

// NewSummaryHandler constructs the HTTP handler.
func NewSummaryHandler(svc summarizer.Service, logger *slog.Logger) *SummaryHandler {
	return &SummaryHandler{
		svc:    svc,
		logger: logger.With("component", "http.handler"),
	}
}

// Summarize handles the sync summarization endpoint.
func (h *SummaryHandler) Summarize(c *gin.Context) {
	var req summarizer.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "request body must be JSON with a text or url field", err))
		return
	}

	resp, err := h.svc.Summarize(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Status reports upstream availability and the circuit state.
func (h *SummaryHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Status(c.Request.Context()))
}

// Connection reports whether the upstream answered a probe at all.
func (h *SummaryHandler) Connection(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"connected": h.svc.TestConnection(c.Request.Context())})
}

// Health is the liveness probe.
func (h *SummaryHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
