package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
	"github.com/noah-isme/pedagosys-api/pkg/response"
)

type chatService interface {
	Validate(req models.ChatRequest) error
	Stream(ctx context.Context, viewer models.Viewer, req models.ChatRequest, onChunk func(string) error) error
}

// ChatHandler relays the tutor conversation as server-sent events.
type ChatHandler struct {
	service chatService
	logger  *zap.Logger
}

// NewChatHandler constructs handler.
func NewChatHandler(svc chatService, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{service: svc, logger: logger}
}

// Stream godoc
// @Summary Chat with the AI tutor
// @Description Streams "message" events carrying text chunks, then a "done" event. A failure after the stream started is sent as an "error" event.
// @Tags Chat
// @Accept json
// @Produce text/event-stream
// @Param payload body models.ChatRequest true "Chat payload"
// @Success 200 {string} string "event stream"
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /chat [post]
func (h *ChatHandler) Stream(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	var req models.ChatRequest
	if !bindJSON(c, &req, "invalid chat payload") {
		return
	}
	if err := h.service.Validate(req); err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	err := h.service.Stream(c.Request.Context(), viewer, req, func(chunk string) error {
		c.SSEvent("message", gin.H{"text": chunk})
		c.Writer.Flush()
		return c.Request.Context().Err()
	})
	if err != nil {
		h.logger.Warn("chat stream interrupted", zap.String("viewer_id", viewer.ID), zap.Error(err))
		c.SSEvent("error", appErrors.FromError(err))
		c.Writer.Flush()
		return
	}
	c.SSEvent("done", gin.H{})
	c.Writer.Flush()
}
