package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pedagosys-api/internal/models"
	"github.com/noah-isme/pedagosys-api/pkg/response"
)

type quizService interface {
	Start(ctx context.Context, viewer models.Viewer, assignmentID string) (*models.AttemptStatus, error)
	Answer(ctx context.Context, viewer models.Viewer, assignmentID string, req models.AnswerRequest) (*models.AttemptStatus, error)
	Submit(ctx context.Context, viewer models.Viewer, assignmentID string) (*models.SubmitResult, error)
	Abandon(ctx context.Context, viewer models.Viewer, assignmentID string) error
	Status(ctx context.Context, viewer models.Viewer, assignmentID string) (*models.AttemptStatus, error)
}

// QuizHandler drives timed quiz attempts.
type QuizHandler struct {
	service quizService
}

// NewQuizHandler constructs handler.
func NewQuizHandler(svc quizService) *QuizHandler {
	return &QuizHandler{service: svc}
}

// Start godoc
// @Summary Start quiz attempt
// @Description Begins an attempt and its countdown; any other active attempt of the caller is abandoned
// @Tags Quiz
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments/{id}/quiz/start [post]
func (h *QuizHandler) Start(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	status, err := h.service.Start(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, status)
}

// Answer godoc
// @Summary Select an answer
// @Tags Quiz
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body models.AnswerRequest true "Answer payload"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/quiz/answers [put]
func (h *QuizHandler) Answer(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	var req models.AnswerRequest
	if !bindJSON(c, &req, "invalid answer payload") {
		return
	}
	status, err := h.service.Answer(c.Request.Context(), viewer, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status)
}

// Submit godoc
// @Summary Submit quiz attempt
// @Description Scores and stores the attempt; repeating the call returns the stored result
// @Tags Quiz
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/quiz/submit [post]
func (h *QuizHandler) Submit(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	result, err := h.service.Submit(c.Request.Context(), viewer, c.Param("id"))
	respondMutation(c, http.StatusOK, result, err)
}

// Abandon godoc
// @Summary Abandon quiz attempt
// @Tags Quiz
// @Param id path string true "Assignment ID"
// @Success 204
// @Router /assignments/{id}/quiz [delete]
func (h *QuizHandler) Abandon(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Abandon(c.Request.Context(), viewer, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Status godoc
// @Summary Quiz attempt status
// @Tags Quiz
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/quiz [get]
func (h *QuizHandler) Status(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	status, err := h.service.Status(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status)
}
