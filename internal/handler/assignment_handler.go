package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
	"github.com/noah-isme/pedagosys-api/pkg/response"
)

type assignmentService interface {
	List(ctx context.Context, viewer models.Viewer, filter models.AssignmentFilter) ([]models.AssignmentView, error)
	Get(ctx context.Context, viewer models.Viewer, id string) (*models.AssignmentView, error)
	Create(ctx context.Context, viewer models.Viewer, req models.CreateAssignmentRequest) (*models.Assignment, error)
	Comment(ctx context.Context, viewer models.Viewer, id string, req models.CommentRequest) (*models.Comment, error)
	Authored(ctx context.Context, viewer models.Viewer) ([]models.Assignment, error)
	Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error)
}

// AssignmentHandler exposes homework and quiz listing endpoints.
type AssignmentHandler struct {
	service assignmentService
}

// NewAssignmentHandler constructs handler.
func NewAssignmentHandler(svc assignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

// List godoc
// @Summary List assignments visible to the caller
// @Tags Assignments
// @Produce json
// @Param source query string false "teacher or ai"
// @Param class query string false "Class filter (administrators)"
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}

	source := models.AssignmentSource(strings.ToLower(c.Query("source")))
	switch source {
	case models.SourceAll, models.SourceTeacher, models.SourceAI:
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "source must be teacher or ai"))
		return
	}

	items, err := h.service.List(c.Request.Context(), viewer, models.AssignmentFilter{Source: source, ClassName: c.Query("class")})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

// Get godoc
// @Summary Get assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	item, err := h.service.Get(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// Create godoc
// @Summary Publish assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body models.CreateAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	var req models.CreateAssignmentRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	assignment, err := h.service.Create(c.Request.Context(), viewer, req)
	respondMutation(c, http.StatusCreated, assignment, err)
}

// Comment godoc
// @Summary Comment on assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body models.CommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Router /assignments/{id}/comments [post]
func (h *AssignmentHandler) Comment(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	var req models.CommentRequest
	if !bindJSON(c, &req, "invalid comment payload") {
		return
	}
	comment, err := h.service.Comment(c.Request.Context(), viewer, c.Param("id"), req)
	respondMutation(c, http.StatusCreated, comment, err)
}

// Authored godoc
// @Summary List assignments authored by the caller
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /assignments/authored [get]
func (h *AssignmentHandler) Authored(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	items, err := h.service.Authored(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items)
}

// Leaderboard godoc
// @Summary AI quiz leaderboard
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /leaderboard [get]
func (h *AssignmentHandler) Leaderboard(c *gin.Context) {
	entries, err := h.service.Leaderboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries)
}
