package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pedagosys-api/internal/models"
	"github.com/noah-isme/pedagosys-api/internal/service"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
	"github.com/noah-isme/pedagosys-api/pkg/response"
)

type submissionService interface {
	Upload(ctx context.Context, viewer models.Viewer, assignmentID string, file service.Upload) (*models.Submission, error)
	Grade(ctx context.Context, viewer models.Viewer, submissionID string, req models.GradeSubmissionRequest) (*models.RemoteSubmission, error)
	ListForAssignment(ctx context.Context, viewer models.Viewer, assignmentID string, status models.GradeStatus) ([]models.EnrichedSubmission, error)
	TeacherAssignments(ctx context.Context, viewer models.Viewer) ([]models.Assignment, error)
}

// SubmissionHandler relays hand-ins and grading to the grading backend.
type SubmissionHandler struct {
	service submissionService
}

// NewSubmissionHandler constructs handler.
func NewSubmissionHandler(svc submissionService) *SubmissionHandler {
	return &SubmissionHandler{service: svc}
}

// Upload godoc
// @Summary Upload assignment submission
// @Tags Submissions
// @Accept mpfd
// @Produce json
// @Param id path string true "Assignment ID"
// @Param file formData file true "Submission file"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /assignments/{id}/submissions/upload [post]
func (h *SubmissionHandler) Upload(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	upload, closeFile, err := formUpload(c, "file")
	defer closeFile()
	if err != nil {
		response.Error(c, err)
		return
	}
	if upload == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}

	submission, err := h.service.Upload(c.Request.Context(), viewer, c.Param("id"), *upload)
	respondMutation(c, http.StatusCreated, submission, err)
}

// Grade godoc
// @Summary Grade submission
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Remote submission ID"
// @Param payload body models.GradeSubmissionRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /submissions/{id}/grade [patch]
func (h *SubmissionHandler) Grade(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	var req models.GradeSubmissionRequest
	if !bindJSON(c, &req, "invalid grade payload") {
		return
	}
	graded, err := h.service.Grade(c.Request.Context(), viewer, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, graded)
}

// List godoc
// @Summary List submissions of an assignment
// @Tags Submissions
// @Produce json
// @Param id path string true "Assignment ID"
// @Param status query string false "ALL, GRADED or UNGRADED"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	status := models.GradeStatus(strings.ToUpper(c.DefaultQuery("status", string(models.GradeStatusAll))))
	switch status {
	case models.GradeStatusAll, models.GradeStatusGraded, models.GradeStatusUngraded:
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be ALL, GRADED or UNGRADED"))
		return
	}

	items, err := h.service.ListForAssignment(c.Request.Context(), viewer, c.Param("id"), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

// Assignments godoc
// @Summary Assignments whose submissions the caller grades
// @Tags Submissions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /submissions/assignments [get]
func (h *SubmissionHandler) Assignments(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	items, err := h.service.TeacherAssignments(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items)
}
