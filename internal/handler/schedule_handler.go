package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pedagosys-api/internal/models"
	"github.com/noah-isme/pedagosys-api/pkg/response"
)

type scheduleService interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ClassSession, error)
	Create(ctx context.Context, viewer models.Viewer, req models.CreateClassSessionRequest) (*models.ClassSession, error)
	Delete(ctx context.Context, viewer models.Viewer, id string) error
}

// ScheduleHandler exposes the online class timetable.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// List godoc
// @Summary Weekly online class timetable
// @Tags Schedule
// @Produce json
// @Param day query string false "Weekday label, e.g. Thứ 2"
// @Param teacher query string false "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /schedule [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	filter := models.ScheduleFilter{
		Day:       strings.TrimSpace(c.Query("day")),
		TeacherID: c.Query("teacher"),
	}
	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items), "days": models.Weekdays})
}

// Create godoc
// @Summary Schedule an online class
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body models.CreateClassSessionRequest true "Class session payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedule [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	var req models.CreateClassSessionRequest
	if !bindJSON(c, &req, "invalid class session payload") {
		return
	}
	session, err := h.service.Create(c.Request.Context(), viewer, req)
	respondMutation(c, http.StatusCreated, session, err)
}

// Delete godoc
// @Summary Cancel an online class
// @Tags Schedule
// @Param id path string true "Class session ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /schedule/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	id := c.Param("id")
	respondDeleted(c, id, h.service.Delete(c.Request.Context(), viewer, id))
}
