package handler

import (
	"context"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pedagosys-api/internal/models"
	"github.com/noah-isme/pedagosys-api/internal/service"
	"github.com/noah-isme/pedagosys-api/pkg/response"
)

type gradeService interface {
	SetScore(ctx context.Context, viewer models.Viewer, req models.SetScoreRequest) (*models.PeriodScore, error)
	ClassSheet(ctx context.Context, viewer models.Viewer, query service.ClassSheetQuery) (*models.ClassSheet, error)
	ReportCard(ctx context.Context, viewer models.Viewer, studentID string) (*models.ReportCard, error)
	ExportClassSheet(ctx context.Context, viewer models.Viewer, query service.ClassSheetQuery, format string) (*service.ExportFile, error)
}

// GradeHandler exposes gradebook endpoints.
type GradeHandler struct {
	grades gradeService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(grades gradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// SetScore godoc
// @Summary Set one gradebook score
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body models.SetScoreRequest true "Score payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grades/scores [put]
func (h *GradeHandler) SetScore(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	var req models.SetScoreRequest
	if !bindJSON(c, &req, "invalid score payload") {
		return
	}
	score, err := h.grades.SetScore(c.Request.Context(), viewer, req)
	respondMutation(c, http.StatusOK, score, err)
}

// ClassSheet godoc
// @Summary Class gradebook sheet
// @Tags Grades
// @Produce json
// @Param class query string true "Class"
// @Param subject query string true "Subject"
// @Param semester query string true "HK1 or HK2"
// @Success 200 {object} response.Envelope
// @Router /grades/sheet [get]
func (h *GradeHandler) ClassSheet(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	sheet, err := h.grades.ClassSheet(c.Request.Context(), viewer, sheetQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet)
}

// ReportCard godoc
// @Summary Student report card
// @Description Students read their own card; teachers may pass any student id
// @Tags Grades
// @Produce json
// @Param studentId query string false "Student ID, defaults to the caller"
// @Success 200 {object} response.Envelope
// @Router /grades/report-card [get]
func (h *GradeHandler) ReportCard(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	card, err := h.grades.ReportCard(c.Request.Context(), viewer, c.Query("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card)
}

// Export godoc
// @Summary Export class sheet
// @Tags Grades
// @Produce text/csv
// @Produce application/pdf
// @Param class query string true "Class"
// @Param subject query string true "Subject"
// @Param semester query string true "HK1 or HK2"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /grades/sheet/export [get]
func (h *GradeHandler) Export(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	file, err := h.grades.ExportClassSheet(c.Request.Context(), viewer, sheetQuery(c), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

func sheetQuery(c *gin.Context) service.ClassSheetQuery {
	return service.ClassSheetQuery{
		ClassName: strings.TrimSpace(c.Query("class")),
		Subject:   strings.TrimSpace(c.Query("subject")),
		Semester:  models.Semester(strings.ToUpper(c.Query("semester"))),
	}
}
