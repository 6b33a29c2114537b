package handler

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pedagosys-api/internal/models"
	"github.com/noah-isme/pedagosys-api/internal/service"
	"github.com/noah-isme/pedagosys-api/pkg/response"
)

type announcementService interface {
	List(ctx context.Context, viewer models.Viewer) ([]models.Announcement, error)
	Create(ctx context.Context, viewer models.Viewer, req models.CreateAnnouncementRequest, image *service.Upload) (*models.Announcement, error)
	Delete(ctx context.Context, viewer models.Viewer, id string) error
	OpenImage(ctx context.Context, viewer models.Viewer, id string) (*os.File, error)
}

// AnnouncementHandler exposes announcement endpoints.
type AnnouncementHandler struct {
	service announcementService
}

// NewAnnouncementHandler constructs handler.
func NewAnnouncementHandler(svc announcementService) *AnnouncementHandler {
	return &AnnouncementHandler{service: svc}
}

// List godoc
// @Summary List announcements visible to the caller
// @Tags Announcements
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /announcements [get]
func (h *AnnouncementHandler) List(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	items, err := h.service.List(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

// Create godoc
// @Summary Publish announcement
// @Description Accepts JSON, or a multipart form with an optional image file
// @Tags Announcements
// @Accept json
// @Accept mpfd
// @Produce json
// @Param payload body models.CreateAnnouncementRequest false "Announcement payload"
// @Param image formData file false "Cover image"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /announcements [post]
func (h *AnnouncementHandler) Create(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}

	var (
		req   models.CreateAnnouncementRequest
		image *service.Upload
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		req = models.CreateAnnouncementRequest{
			Title:        c.PostForm("title"),
			Content:      c.PostForm("content"),
			ExternalLink: c.PostForm("external_link"),
			ImageURL:     c.PostForm("image_url"),
			Audience: models.Audience{
				Kind:  models.AudienceKind(strings.ToUpper(c.DefaultPostForm("audience_kind", string(models.AudienceAll)))),
				Value: strings.TrimSpace(c.PostForm("audience_value")),
			},
		}
		upload, closeFile, err := formUpload(c, "image")
		defer closeFile()
		if err != nil {
			response.Error(c, err)
			return
		}
		image = upload
	} else if !bindJSON(c, &req, "invalid announcement payload") {
		return
	}

	announcement, err := h.service.Create(c.Request.Context(), viewer, req, image)
	respondMutation(c, http.StatusCreated, announcement, err)
}

// Delete godoc
// @Summary Delete announcement
// @Tags Announcements
// @Param id path string true "Announcement ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /announcements/{id} [delete]
func (h *AnnouncementHandler) Delete(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	id := c.Param("id")
	respondDeleted(c, id, h.service.Delete(c.Request.Context(), viewer, id))
}

// Image godoc
// @Summary Announcement cover image
// @Tags Announcements
// @Produce image/png
// @Param id path string true "Announcement ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /announcements/{id}/image [get]
func (h *AnnouncementHandler) Image(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	file, err := h.service.OpenImage(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveFile(c, file, "", "inline")
}
