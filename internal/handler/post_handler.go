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

type postService interface {
	List(ctx context.Context, filter models.PostFilter) ([]models.LibraryPost, error)
	Get(ctx context.Context, id string) (*models.LibraryPost, error)
	Create(ctx context.Context, viewer models.Viewer, req models.CreatePostRequest, attachment *service.Upload) (*models.LibraryPost, error)
	ToggleLike(ctx context.Context, viewer models.Viewer, id string) (*models.LibraryPost, error)
	Comment(ctx context.Context, viewer models.Viewer, id string, req models.CommentRequest) (*models.LibraryComment, error)
	Delete(ctx context.Context, viewer models.Viewer, id string) error
	DownloadLink(ctx context.Context, id string) (*service.DownloadLink, error)
	OpenDownload(ctx context.Context, token string) (*os.File, string, error)
}

// PostHandler exposes the digital library feed.
type PostHandler struct {
	service      postService
	downloadBase string
}

// NewPostHandler constructs handler. downloadBase is the public path that
// serves signed downloads, for example "/api/v1/downloads".
func NewPostHandler(svc postService, downloadBase string) *PostHandler {
	return &PostHandler{service: svc, downloadBase: strings.TrimRight(downloadBase, "/")}
}

// List godoc
// @Summary List library posts
// @Tags Library
// @Produce json
// @Param category query string false "Category filter"
// @Success 200 {object} response.Envelope
// @Router /posts [get]
func (h *PostHandler) List(c *gin.Context) {
	posts, err := h.service.List(c.Request.Context(), models.PostFilter{Category: c.Query("category")})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, posts, map[string]interface{}{"total": len(posts)})
}

// Get godoc
// @Summary Get library post
// @Tags Library
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Router /posts/{id} [get]
func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, post)
}

// Create godoc
// @Summary Share a document
// @Description Accepts JSON, or a multipart form with an optional attachment file
// @Tags Library
// @Accept json
// @Accept mpfd
// @Produce json
// @Param payload body models.CreatePostRequest false "Post payload"
// @Param attachment formData file false "Attachment"
// @Success 201 {object} response.Envelope
// @Router /posts [post]
func (h *PostHandler) Create(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}

	var (
		req        models.CreatePostRequest
		attachment *service.Upload
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		req = models.CreatePostRequest{
			Title:    c.PostForm("title"),
			Content:  c.PostForm("content"),
			Category: c.PostForm("category"),
			Tags:     splitTags(c.PostForm("tags")),
		}
		upload, closeFile, err := formUpload(c, "attachment")
		defer closeFile()
		if err != nil {
			response.Error(c, err)
			return
		}
		attachment = upload
	} else if !bindJSON(c, &req, "invalid post payload") {
		return
	}

	post, err := h.service.Create(c.Request.Context(), viewer, req, attachment)
	respondMutation(c, http.StatusCreated, post, err)
}

// Like godoc
// @Summary Toggle like
// @Tags Library
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Router /posts/{id}/like [post]
func (h *PostHandler) Like(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	post, err := h.service.ToggleLike(c.Request.Context(), viewer, c.Param("id"))
	respondMutation(c, http.StatusOK, post, err)
}

// Comment godoc
// @Summary Comment on post
// @Tags Library
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param payload body models.CommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Router /posts/{id}/comments [post]
func (h *PostHandler) Comment(c *gin.Context) {
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

// Delete godoc
// @Summary Delete post
// @Tags Library
// @Param id path string true "Post ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /posts/{id} [delete]
func (h *PostHandler) Delete(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return
	}
	id := c.Param("id")
	respondDeleted(c, id, h.service.Delete(c.Request.Context(), viewer, id))
}

// DownloadLink godoc
// @Summary Issue signed attachment link
// @Tags Library
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Router /posts/{id}/download-link [post]
func (h *PostHandler) DownloadLink(c *gin.Context) {
	link, err := h.service.DownloadLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"url":        h.downloadBase + "/" + link.Token,
		"token":      link.Token,
		"expires_at": link.ExpiresAt,
		"file_name":  link.FileName,
	})
}

// Download godoc
// @Summary Download attachment with a signed token
// @Tags Library
// @Produce application/octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /downloads/{token} [get]
func (h *PostHandler) Download(c *gin.Context) {
	file, name, err := h.service.OpenDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveFile(c, file, name, "attachment")
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if tag := strings.TrimSpace(p); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
