package handler

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pedagosys-api/internal/middleware"
	"github.com/noah-isme/pedagosys-api/internal/models"
	"github.com/noah-isme/pedagosys-api/internal/service"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
	"github.com/noah-isme/pedagosys-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// viewerFromContext resolves the caller or writes a 401 and returns false.
func viewerFromContext(c *gin.Context) (models.Viewer, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Viewer{}, false
	}
	return claims.Viewer(), true
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

// respondMutation writes result next to a failed save when the service kept
// the in-memory change, and a plain error otherwise.
func respondMutation[T any](c *gin.Context, status int, result *T, err error) {
	if result == nil {
		if err == nil {
			err = appErrors.ErrInternal
		}
		response.Error(c, err)
		return
	}
	response.Persisted(c, status, result, err)
}

// formUpload opens the optional multipart file under field. The returned
// closer is never nil.
func formUpload(c *gin.Context, field string) (*service.Upload, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, func() {}, nil
		}
		return nil, func() {}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart payload")
	}
	return openUpload(header)
}

func openUpload(header *multipart.FileHeader) (*service.Upload, func(), error) {
	file, err := header.Open()
	if err != nil {
		return nil, func() {}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "cannot read uploaded file")
	}
	return &service.Upload{Name: header.Filename, Reader: file}, func() { _ = file.Close() }, nil
}

// respondDeleted answers a delete whose record left memory even if the
// store could not be written.
func respondDeleted(c *gin.Context, id string, err error) {
	if err == nil {
		response.NoContent(c)
		return
	}
	if errors.Is(err, appErrors.ErrPersistence) || errors.Is(err, appErrors.ErrPayloadTooLarge) {
		response.Persisted(c, http.StatusOK, gin.H{"id": id, "deleted": true}, err)
		return
	}
	response.Error(c, err)
}

func serveFile(c *gin.Context, file *os.File, name, disposition string) {
	defer file.Close() //nolint:errcheck
	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "cannot read file"))
		return
	}
	if name == "" {
		name = info.Name()
	}
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": name}))
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), file)
}
