package service

import (
	"errors"
	"io"
	"os"

	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
	"github.com/noah-isme/pedagosys-api/pkg/storage"
)

// Upload is a file received alongside a create request.
type Upload struct {
	Name   string
	Reader io.Reader
}

type attachmentStorage interface {
	SaveUpload(dir, name string, r io.Reader) (*storage.StoredFile, error)
	Open(rel string) (*os.File, error)
	DeleteDir(dir string) error
}

func uploadError(err error) error {
	switch {
	case errors.Is(err, storage.ErrFileTooLarge):
		return appErrors.Wrap(err, appErrors.ErrPayloadTooLarge.Code, appErrors.ErrPayloadTooLarge.Status, "file exceeds upload limit")
	case errors.Is(err, storage.ErrMIMENotAllowed), errors.Is(err, storage.ErrEmptyUpload), errors.Is(err, storage.ErrPathOutsideRoot):
		return invalid(err, err.Error())
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attachment")
	}
}
