package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrFileTooLarge    = errors.New("file exceeds upload limit")
	ErrMIMENotAllowed  = errors.New("file type not allowed")
	ErrEmptyUpload     = errors.New("uploaded file is empty")
	ErrPathOutsideRoot = errors.New("path escapes storage root")
)

// StoredFile describes an attachment written to disk.
type StoredFile struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// IsImage reports whether the stored file is an image.
func (f StoredFile) IsImage() bool {
	return strings.HasPrefix(f.MIMEType, "image/")
}

// LocalStorage persists attachments on disk under a base directory.
type LocalStorage struct {
	baseDir      string
	maxSize      int64
	allowedMIMEs []string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
// An empty allow-list accepts every detected type.
func NewLocalStorage(baseDir string, maxSize int64, allowedMIMEs []string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if maxSize <= 0 {
		maxSize = 10 * 1024 * 1024
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, maxSize: maxSize, allowedMIMEs: allowedMIMEs}, nil
}

// SaveUpload reads at most the configured limit from r, sniffs its content type
// and writes it to dir/name under the base directory.
func (s *LocalStorage) SaveUpload(dir, name string, r io.Reader) (*StoredFile, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}
	if int64(len(data)) > s.maxSize {
		return nil, ErrFileTooLarge
	}

	detected := mimetype.Detect(data)
	if !s.allowed(detected) {
		return nil, fmt.Errorf("%w: %s", ErrMIMENotAllowed, detected.String())
	}

	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "attachment" + detected.Extension()
	}
	rel := filepath.ToSlash(filepath.Join(dir, base))
	path, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("prepare upload directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}

	return &StoredFile{
		Path:     rel,
		Name:     base,
		MIMEType: detected.String(),
		Size:     int64(len(data)),
	}, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(rel string) (*os.File, error) {
	path, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	return file, nil
}

// DeleteDir removes every file stored under dir, used when the owning record is deleted.
func (s *LocalStorage) DeleteDir(dir string) error {
	path, err := s.resolve(dir)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("delete upload dir: %w", err)
	}
	return nil
}

func (s *LocalStorage) allowed(detected *mimetype.MIME) bool {
	if len(s.allowedMIMEs) == 0 {
		return true
	}
	for _, allowed := range s.allowedMIMEs {
		if detected.Is(allowed) {
			return true
		}
	}
	return false
}

func (s *LocalStorage) resolve(rel string) (string, error) {
	root, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("resolve storage root: %w", err)
	}
	path := filepath.Join(root, filepath.FromSlash(rel))
	if path != root && !strings.HasPrefix(path, root+string(filepath.Separator)) {
		return "", ErrPathOutsideRoot
	}
	return path, nil
}
