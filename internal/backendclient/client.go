// Package backendclient calls the remote grading backend that stores
// uploaded submission files and their grades.
package backendclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/pedagosys-api/internal/models"
	"github.com/noah-isme/pedagosys-api/pkg/config"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
	"github.com/noah-isme/pedagosys-api/pkg/middleware/requestid"
)

const (
	uploadFallback = "submission upload failed"
	gradeFallback  = "grading failed"
	listFallback   = "could not load submissions"
	usersFallback  = "could not load users"

	maxErrorBody = 64 * 1024
)

// Client talks to the grading backend over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// NewClient builds a client. A nil httpClient uses cfg.Timeout.
func NewClient(cfg config.BackendConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{httpClient: httpClient, baseURL: strings.TrimRight(cfg.BaseURL, "/"), logger: logger}
}

// FileURL resolves a backend-relative file path for download links.
func (c *Client) FileURL(path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// UploadSubmission sends a file hand-in as multipart form data.
func (c *Client) UploadSubmission(ctx context.Context, assignmentID, studentID, fileName string, file io.Reader) (*models.RemoteSubmission, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, uploadError(fmt.Errorf("create form file: %w", err))
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, uploadError(fmt.Errorf("copy upload: %w", err))
	}
	if err := writer.WriteField("assignmentId", assignmentID); err != nil {
		return nil, uploadError(err)
	}
	if err := writer.WriteField("studentId", studentID); err != nil {
		return nil, uploadError(err)
	}
	if err := writer.Close(); err != nil {
		return nil, uploadError(fmt.Errorf("close multipart: %w", err))
	}

	var out models.RemoteSubmission
	if err := c.do(ctx, http.MethodPost, "/api/submissions/upload", writer.FormDataContentType(), body, uploadFallback, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GradeSubmission records score and feedback for a remote submission.
func (c *Client) GradeSubmission(ctx context.Context, submissionID string, req models.GradeSubmissionRequest) (*models.RemoteSubmission, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRemote.Code, appErrors.ErrRemote.Status, gradeFallback)
	}
	var out models.RemoteSubmission
	path := "/api/submissions/" + url.PathEscape(submissionID) + "/grade"
	if err := c.do(ctx, http.MethodPatch, path, "application/json", bytes.NewReader(raw), gradeFallback, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByAssignment returns every remote submission for an assignment.
func (c *Client) ListByAssignment(ctx context.Context, assignmentID string) ([]models.RemoteSubmission, error) {
	out := []models.RemoteSubmission{}
	path := "/api/submissions/by-assignment/" + url.PathEscape(assignmentID)
	if err := c.do(ctx, http.MethodGet, path, "", nil, listFallback, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListUsers returns the backend's user directory.
func (c *Client) ListUsers(ctx context.Context) ([]models.RemoteUser, error) {
	out := []models.RemoteUser{}
	if err := c.do(ctx, http.MethodGet, "/api/users", "", nil, usersFallback, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, fallback string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrRemote.Code, appErrors.ErrRemote.Status, fallback)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.HeaderKey, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("grading backend unreachable", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrRemote.Code, appErrors.ErrRemote.Status, fallback)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := serverMessage(raw, fallback)
		c.logger.Warn("grading backend rejected request",
			zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode), zap.String("message", msg))
		return appErrors.Wrap(fmt.Errorf("backend status %d", resp.StatusCode), appErrors.ErrRemote.Code, appErrors.ErrRemote.Status, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return appErrors.Wrap(fmt.Errorf("decode backend response: %w", err), appErrors.ErrRemote.Code, appErrors.ErrRemote.Status, fallback)
	}
	return nil
}

func uploadError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrRemote.Code, appErrors.ErrRemote.Status, uploadFallback)
}

func serverMessage(raw []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && strings.TrimSpace(payload.Message) != "" {
		return payload.Message
	}
	return fallback
}
