package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/pedagosys-api/internal/genai"
	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

type chatStreamer interface {
	Enabled() bool
	Stream(ctx context.Context, systemInstruction string, history []genai.Message, onChunk func(string) error) error
}

// ChatService relays questions to the assistant with a role-specific persona.
type ChatService struct {
	ai        chatStreamer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChatService constructs the chat relay.
func NewChatService(ai chatStreamer, validate *validator.Validate, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{ai: ai, validator: newValidator(validate), logger: logger}
}

// Validate checks req before a stream is opened.
func (s *ChatService) Validate(req models.ChatRequest) error {
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validator.Struct(req); err != nil {
		return invalid(err, "invalid chat payload")
	}
	if s.ai == nil || !s.ai.Enabled() {
		return appErrors.Clone(appErrors.ErrRemote, "assistant is not configured")
	}
	return nil
}

// Stream asks the assistant and forwards each fragment to onChunk.
func (s *ChatService) Stream(ctx context.Context, viewer models.Viewer, req models.ChatRequest, onChunk func(string) error) error {
	if err := s.Validate(req); err != nil {
		return err
	}
	history := make([]genai.Message, 0, len(req.History)+1)
	for _, turn := range req.History {
		history = append(history, genai.Message{Role: turn.Role, Text: turn.Text})
	}
	history = append(history, genai.Message{Role: genai.RoleUser, Text: strings.TrimSpace(req.Message)})

	if err := s.ai.Stream(ctx, genai.SystemInstruction(viewer), history, onChunk); err != nil {
		s.logger.Warn("assistant stream failed", zap.String("user_id", viewer.ID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrRemote.Code, appErrors.ErrRemote.Status, "assistant request failed")
	}
	return nil
}
