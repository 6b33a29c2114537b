package models

// ChatTurn is one earlier exchange replayed to the assistant.
type ChatTurn struct {
	Role string `json:"role" validate:"required,oneof=user model"`
	Text string `json:"text" validate:"required"`
}

// ChatRequest asks the assistant a question in the context of History.
type ChatRequest struct {
	Message string     `json:"message" validate:"required,max=8000"`
	History []ChatTurn `json:"history" validate:"max=50,dive"`
}
