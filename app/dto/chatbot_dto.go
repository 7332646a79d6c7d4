package dto

// ChatRequest is one user turn. An empty SessionID starts a new conversation.
type ChatRequest struct {
	Prompt    string `json:"prompt" validate:"required,min=1,max=4000" example:"What should I eat in Yogyakarta?"`
	SessionID string `json:"sessionId,omitempty" validate:"omitempty,uuid" example:"2f1c7a4e-9b7d-4b0a-8f5e-1c2d3e4f5a6b"`
}

// ChatResponse is the cleaned model reply
type ChatResponse struct {
	SessionID string `json:"sessionId"`
	Reply     string `json:"reply"`
}
