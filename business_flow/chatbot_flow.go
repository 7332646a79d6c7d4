package businessflow

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/marcoalfans/manud-be/app/dto"
	"github.com/marcoalfans/manud-be/app/services"
	"github.com/marcoalfans/manud-be/logging"
	"github.com/marcoalfans/manud-be/utils"
)

const travelAssistantPrompt = "You are a travel assistant chatbot for ManudBE, a comprehensive travel platform. " +
	"Provide specific and detailed travel tips, destination recommendations, and travel information based on user questions. " +
	"Offer recommendations on cultural experiences, local cuisine, accommodations, transportation, and practical travel tips for various destinations. " +
	"Ensure your suggestions are easy to understand and practical for travelers. Write in a structured paragraph format. " +
	"Focus on helpful travel advice and destination information. " +
	"Do not respond to questions unrelated to travel, tourism, or destination information."

// primingHistory opens every conversation.
var primingHistory = []services.ChatMessage{
	{Role: services.ChatRoleUser, Text: travelAssistantPrompt},
	{Role: services.ChatRoleModel, Text: "Of course"},
}

// ChatbotFlow answers travel questions within a per-session conversation
type ChatbotFlow interface {
	Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
	Forget(ctx context.Context, sessionID string) error
}

type ChatbotFlowImpl struct {
	client  services.ChatClient
	history services.ChatHistoryStore
	logger  logging.Logger
}

func NewChatbotFlow(client services.ChatClient, history services.ChatHistoryStore, log logging.Logger) ChatbotFlow {
	return &ChatbotFlowImpl{client: client, history: history, logger: log}
}

func (f *ChatbotFlowImpl) Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	if f.client == nil {
		chatbotRequests.WithLabelValues("unavailable").Inc()
		return nil, NewBusinessError("CHATBOT_UNAVAILABLE", "Chatbot is not configured", ErrChatbotUnavailable)
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	history, err := f.history.Load(ctx, sessionID)
	if err != nil {
		return nil, NewBusinessError("CHAT_HISTORY_FAILED", "Failed to load conversation", err)
	}
	if len(history) < utils.ChatHistoryPrimingEntries {
		history = append([]services.ChatMessage(nil), primingHistory...)
	}

	raw, err := f.client.Generate(ctx, history, req.Prompt)
	if err != nil {
		chatbotRequests.WithLabelValues("error").Inc()
		f.logger.Error("Chatbot request failed", "session_id", sessionID, "error", err)
		return nil, NewBusinessError("CHATBOT_UPSTREAM_FAILED", "Failed to get a reply from the chatbot", ErrChatbotUnavailable)
	}

	history = append(history,
		services.ChatMessage{Role: services.ChatRoleUser, Text: req.Prompt},
		services.ChatMessage{Role: services.ChatRoleModel, Text: raw},
	)
	if err := f.history.Save(ctx, sessionID, TrimHistory(history)); err != nil {
		f.logger.Warn("Failed to save conversation", "session_id", sessionID, "error", err)
	}

	chatbotRequests.WithLabelValues("ok").Inc()
	return &dto.ChatResponse{SessionID: sessionID, Reply: CleanReply(raw)}, nil
}

func (f *ChatbotFlowImpl) Forget(ctx context.Context, sessionID string) error {
	if err := f.history.Delete(ctx, sessionID); err != nil {
		return NewBusinessError("CHAT_HISTORY_FAILED", "Failed to delete conversation", err)
	}
	return nil
}

// TrimHistory keeps the priming entries and the most recent turns up to
// utils.ChatHistoryMaxEntries.
func TrimHistory(history []services.ChatMessage) []services.ChatMessage {
	if len(history) <= utils.ChatHistoryMaxEntries {
		return history
	}
	keep := utils.ChatHistoryMaxEntries - utils.ChatHistoryPrimingEntries
	out := make([]services.ChatMessage, 0, utils.ChatHistoryMaxEntries)
	out = append(out, history[:utils.ChatHistoryPrimingEntries]...)
	return append(out, history[len(history)-keep:]...)
}

var (
	multiSpace     = regexp.MustCompile(`\s\s+`)
	leadingHeading = regexp.MustCompile(`^#+\s*`)
)

// CleanReply flattens model markdown into a single plain paragraph.
func CleanReply(raw string) string {
	s := strings.ReplaceAll(raw, `\n`, " ")
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "*", "")
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, "\n", " ")
	s = multiSpace.ReplaceAllString(s, " ")
	s = leadingHeading.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
