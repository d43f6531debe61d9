package assistant

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"farmerconnect/internal/marketerrors"
	"farmerconnect/utils"

	"google.golang.org/genai"
)

// Chat roles
const (
	RoleUser  = string(genai.RoleUser)
	RoleModel = string(genai.RoleModel)
)

// MaxMessageLength caps a single user message, in characters
const MaxMessageLength = 4000

const systemInstruction = `You are Krishi Mitra, the assistant of FarmerConnect, an Indian marketplace where farmers sell produce to business buyers at fixed prices or through bidding.
Help farmers with crop planning, pricing against APMC mandi prices and MSP, listing quality produce, post-harvest handling and using the platform's bidding and order features.
Help buyers with sourcing, seasonality, quality checks, bidding strategy and order tracking.
Answer concisely in the language of the question. Say so when you are unsure, and never invent prices or government schemes.`

// Turn is one message of a chat history
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ChatReply is the assistant answer plus the history to send next time
type ChatReply struct {
	Reply   string `json:"reply"`
	History []Turn `json:"history"`
}

// AssistantService answers farming-marketplace questions through the LLM API
type AssistantService struct {
	client     *GeminiClient
	maxHistory int
}

// NewAssistantService creates a new AssistantService instance
func NewAssistantService(client *GeminiClient, maxHistory int) *AssistantService {
	if maxHistory < 0 {
		maxHistory = 0
	}
	return &AssistantService{client: client, maxHistory: maxHistory}
}

// Chat sends the trimmed history plus message upstream and returns the reply
func (s *AssistantService) Chat(ctx context.Context, message string, history []Turn) (ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return ChatReply{}, fmt.Errorf("service: %w - message is required", marketerrors.ErrInvalidInput)
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return ChatReply{}, fmt.Errorf("service: %w - message exceeds %d characters", marketerrors.ErrInvalidInput, MaxMessageLength)
	}
	for i, t := range history {
		if t.Role != RoleUser && t.Role != RoleModel {
			return ChatReply{}, fmt.Errorf("service: %w - history[%d] has unknown role %q", marketerrors.ErrInvalidInput, i, t.Role)
		}
	}
	if !s.client.Configured() {
		return ChatReply{}, fmt.Errorf("service: %w", marketerrors.ErrAssistantUnavailable)
	}

	history = trimHistory(history, s.maxHistory)
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		contents = append(contents, genai.NewContentFromText(t.Text, genai.Role(t.Role)))
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	resp, err := s.client.Generate(ctx, systemInstruction, contents)
	if err != nil {
		utils.Error("AssistantService: upstream call failed", map[string]any{"error": err.Error()})
		return ChatReply{}, fmt.Errorf("service: %w", err)
	}
	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		fields := map[string]any{"candidates": len(resp.Candidates)}
		if resp.PromptFeedback != nil {
			fields["block_reason"] = string(resp.PromptFeedback.BlockReason)
		}
		utils.Error("AssistantService: upstream returned no text", fields)
		return ChatReply{}, fmt.Errorf("service: %w: empty candidate", marketerrors.ErrUpstream)
	}

	out := make([]Turn, 0, len(history)+2)
	out = append(out, history...)
	out = append(out, Turn{Role: RoleUser, Text: message}, Turn{Role: RoleModel, Text: reply})
	return ChatReply{Reply: reply, History: out}, nil
}

// trimHistory keeps the last max turns, dropping a leading model turn so the
// conversation still opens with the user
func trimHistory(history []Turn, max int) []Turn {
	if len(history) > max {
		history = history[len(history)-max:]
	}
	for len(history) > 0 && history[0].Role == RoleModel {
		history = history[1:]
	}
	return history
}
