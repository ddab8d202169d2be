package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"commhub/pkg/models"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// AssistantService drafts reply suggestions for agents from the recent
// thread history. It never sends anything itself; the agent reviews and
// edits before sending.
type AssistantService struct {
	client *openai.Client
	model  string
}

// NewAssistantService creates a new assistant service
func NewAssistantService() (*AssistantService, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = openai.GPT4oMini
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.BaseURL = baseURL
	}

	return &AssistantService{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

const assistantSystemPrompt = `You are a customer support copilot for a messaging inbox.
Given the recent conversation, draft a short, friendly reply the agent can send.
Answer in the customer's language. Keep it under 80 words. Reply with the draft only.`

// SuggestReply drafts a response for the most recent contact message
func (s *AssistantService) SuggestReply(ctx context.Context, contactName string, history []models.Message) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("no conversation history to draft from")
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: assistantSystemPrompt},
	}

	// Last 20 turns keep the request small and the draft on topic
	start := 0
	if len(history) > 20 {
		start = len(history) - 20
	}
	for _, m := range history[start:] {
		role := openai.ChatMessageRoleAssistant
		speaker := "Agent"
		if strings.HasPrefix(m.Sender, "contact:") {
			role = openai.ChatMessageRoleUser
			speaker = contactName
		}
		if m.Type == models.MessageTypeNote {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: fmt.Sprintf("%s: %s", speaker, m.Body),
		})
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   200,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}

	draft := strings.TrimSpace(resp.Choices[0].Message.Content)
	log.Debug().Int("history_len", len(history)).Msg("reply draft generated")
	return draft, nil
}
