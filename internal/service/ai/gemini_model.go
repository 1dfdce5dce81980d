package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/zhouzirui/xinling/backend/internal/config"
)

var _ model.ChatModel = (*GeminiChatModel)(nil)

// GeminiChatModel adapts the Gemini API to eino's chat model interface so it can sit in a chain.
type GeminiChatModel struct {
	client      *genai.Client
	model       string
	temperature float32
	topK        float32
	topP        float32
	maxTokens   *int
}

// NewGeminiChatModel creates the Gemini client for cfg.APIKey.
func NewGeminiChatModel(ctx context.Context, cfg config.AIConfig) (*GeminiChatModel, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingCredential
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiChatModel{
		client:      client,
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		topK:        float32(cfg.TopK),
		topP:        float32(cfg.TopP),
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Generate sends the conversation in one request. System messages become the system instruction.
func (m *GeminiChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	temperature, topP := m.temperature, m.topP
	options := model.GetCommonOptions(&model.Options{
		Temperature: &temperature,
		TopP:        &topP,
		MaxTokens:   m.maxTokens,
	}, opts...)

	topK := m.topK
	conf := &genai.GenerateContentConfig{
		Temperature: options.Temperature,
		TopP:        options.TopP,
		TopK:        &topK,
	}
	if options.MaxTokens != nil {
		conf.MaxOutputTokens = int32(*options.MaxTokens)
	}

	system, contents := toGeminiContents(input)
	if system != "" {
		conf.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	result, err := m.client.Models.GenerateContent(ctx, m.model, contents, conf)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	return schema.AssistantMessage(extractText(result), nil), nil
}

// Stream delivers the whole reply as a single chunk.
func (m *GeminiChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools is unsupported; the companion never calls tools.
func (m *GeminiChatModel) BindTools(_ []*schema.ToolInfo) error {
	return errors.New("gemini chat model: tool calling is not supported")
}

func toGeminiContents(input []*schema.Message) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(input))

	for _, msg := range input {
		if msg == nil {
			continue
		}

		var role string
		switch msg.Role {
		case schema.System:
			system = append(system, msg.Content)
			continue
		case schema.User:
			role = "user"
		case schema.Assistant:
			role = "model" // Gemini uses "model" instead of "assistant"
		default:
			continue
		}

		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	return strings.TrimSpace(strings.Join(system, "\n\n")), contents
}

// extractText joins the text parts of the first candidate, skipping thought summaries.
func extractText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 {
		return ""
	}
	candidate := result.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return ""
	}

	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		builder.WriteString(part.Text)
	}
	return builder.String()
}
