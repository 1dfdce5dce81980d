package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/xinling/backend/internal/config"
	"github.com/zhouzirui/xinling/backend/internal/logging"
	"github.com/zhouzirui/xinling/backend/internal/metrics"
	"github.com/zhouzirui/xinling/backend/internal/model/chat"
)

// ModelFactory builds the chat model behind the dialogue chains.
type ModelFactory func(ctx context.Context, cfg config.AIConfig) (model.BaseChatModel, error)

// NewChatModel picks the backend named by cfg.Provider.
func NewChatModel(ctx context.Context, cfg config.AIConfig) (model.BaseChatModel, error) {
	switch cfg.Provider {
	case config.ProviderArk:
		return cfg.NewArkChatModel(ctx)
	default:
		return NewGeminiChatModel(ctx, cfg)
	}
}

// Service is the remote dialogue client. It never returns errors to callers:
// every failure becomes one of the fixed notices in fallback.go.
type Service struct {
	cfg     config.AIConfig
	factory ModelFactory
	log     *logrus.Entry
	metrics *metrics.Metrics

	mu       sync.Mutex
	converse compose.Runnable[map[string]any, *schema.Message]
	reflect  compose.Runnable[map[string]any, *schema.Message]
}

// Option customises a Service.
type Option func(*Service)

// WithModelFactory replaces the provider factory, mainly for tests.
func WithModelFactory(factory ModelFactory) Option {
	return func(s *Service) { s.factory = factory }
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) { s.log = logging.Component(logger, "ai") }
}

// WithMetrics records call outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates the client. The model is built on first use and reused afterwards.
func NewService(cfg config.AIConfig, opts ...Option) *Service {
	s := &Service{
		cfg:     cfg,
		factory: NewChatModel,
		log:     logging.Component(nil, "ai"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.HistoryLimit <= 0 {
		s.cfg.HistoryLimit = 15
	}
	return s
}

// Converse answers newText given the recent transcript.
func (s *Service) Converse(ctx context.Context, history []chat.Message, newText string) string {
	start := time.Now()
	reply, err := s.generateReply(ctx, history, newText)
	outcome := Classify(err)
	s.metrics.RecordDialogue("converse", string(outcome), time.Since(start))

	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"outcome": outcome,
			"history": len(history),
		}).Warn("conversation fell back to notice")
		return conversationNotice(outcome)
	}

	s.log.WithFields(logrus.Fields{
		"history":  len(history),
		"length":   len(reply),
		"duration": time.Since(start).String(),
	}).Info("generated reply")
	return reply
}

// Reflect returns a one-sentence supportive insight about a journal note.
func (s *Service) Reflect(ctx context.Context, note string) string {
	start := time.Now()
	insight, err := s.generateReflection(ctx, note)
	outcome := Classify(err)
	s.metrics.RecordDialogue("reflect", string(outcome), time.Since(start))

	if err != nil {
		s.log.WithError(err).WithField("outcome", outcome).Warn("reflection fell back to acknowledgement")
		return reflectionNotice(outcome)
	}
	return insight
}

func (s *Service) generateReply(ctx context.Context, history []chat.Message, newText string) (string, error) {
	converse, _, err := s.chains(ctx)
	if err != nil {
		return "", err
	}

	response, err := converse.Invoke(ctx, map[string]any{
		"system":  SystemInstruction,
		"history": s.buildHistoryMessages(history),
		"query":   newText,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run conversation chain: %w", err)
	}
	return contentOf(response)
}

func (s *Service) generateReflection(ctx context.Context, note string) (string, error) {
	_, reflect, err := s.chains(ctx)
	if err != nil {
		return "", err
	}

	response, err := reflect.Invoke(ctx, map[string]any{"note": note})
	if err != nil {
		return "", fmt.Errorf("failed to run reflection chain: %w", err)
	}
	return contentOf(response)
}

// chains lazily builds the model and both chains. A failed build is not cached.
func (s *Service) chains(ctx context.Context) (compose.Runnable[map[string]any, *schema.Message], compose.Runnable[map[string]any, *schema.Message], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.converse != nil && s.reflect != nil {
		return s.converse, s.reflect, nil
	}
	if s.cfg.Credential() == "" {
		return nil, nil, ErrMissingCredential
	}

	chatModel, err := s.factory(ctx, s.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	converse, err := compileChain(ctx, chatModel, prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compile conversation chain: %w", err)
	}

	reflect, err := compileChain(ctx, chatModel, prompt.FromMessages(
		schema.FString,
		schema.UserMessage(reflectPrompt),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compile reflection chain: %w", err)
	}

	s.converse, s.reflect = converse, reflect
	s.log.WithField("provider", s.cfg.Provider).Info("dialogue model initialised")
	return converse, reflect, nil
}

func compileChain(ctx context.Context, chatModel model.BaseChatModel, template prompt.ChatTemplate) (compose.Runnable[map[string]any, *schema.Message], error) {
	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(chatModel)
	return chain.Compile(ctx)
}

// buildHistoryMessages keeps the most recent HistoryLimit turns and maps roles onto eino's.
func (s *Service) buildHistoryMessages(messages []chat.Message) []*schema.Message {
	window := Window(messages, s.cfg.HistoryLimit)
	if len(window) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(window))
	for _, msg := range window {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Text))
		case chat.RoleModel:
			history = append(history, schema.AssistantMessage(msg.Text, nil))
		}
	}
	return history
}

// Window returns the last limit messages of transcript without copying.
func Window(transcript []chat.Message, limit int) []chat.Message {
	if limit <= 0 || len(transcript) <= limit {
		return transcript
	}
	return transcript[len(transcript)-limit:]
}

func contentOf(msg *schema.Message) (string, error) {
	if msg == nil {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
