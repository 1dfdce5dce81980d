package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/xinling/backend/internal/model/chat"
)

var (
	ErrEmptyMessage    = errors.New("message text is empty")
	ErrTurnInFlight    = errors.New("a reply is still pending")
	ErrNoReply         = errors.New("dialogue returned no reply")
	ErrSessionNotFound = errors.New("session not found")
)

// Greeting opens every new transcript.
const Greeting = "你好！我是心灵 (XinLing)。今天感觉怎么样？无论你想聊什么，我都在这里陪着你。🌱"

// DefaultHistoryLimit bounds the transcript window handed to the dialogue client.
const DefaultHistoryLimit = 15

// Dialogue is the remote dialogue client as seen by a session. It always returns text.
type Dialogue interface {
	Converse(ctx context.Context, history []chat.Message, newText string) string
}

// Turn is the outcome of one accepted send.
type Turn struct {
	User  chat.Message `json:"user"`
	Reply chat.Message `json:"reply"`
}

// Session owns one transcript and its counters. It moves Idle → Sending → Idle;
// while Sending, further sends are rejected with ErrTurnInFlight rather than queued.
type Session struct {
	id           string
	startedAt    time.Time
	dialogue     Dialogue
	historyLimit int
	now          func() time.Time
	newID        func() string

	mu           sync.Mutex
	messages     []chat.Message
	interactions int
	pending      bool
}

// SessionOption customises a Session.
type SessionOption func(*Session)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithHistoryLimit overrides DefaultHistoryLimit.
func WithHistoryLimit(limit int) SessionOption {
	return func(s *Session) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

// NewSession starts a session whose transcript holds only the greeting.
func NewSession(dialogue Dialogue, opts ...SessionOption) *Session {
	s := &Session{
		id:           uuid.NewString(),
		dialogue:     dialogue,
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.startedAt = s.now()
	s.messages = append(make([]chat.Message, 0, 16), chat.NewMessage(s.newID(), chat.RoleModel, Greeting, s.startedAt))
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// StartedAt returns the fixed session start used by the clock.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// PendingTurn is an accepted user turn waiting for its reply. The session stays
// Sending until Complete returns, so Complete must be called exactly once.
type PendingTurn struct {
	session *Session
	User    chat.Message
	window  []chat.Message
}

// Begin validates text and claims the single in-flight slot: the user turn is
// appended and the interaction counted before Begin returns. Callers that need
// submission order must call Begin in that order.
func (s *Session) Begin(text string) (*PendingTurn, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		return nil, ErrTurnInFlight
	}
	window := s.windowLocked()
	user := chat.NewMessage(s.newID(), chat.RoleUser, text, s.now())
	s.messages = append(s.messages, user)
	s.interactions++
	s.pending = true

	return &PendingTurn{session: s, User: user, window: window}, nil
}

// Complete asks the dialogue client for the reply and appends it. The call runs
// detached from ctx cancellation: a reply that arrives after the caller has gone
// away is still appended.
func (p *PendingTurn) Complete(ctx context.Context) (Turn, error) {
	s := p.session
	defer func() {
		s.mu.Lock()
		s.pending = false
		s.mu.Unlock()
	}()
	replyText := s.dialogue.Converse(context.WithoutCancel(ctx), p.window, p.User.Text)

	if strings.TrimSpace(replyText) == "" {
		return Turn{User: p.User}, ErrNoReply
	}

	s.mu.Lock()
	reply := chat.NewMessage(s.newID(), chat.RoleModel, replyText, s.now())
	s.messages = append(s.messages, reply)
	s.mu.Unlock()

	return Turn{User: p.User, Reply: reply}, nil
}

// Send runs Begin and Complete back to back.
func (s *Session) Send(ctx context.Context, text string) (Turn, error) {
	pending, err := s.Begin(text)
	if err != nil {
		return Turn{}, err
	}
	return pending.Complete(ctx)
}

// windowLocked copies the most recent historyLimit messages.
func (s *Session) windowLocked() []chat.Message {
	start := 0
	if len(s.messages) > s.historyLimit {
		start = len(s.messages) - s.historyLimit
	}
	return append([]chat.Message(nil), s.messages[start:]...)
}

// Transcript returns a copy of all messages in append order.
func (s *Session) Transcript() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message(nil), s.messages...)
}

// Pending reports whether a reply is outstanding.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Stats recomputes the session counters from the fixed start time.
func (s *Session) Stats() chat.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return chat.Stats{
		SessionID:        s.id,
		Elapsed:          chat.FormatElapsed(s.now().Sub(s.startedAt)),
		InteractionCount: s.interactions,
		MessageCount:     len(s.messages),
		Pending:          s.pending,
	}
}

// Watch emits Stats every interval until ctx is done, then closes the channel.
// Slow readers miss ticks instead of blocking the clock.
func (s *Session) Watch(ctx context.Context, interval time.Duration) <-chan chat.Stats {
	if interval <= 0 {
		interval = time.Second
	}
	out := make(chan chat.Stats, 1)

	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case out <- s.Stats():
				default:
				}
			}
		}
	}()
	return out
}
