package chat

import (
	"context"
	"errors"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/xinling/backend/internal/analysis/crisis"
	"github.com/zhouzirui/xinling/backend/internal/logging"
	"github.com/zhouzirui/xinling/backend/internal/metrics"
	"github.com/zhouzirui/xinling/backend/internal/model/chat"
)

// DefaultIdleTTL evicts sessions nobody has touched for this long.
const DefaultIdleTTL = 2 * time.Hour

// Reply is a completed turn plus the local crisis screening of the user text.
type Reply struct {
	Turn
	Crisis crisis.Signal `json:"crisis"`
}

// Service keeps chat sessions in memory, keyed by id.
type Service struct {
	dialogue    Dialogue
	sessions    *cache.Cache
	sessionOpts []SessionOption
	metrics     *metrics.Metrics
	log         *logrus.Entry
}

// ServiceOption customises a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	idleTTL     time.Duration
	sessionOpts []SessionOption
	metrics     *metrics.Metrics
	logger      logrus.FieldLogger
}

// WithIdleTTL sets the idle eviction window.
func WithIdleTTL(ttl time.Duration) ServiceOption {
	return func(o *serviceOptions) { o.idleTTL = ttl }
}

// WithSessionOptions applies opts to every session the service creates.
func WithSessionOptions(opts ...SessionOption) ServiceOption {
	return func(o *serviceOptions) { o.sessionOpts = append(o.sessionOpts, opts...) }
}

// WithMetrics records turn and session counts on m.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(o *serviceOptions) { o.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) ServiceOption {
	return func(o *serviceOptions) { o.logger = logger }
}

// NewService bootstraps the in-memory chat service.
func NewService(dialogue Dialogue, opts ...ServiceOption) *Service {
	o := serviceOptions{idleTTL: DefaultIdleTTL}
	for _, opt := range opts {
		opt(&o)
	}

	cleanup := o.idleTTL / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}

	s := &Service{
		dialogue:    dialogue,
		sessions:    cache.New(o.idleTTL, cleanup),
		sessionOpts: o.sessionOpts,
		metrics:     o.metrics,
		log:         logging.Component(o.logger, "chat"),
	}
	s.sessions.OnEvicted(func(id string, _ interface{}) {
		s.log.WithField("session", id).Debug("session evicted")
		s.metrics.SetActiveSessions(s.sessions.ItemCount())
	})
	return s
}

// CreateSession starts a new session seeded with the greeting.
func (s *Service) CreateSession(_ context.Context) *Session {
	session := NewSession(s.dialogue, s.sessionOpts...)
	s.sessions.Set(session.ID(), session, cache.DefaultExpiration)
	s.metrics.SetActiveSessions(s.sessions.ItemCount())

	s.log.WithField("session", session.ID()).Info("session created")
	return session
}

// GetSession retrieves a session and refreshes its idle deadline.
func (s *Service) GetSession(_ context.Context, sessionID string) (*Session, error) {
	item, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	session := item.(*Session)
	s.sessions.Set(sessionID, session, cache.DefaultExpiration)
	return session, nil
}

// Accepted is a user turn that has claimed its session's in-flight slot.
type Accepted struct {
	svc     *Service
	log     *logrus.Entry
	pending *PendingTurn
}

// User returns the accepted user turn.
func (a *Accepted) User() chat.Message {
	return a.pending.User
}

// Begin accepts text on the named session without waiting for the reply.
func (s *Service) Begin(ctx context.Context, sessionID, text string) (*Accepted, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	log := s.log.WithField("session", sessionID)
	pending, err := session.Begin(text)
	switch {
	case errors.Is(err, ErrEmptyMessage):
		s.metrics.RecordRejected("empty")
		return nil, err
	case errors.Is(err, ErrTurnInFlight):
		s.metrics.RecordRejected("in_flight")
		log.Debug("send ignored while reply pending")
		return nil, err
	case err != nil:
		return nil, err
	}
	return &Accepted{svc: s, log: log, pending: pending}, nil
}

// Await waits for the reply to an accepted turn and screens the user text.
func (a *Accepted) Await(ctx context.Context) (Reply, error) {
	turn, err := a.pending.Complete(ctx)
	a.svc.metrics.RecordTurn()

	signal := crisis.Detect(a.pending.User.Text)
	if signal.Flagged() {
		a.svc.metrics.RecordCrisis()
		a.log.WithFields(logrus.Fields{
			"level":      signal.Level,
			"categories": signal.Categories,
		}).Warn("crisis language detected in user turn")
	}

	if err != nil {
		a.log.WithError(err).Error("turn finished without reply")
		return Reply{Turn: turn, Crisis: signal}, err
	}
	return Reply{Turn: turn, Crisis: signal}, nil
}

// Send runs one turn on the named session.
func (s *Service) Send(ctx context.Context, sessionID, text string) (Reply, error) {
	accepted, err := s.Begin(ctx, sessionID, text)
	if err != nil {
		return Reply{}, err
	}
	return accepted.Await(ctx)
}

// Count returns the number of live sessions.
func (s *Service) Count() int {
	return s.sessions.ItemCount()
}
