package stream

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/xinling/backend/internal/logging"
	chatService "github.com/zhouzirui/xinling/backend/internal/service/chat"
	"github.com/zhouzirui/xinling/backend/pkg/utils"
)

// DefaultInterval is the session clock resolution.
const DefaultInterval = time.Second

// Handler streams session clock ticks via Server-Sent Events
type Handler struct {
	chatSvc  *chatService.Service
	interval time.Duration
	log      *logrus.Entry
}

// Option customises a Handler.
type Option func(*Handler)

// WithInterval overrides the tick interval.
func WithInterval(interval time.Duration) Option {
	return func(h *Handler) { h.interval = interval }
}

// New creates a new stream handler
func New(chatSvc *chatService.Service, logger logrus.FieldLogger, opts ...Option) *Handler {
	h := &Handler{
		chatSvc:  chatSvc,
		interval: DefaultInterval,
		log:      logging.Component(logger, "sse"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes 注册SSE路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/clock", h.handleClock)
}

// handleClock pushes a "stats" event on open and then once per interval until the client leaves.
func (h *Handler) handleClock(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	log := h.log.WithField("session", sessionID)
	log.Debug("opening clock stream")
	defer log.Debug("closing clock stream")

	if err := utils.SendSSEEvent(w, flusher, "stats", session.Stats()); err != nil {
		return
	}

	for stats := range session.Watch(r.Context(), h.interval) {
		if err := utils.SendSSEEvent(w, flusher, "stats", stats); err != nil {
			log.WithError(err).Debug("client went away")
			return
		}
	}
}
