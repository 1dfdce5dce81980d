package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/xinling/backend/internal/analysis/crisis"
	"github.com/zhouzirui/xinling/backend/internal/logging"
	"github.com/zhouzirui/xinling/backend/internal/middleware"
	"github.com/zhouzirui/xinling/backend/internal/model/chat"
	"github.com/zhouzirui/xinling/backend/internal/model/resource"
	chatService "github.com/zhouzirui/xinling/backend/internal/service/chat"
	"github.com/zhouzirui/xinling/backend/pkg/utils"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

// Frame types sent to the client.
const (
	FrameSession = "session"
	FrameMessage = "message"
	FrameBusy    = "busy"
	FrameError   = "error"
	FrameClock   = "clock"
)

// Handler WebSocket聊天处理器，同一连接上推送回复与会话计时
type Handler struct {
	chatSvc       *chatService.Service
	resources     resource.Store
	upgrader      websocket.Upgrader
	clockInterval time.Duration
	limiter       *middleware.RateLimiter
	log           *logrus.Entry
}

// Option customises a Handler.
type Option func(*Handler)

// WithClockInterval overrides how often clock frames are pushed.
func WithClockInterval(interval time.Duration) Option {
	return func(h *Handler) { h.clockInterval = interval }
}

// WithRateLimiter applies the chat send quota to inbound message frames.
func WithRateLimiter(limiter *middleware.RateLimiter) Option {
	return func(h *Handler) { h.limiter = limiter }
}

// New 创建WebSocket处理器
func New(chatSvc *chatService.Service, resources resource.Store, logger logrus.FieldLogger, opts ...Option) *Handler {
	h := &Handler{
		chatSvc:   chatSvc,
		resources: resources,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clockInterval: time.Second,
		log:           logging.Component(logger, "websocket"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TextMessage 文本消息
type TextMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// SessionFrame is the first frame on every connection.
type SessionFrame struct {
	Stats    chat.Stats     `json:"stats"`
	Messages []chat.Message `json:"messages"`
}

// BusyFrame reports a message dropped because a reply is still pending.
type BusyFrame struct {
	Message string `json:"message"`
	Text    string `json:"text"`
}

// MessageFrame carries a completed turn.
type MessageFrame struct {
	User     chat.Message        `json:"user"`
	Reply    chat.Message        `json:"reply"`
	Crisis   crisis.Signal       `json:"crisis"`
	Stats    chat.Stats          `json:"stats"`
	Hotlines []resource.Resource `json:"hotlines,omitempty"`
}

// connection serialises writers; gorilla allows one concurrent writer per conn.
type connection struct {
	conn      *websocket.Conn
	sessionID string
	log       *logrus.Entry

	mu sync.Mutex
}

func (c *connection) send(frameType string, data interface{}) {
	msg := outgoingMessage{
		Type:      frameType,
		SessionID: c.sessionID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		c.log.WithError(err).WithField("frame", frameType).Debug("write failed")
	}
}

func (c *connection) sendError(message string) {
	c.send(FrameError, map[string]string{"message": message})
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("upgrade failed")
		return
	}
	defer conn.Close()

	log := h.log.WithField("session", sessionID)
	log.Info("websocket connected")
	defer log.Info("websocket disconnected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &connection{conn: conn, sessionID: sessionID, log: log}
	clientKey := middleware.ClientKey(r)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go h.pingLoop(ctx, conn)

	c.send(FrameSession, SessionFrame{Stats: session.Stats(), Messages: session.Transcript()})

	go func() {
		for stats := range session.Watch(ctx, h.clockInterval) {
			c.send(FrameClock, stats)
		}
	}()

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("read error")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case "message":
			var text TextMessage
			if err := json.Unmarshal(msg.Data, &text); err != nil {
				c.sendError("invalid message payload")
				continue
			}
			if !h.limiter.Allow(clientKey) {
				c.sendError("too many messages, please slow down")
				continue
			}
			// 先在读循环里占用会话槽位，按到达顺序接收；只有等待回复放到 goroutine
			accepted, err := h.chatSvc.Begin(ctx, sessionID, text.Text)
			switch {
			case errors.Is(err, chatService.ErrTurnInFlight):
				c.send(FrameBusy, BusyFrame{Message: err.Error(), Text: text.Text})
				continue
			case err != nil:
				c.sendError(err.Error())
				continue
			}
			go h.awaitReply(ctx, c, sessionID, accepted)
		default:
			c.sendError("unsupported message type: " + msg.Type)
		}
	}
}

func (h *Handler) awaitReply(ctx context.Context, c *connection, sessionID string, accepted *chatService.Accepted) {
	reply, err := accepted.Await(ctx)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	frame := MessageFrame{User: reply.User, Reply: reply.Reply, Crisis: reply.Crisis}
	if reply.Crisis.Flagged() && h.resources != nil {
		frame.Hotlines = h.resources.ByType(resource.TypeHotline)
	}
	if session, lookupErr := h.chatSvc.GetSession(ctx, sessionID); lookupErr == nil {
		frame.Stats = session.Stats()
	}
	c.send(FrameMessage, frame)
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
