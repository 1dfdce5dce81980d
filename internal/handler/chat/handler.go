package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/xinling/backend/internal/analysis/crisis"
	"github.com/zhouzirui/xinling/backend/internal/model/chat"
	"github.com/zhouzirui/xinling/backend/internal/model/resource"
	chatService "github.com/zhouzirui/xinling/backend/internal/service/chat"
	"github.com/zhouzirui/xinling/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc   *chatService.Service
	resources resource.Store
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, resources resource.Store) *Handler {
	return &Handler{
		chatSvc:   chatSvc,
		resources: resources,
	}
}

// RegisterRoutes 注册聊天相关的路由，sendLimit 为空时发送接口不限流。
func (h *Handler) RegisterRoutes(r chi.Router, sendLimit func(http.Handler) http.Handler) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions/{sessionID}", h.handleStats)
	r.Get("/sessions/{sessionID}/messages", h.handleTranscript)

	send := r
	if sendLimit != nil {
		send = r.With(sendLimit)
	}
	send.Post("/sessions/{sessionID}/messages", h.handleSend)
}

type sessionResponse struct {
	Stats    chat.Stats     `json:"stats"`
	Messages []chat.Message `json:"messages"`
}

type sendResponse struct {
	User     chat.Message        `json:"user"`
	Reply    chat.Message        `json:"reply"`
	Crisis   crisis.Signal       `json:"crisis"`
	Stats    chat.Stats          `json:"stats"`
	Hotlines []resource.Resource `json:"hotlines,omitempty"`
}

// handleCreateSession 创建会话，返回带欢迎语的会话记录
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session := h.chatSvc.CreateSession(r.Context())
	utils.RespondJSON(w, http.StatusCreated, sessionResponse{
		Stats:    session.Stats(),
		Messages: session.Transcript(),
	})
}

// handleStats 返回会话计时与计数
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, session.Stats())
}

// handleTranscript 返回完整会话记录
func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, session.Transcript())
}

// handleSend 发送一条用户消息并等待回复
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	reply, err := h.chatSvc.Send(r.Context(), sessionID, payload.Text)
	if err != nil && !errors.Is(err, chatService.ErrNoReply) {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}

	resp := sendResponse{
		User:     reply.User,
		Reply:    reply.Reply,
		Crisis:   reply.Crisis,
		Hotlines: h.hotlinesFor(reply.Crisis),
	}
	if session, lookupErr := h.chatSvc.GetSession(r.Context(), sessionID); lookupErr == nil {
		resp.Stats = session.Stats()
	}

	status := http.StatusOK
	if err != nil {
		status = http.StatusBadGateway
	}
	utils.RespondJSON(w, status, resp)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*chatService.Session, bool) {
	session, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return nil, false
	}
	return session, true
}

func (h *Handler) hotlinesFor(signal crisis.Signal) []resource.Resource {
	if !signal.Flagged() || h.resources == nil {
		return nil
	}
	return h.resources.ByType(resource.TypeHotline)
}

// StatusFor 将聊天服务的错误映射为HTTP状态码
func StatusFor(err error) int {
	switch {
	case errors.Is(err, chatService.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, chatService.ErrTurnInFlight):
		return http.StatusConflict
	case errors.Is(err, chatService.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, chatService.ErrNoReply):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
