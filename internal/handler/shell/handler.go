package shell

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	shellService "github.com/zhouzirui/xinling/backend/internal/service/shell"
	"github.com/zhouzirui/xinling/backend/pkg/utils"
)

// Handler 顶层视图与免责声明的HTTP处理器
type Handler struct {
	shell *shellService.Shell
}

// New 创建外壳处理器
func New(shell *shellService.Shell) *Handler {
	return &Handler{shell: shell}
}

// RegisterRoutes 注册外壳相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/shell", h.handleState)
	r.Put("/shell/view", h.handleSwitchView)
	r.Post("/shell/disclaimer", h.handleAcceptDisclaimer)
}

type stateResponse struct {
	View               shellService.View `json:"view"`
	DisclaimerRequired bool              `json:"disclaimerRequired"`
	Disclaimer         string            `json:"disclaimer"`
	LocalDataNote      string            `json:"localDataNote"`
}

func (h *Handler) state(r *http.Request) stateResponse {
	return stateResponse{
		View:               h.shell.Current(),
		DisclaimerRequired: h.shell.DisclaimerRequired(r.Context()),
		Disclaimer:         shellService.DisclaimerText,
		LocalDataNote:      shellService.LocalDataNote,
	}
}

// handleState 返回当前视图与免责声明状态
func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.state(r))
}

// handleSwitchView 切换顶层视图
func (h *Handler) handleSwitchView(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		View string `json:"view"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.shell.Switch(payload.View); err != nil {
		if errors.Is(err, shellService.ErrInvalidView) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.state(r))
}

// handleAcceptDisclaimer 记录用户已阅读免责声明
func (h *Handler) handleAcceptDisclaimer(w http.ResponseWriter, r *http.Request) {
	if err := h.shell.AcceptDisclaimer(r.Context()); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "could not save acknowledgement")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
