package mood

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/xinling/backend/internal/model/mood"
	moodService "github.com/zhouzirui/xinling/backend/internal/service/mood"
	"github.com/zhouzirui/xinling/backend/pkg/utils"
)

// Handler 心情日记的HTTP处理器
type Handler struct {
	journal *moodService.Journal
}

// New 创建心情日记处理器
func New(journal *moodService.Journal) *Handler {
	return &Handler{journal: journal}
}

// RegisterRoutes 注册心情日记相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/moods", h.handleList)
	r.Post("/moods", h.handleRecord)
	r.Get("/moods/trend", h.handleTrend)
	r.Get("/moods/levels", h.handleLevels)
}

type trendResponse struct {
	Points      []mood.TrendPoint `json:"points"`
	ChartReady  bool              `json:"chartReady"`
	Placeholder string            `json:"placeholder,omitempty"`
}

// handleList 按时间倒序返回全部日记
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.journal.Entries())
}

// handleRecord 记录一条心情，附带可选的 AI 反馈
func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Score int    `json:"score"`
		Note  string `json:"note"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.journal.Record(r.Context(), payload.Score, payload.Note)
	switch {
	case errors.Is(err, moodService.ErrInvalidScore):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		// 条目已在内存中生效，只是未能落盘
		utils.RespondError(w, http.StatusInternalServerError, "entry recorded but could not be saved")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, entry)
}

// handleTrend 返回最近七条记录的趋势点
func (h *Handler) handleTrend(w http.ResponseWriter, r *http.Request) {
	points := make([]mood.TrendPoint, 0, mood.TrendWindow)
	for point := range h.journal.TrendSeries() {
		points = append(points, point)
	}

	resp := trendResponse{Points: points, ChartReady: mood.ChartReady(len(points))}
	if !resp.ChartReady {
		resp.Placeholder = mood.TrendPlaceholder
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

// handleLevels 返回五个心情等级
func (h *Handler) handleLevels(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, mood.Levels())
}
