package resource

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/xinling/backend/internal/model/resource"
	"github.com/zhouzirui/xinling/backend/pkg/utils"
)

// Handler 资源目录的HTTP处理器
type Handler struct {
	resources resource.Store
}

// New 创建资源处理器
func New(resources resource.Store) *Handler {
	return &Handler{
		resources: resources,
	}
}

// RegisterRoutes 注册资源相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/resources", h.handleListResources)
	r.Get("/resources/{resourceID}", h.handleGetResource)
}

// handleListResources 列出资源，可按 type 过滤
func (h *Handler) handleListResources(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("type")
	if raw == "" {
		utils.RespondJSON(w, http.StatusOK, h.resources.List())
		return
	}

	kind := resource.Type(raw)
	if !resource.ValidType(kind) {
		utils.RespondError(w, http.StatusBadRequest, "unknown resource type")
		return
	}

	items := h.resources.ByType(kind)
	if items == nil {
		items = []resource.Resource{}
	}
	utils.RespondJSON(w, http.StatusOK, items)
}

// handleGetResource 返回单个资源
func (h *Handler) handleGetResource(w http.ResponseWriter, r *http.Request) {
	item, ok := h.resources.FindByID(chi.URLParam(r, "resourceID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "resource not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, item)
}
