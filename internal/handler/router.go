package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/xinling/backend/internal/handler/chat"
	"github.com/zhouzirui/xinling/backend/internal/handler/mood"
	"github.com/zhouzirui/xinling/backend/internal/handler/resource"
	"github.com/zhouzirui/xinling/backend/internal/handler/shell"
	"github.com/zhouzirui/xinling/backend/internal/handler/stream"
	"github.com/zhouzirui/xinling/backend/internal/handler/ws"
	"github.com/zhouzirui/xinling/backend/internal/logging"
	"github.com/zhouzirui/xinling/backend/internal/metrics"
	middlewarePkg "github.com/zhouzirui/xinling/backend/internal/middleware"
	resourceModel "github.com/zhouzirui/xinling/backend/internal/model/resource"
	chatService "github.com/zhouzirui/xinling/backend/internal/service/chat"
	moodService "github.com/zhouzirui/xinling/backend/internal/service/mood"
	shellService "github.com/zhouzirui/xinling/backend/internal/service/shell"
	"github.com/zhouzirui/xinling/backend/pkg/utils"
)

// Deps 汇总路由所需的服务。
type Deps struct {
	Chat      *chatService.Service
	Journal   *moodService.Journal
	Shell     *shellService.Shell
	Resources resourceModel.Store
	Metrics   *metrics.Metrics
	Logger    logrus.FieldLogger
	// ChatRateLimit 为每个客户端每分钟的发送上限，0 表示不限制。
	ChatRateLimit int
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logging.Component(deps.Logger, "http")))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": deps.Chat.Count(),
		})
	})
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	// REST 发送与 WebSocket 消息帧共用同一份配额
	limiter := middlewarePkg.NewRateLimiter(deps.ChatRateLimit)
	var sendLimit func(http.Handler) http.Handler
	if limiter != nil {
		sendLimit = limiter.Handler
	}

	r.Route("/api", func(api chi.Router) {
		chat.New(deps.Chat, deps.Resources).RegisterRoutes(api, sendLimit)
		stream.New(deps.Chat, deps.Logger).RegisterRoutes(api)
		ws.New(deps.Chat, deps.Resources, deps.Logger, ws.WithRateLimiter(limiter)).RegisterRoutes(api)

		mood.New(deps.Journal).RegisterRoutes(api)
		resource.New(deps.Resources).RegisterRoutes(api)
		shell.New(deps.Shell).RegisterRoutes(api)
	})

	return r
}
