package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/xinling/backend/internal/config"
	"github.com/zhouzirui/xinling/backend/internal/handler"
	"github.com/zhouzirui/xinling/backend/internal/logging"
	"github.com/zhouzirui/xinling/backend/internal/metrics"
	"github.com/zhouzirui/xinling/backend/internal/model/resource"
	"github.com/zhouzirui/xinling/backend/internal/service/ai"
	"github.com/zhouzirui/xinling/backend/internal/service/chat"
	"github.com/zhouzirui/xinling/backend/internal/service/mood"
	"github.com/zhouzirui/xinling/backend/internal/service/shell"
	"github.com/zhouzirui/xinling/backend/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	dotenvErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	logger := logging.New(cfg.Log)
	if dotenvErr != nil {
		logger.WithError(dotenvErr).Debug("no .env file, using system environment variables only")
	}

	m := metrics.New()

	store, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to open storage")
	}
	defer store.Close()

	// 缺少凭证时服务照常启动，每次对话返回固定提示
	aiService := ai.NewService(cfg.AI, ai.WithLogger(logger), ai.WithMetrics(m))
	if cfg.AI.Enabled() {
		logger.WithField("provider", cfg.AI.Provider).Info("dialogue client configured")
	} else {
		logger.WithField("provider", cfg.AI.Provider).Warn("no API key configured, replies will carry the missing-key notice")
	}

	chatService := chat.NewService(aiService,
		chat.WithIdleTTL(cfg.Session.IdleTTL),
		chat.WithSessionOptions(chat.WithHistoryLimit(cfg.AI.HistoryLimit)),
		chat.WithMetrics(m),
		chat.WithLogger(logger),
	)

	journal := mood.NewJournal(store, aiService,
		mood.WithLocation(cfg.Session.Location),
		mood.WithMetrics(m),
		mood.WithLogger(logger),
	)
	journal.Load(ctx)

	resources := resource.Seed()
	if cfg.ResourcesFile != "" {
		if resources, err = resource.LoadFile(cfg.ResourcesFile); err != nil {
			logger.WithError(err).Fatal("failed to load resource directory")
		}
		logger.WithField("file", cfg.ResourcesFile).Info("resource directory loaded")
	}

	router := handler.NewRouter(handler.Deps{
		Chat:          chatService,
		Journal:       journal,
		Shell:         shell.New(store),
		Resources:     resource.NewMemoryStore(resources),
		Metrics:       m,
		Logger:        logger,
		ChatRateLimit: cfg.Server.ChatRateLimit,
	})

	startServer(ctx, logger, cfg.Server, router)
}

func startServer(ctx context.Context, logger *logrus.Logger, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.WithField("addr", addr).Info("XinLing backend listening")
	if err := runServer(ctx, srv); err != nil {
		logger.WithError(err).Fatal("server error")
	}
	logger.Info("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
