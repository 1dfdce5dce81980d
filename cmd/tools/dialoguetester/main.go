package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/xinling/backend/internal/analysis/crisis"
	"github.com/zhouzirui/xinling/backend/internal/config"
	"github.com/zhouzirui/xinling/backend/internal/logging"
	"github.com/zhouzirui/xinling/backend/internal/service/ai"
	"github.com/zhouzirui/xinling/backend/internal/service/chat"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Warn("无法加载 .env，改用系统环境变量")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("配置加载失败")
	}
	cfg.Log.Level = "debug"
	logger := logging.New(cfg.Log)

	mode := flag.String("mode", "", "测试模式: converse 或 reflect")
	text := flag.String("text", "", "输入文本；converse 模式下用 | 分隔多轮")
	timeout := flag.Duration("timeout", 45*time.Second, "整体超时时间")

	flag.Parse()

	if *mode != "converse" && *mode != "reflect" {
		flag.Usage()
		logger.Fatal("请通过 -mode=converse 或 -mode=reflect 指定测试模式")
	}
	if strings.TrimSpace(*text) == "" {
		logger.Fatal("需要通过 -text 提供输入文本")
	}
	if !cfg.AI.Enabled() {
		logger.WithField("provider", cfg.AI.Provider).Warn("未检测到凭证，将只能看到缺少密钥的提示")
	}

	svc := ai.NewService(cfg.AI, ai.WithLogger(logger))
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "converse":
		runConverse(ctx, logger, svc, cfg.AI.HistoryLimit, strings.Split(*text, "|"))
	case "reflect":
		runReflect(ctx, logger, svc, *text)
	}
}

func runConverse(ctx context.Context, logger *logrus.Logger, svc *ai.Service, historyLimit int, turns []string) {
	session := chat.NewSession(svc, chat.WithHistoryLimit(historyLimit))
	logger.WithField("session", session.ID()).Info("开始对话测试")

	for _, turn := range turns {
		if signal := crisis.Detect(turn); signal.Flagged() {
			logger.WithFields(logrus.Fields{
				"level":   signal.Level,
				"matched": signal.Matched,
			}).Warn("本轮输入命中危机关键词")
		}

		start := time.Now()
		if _, err := session.Send(ctx, turn); err != nil {
			logger.WithError(err).Error("发送失败")
			continue
		}
		logger.WithField("elapsed", time.Since(start).String()).Debug("收到回复")
	}

	for _, msg := range session.Transcript() {
		fmt.Printf("[%s] %s\n", msg.Role, msg.Text)
	}
	stats := session.Stats()
	fmt.Printf("-- %s, %d 次互动, %d 条消息\n", stats.Elapsed, stats.InteractionCount, stats.MessageCount)
}

func runReflect(ctx context.Context, logger *logrus.Logger, svc *ai.Service, note string) {
	logger.WithField("runes", len([]rune(strings.TrimSpace(note)))).Info("开始日记反馈测试")

	start := time.Now()
	insight := svc.Reflect(ctx, note)
	logger.WithField("elapsed", time.Since(start).String()).Debug("收到反馈")

	fmt.Println(insight)
}
