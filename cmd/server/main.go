// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"speak-coach-go/internal/config"
	"speak-coach-go/internal/handler"
	"speak-coach-go/internal/middleware"
	"speak-coach-go/internal/repository"
	"speak-coach-go/internal/service"
	"speak-coach-go/pkg/database"
	"speak-coach-go/pkg/kafka"
	"speak-coach-go/pkg/llm"
	"speak-coach-go/pkg/log"
	"speak-coach-go/pkg/speech"
	"speak-coach-go/pkg/storage"
	"speak-coach-go/pkg/tts"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化会话存储（默认内存，可切换 Redis）
	var store repository.ConversationStore
	switch cfg.Chat.Store {
	case "redis":
		database.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		store = repository.NewRedisStore(database.RDB)
	default:
		store = repository.NewMemoryStore()
	}

	// 4. 初始化外部协作方客户端
	speechClient := speech.NewClient(cfg.Speech)
	llmClient := llm.NewClient(cfg.LLM)
	ttsClient := tts.NewClient(cfg.TTS)

	var analytics kafka.Producer
	if cfg.Kafka.Enabled {
		analytics = kafka.NewProducer(cfg.Kafka)
	}
	var archive storage.AudioArchive
	if cfg.MinIO.Enabled {
		var err error
		archive, err = storage.NewAudioArchive(cfg.MinIO)
		if err != nil {
			log.Fatal("初始化音频归档失败", err)
		}
	}

	// 5. 初始化 Service (依赖注入)
	chatService := service.NewChatService(
		store, speechClient, llmClient, ttsClient,
		analytics, archive,
		cfg.Chat.MaxTurns, cfg.Chat.MaxDurationSeconds,
	)
	recognizer := speech.NewRecognizer(speechClient)

	// 6. 启动过期会话清理器
	reapCtx, cancelReap := context.WithCancel(context.Background())
	defer cancelReap()
	if cfg.Chat.ReapIntervalSeconds > 0 {
		go runReaper(reapCtx, chatService, time.Duration(cfg.Chat.ReapIntervalSeconds)*time.Second)
	}

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 8. 注册路由
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ws/chat", handler.NewChatHandler(chatService).Handle)
	r.GET("/ws/live", handler.NewLiveHandler(recognizer).Handle)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}

// runReaper 定期清理超时未结束的会话。会话过期本身仍以 isActive 语义为准，
// 这里只是把客户端放弃的会话从存储里移走。
func runReaper(ctx context.Context, chatService service.ChatService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if reaped := chatService.ReapExpired(ctx); reaped > 0 {
				log.Infof("已清理 %d 个过期会话", reaped)
			}
		}
	}
}
