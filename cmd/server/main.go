package main

import (
	"Video_API/internal/config"
	"Video_API/internal/data"
	"Video_API/internal/database"
	"Video_API/internal/handler"
	"Video_API/internal/repository"
	"Video_API/internal/router"
	"Video_API/internal/service"
	"Video_API/pkg/logger"
	"Video_API/pkg/rabbitmq"
	"Video_API/pkg/redis"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

func main() {
	// 加载配置：config.yaml、.env、VIDEO_前缀的环境变量
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}
	// 初始化logger
	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("logger初始化失败: %v", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("无法连接到数据库: %v", err)
	}
	defer database.Close(db)
	logger.Log.WithField("driver", cfg.Database.Driver).Info("数据库连接成功，迁移完成")

	// Redis缓存可选，不启用时repository里的缓存方法都是空操作
	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Log.Fatalf("无法连接到Redis: %v", err)
		}
		defer redisClient.Close()
		logger.Log.Info("Redis连接成功")
	}

	// RabbitMQ可选，不启用时不发布变更事件
	var publisher rabbitmq.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQConn, err := rabbitmq.InitRabbitMQ(cfg.RabbitMQ.URL)
		if err != nil {
			logger.Log.Fatalf("无法连接到RabbitMQ: %v", err)
		}
		defer rabbitMQConn.Close() // 确保程序退出时关闭连接
		if err := rabbitmq.DeclareQueue(rabbitMQConn, cfg.RabbitMQ.Queue); err != nil {
			logger.Log.Fatalf("声明队列失败: %v", err)
		}
		publisher = rabbitmq.NewPublisher(rabbitMQConn)
		logger.Log.WithField("queue", cfg.RabbitMQ.Queue).Info("RabbitMQ连接成功")
	}

	videoRepo := repository.NewVideoRepository(db, redisClient)
	uow := data.NewUnitOfWork(db, videoRepo)
	videoService := service.NewVideoService(videoRepo, uow, publisher, cfg.RabbitMQ.Queue)
	videoHandler := handler.NewVideoHandler(videoService)

	r := router.SetupRouter(cfg.Server.Mode, videoHandler)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}
	go func() {
		logger.Log.Infof("服务器将在: %s端口启动", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待SIGINT/SIGTERM，给正在处理的请求5秒时间
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("服务器强制关闭")
		return
	}
	logger.Log.Info("服务器已退出")
}
