package main

import (
	"Video_API/internal/config"
	"Video_API/internal/dto"
	"Video_API/pkg/logger"
	"Video_API/pkg/rabbitmq"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// 消费者进程：订阅视频变更队列，把每一次创建/更新写进日志
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}
	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("logger初始化失败: %v", err)
	}

	rabbitMQConn, err := rabbitmq.InitRabbitMQ(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Log.Fatalf("消费者无法连接到RabbitMQ: %v", err)
	}
	defer rabbitMQConn.Close()

	if err := rabbitmq.DeclareQueue(rabbitMQConn, cfg.RabbitMQ.Queue); err != nil {
		logger.Log.Fatalf("声明队列失败: %v", err)
	}
	consumeVideoEvents(rabbitMQConn, cfg.RabbitMQ.Queue)
}

// 1、通过mq的TCP连接创建channel 2、注册消费者 3、持续消费消息，解析失败的直接丢弃 4、收到退出信号后返回
func consumeVideoEvents(conn *amqp.Connection, queue string) {
	ch, err := conn.Channel()
	if err != nil {
		logger.Log.Fatalf("无法打开Channel: %v", err)
	}
	defer ch.Close()

	msgs, err := ch.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack: 处理完再手动确认
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		logger.Log.Fatalf("无法注册视频事件消费者: %v", err)
	}

	go func() {
		// msgs是通道，连接关闭时才会结束循环
		for d := range msgs {
			logCtx := logger.Log.WithField("message_id", d.MessageId).WithField("redelivered", d.Redelivered)
			if err := handleVideoEvent(d.Body, logCtx); err != nil {
				logCtx.WithError(err).Error("消息JSON解析失败")
				// 坏消息重试也没用，不重新入队
				d.Nack(false, false)
				continue
			}
			d.Ack(false)
		}
	}()

	logger.Log.WithField("queue", queue).Info(" [*] 等待视频事件中. 按 CTRL+C 退出")
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("消费者退出")
}

// handleVideoEvent 解析一条事件并记录日志，只有消息本身无法解析时才返回error
func handleVideoEvent(body []byte, logCtx *logrus.Entry) error {
	var event dto.VideoEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return err
	}
	if event.Type != dto.EventVideoCreated && event.Type != dto.EventVideoUpdated {
		return fmt.Errorf("未知的事件类型: %q", event.Type)
	}
	logCtx.WithFields(logrus.Fields{
		"event_id":    event.EventID,
		"type":        event.Type,
		"video_id":    event.Video.ID,
		"name":        event.Video.Name,
		"views":       event.Video.Views,
		"likes":       event.Video.Likes,
		"occurred_at": event.OccurredAt,
	}).Info("收到视频变更事件")
	return nil
}
