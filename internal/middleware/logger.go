package middleware

import (
	"Video_API/pkg/logger"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AccessLog 每个请求结束后用logrus记一条访问日志，5xx记Error，4xx记Warn
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		logCtx := logger.Log.WithFields(logrus.Fields{
			"request_id": c.GetString(RequestIDKey),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
		})
		switch {
		case status >= 500:
			logCtx.Error("请求处理完成")
		case status >= 400:
			logCtx.Warn("请求处理完成")
		default:
			logCtx.Info("请求处理完成")
		}
	}
}
