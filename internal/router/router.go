package router

import (
	"Video_API/internal/handler"
	"Video_API/internal/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(mode string, videoHandler handler.VideoHandler) *gin.Engine {
	gin.SetMode(mode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.AccessLog(), middleware.Recovery(), middleware.Metrics())

	// 路径存在但方法不对时返回405而不是404
	r.HandleMethodNotAllowed = true
	// /video/3/ 不重定向到 /video/3，直接404
	r.RedirectTrailingSlash = false
	r.NoRoute(handler.NotFound)
	r.NoMethod(handler.MethodNotAllowed)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	videoGroup := r.Group("/video")
	{
		videoGroup.GET("/:video_id", videoHandler.GetVideo)
		videoGroup.PUT("/:video_id", videoHandler.PutVideo)
		videoGroup.PATCH("/:video_id", videoHandler.PatchVideo)
	}

	return r
}
