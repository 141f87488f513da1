package handler

import (
	"Video_API/internal/dto"
	"Video_API/internal/service"
	"Video_API/pkg/logger"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type VideoHandler interface {
	GetVideo(c *gin.Context)
	PutVideo(c *gin.Context)
	PatchVideo(c *gin.Context)
}

type videoHandler struct {
	VideoService service.VideoService
}

func NewVideoHandler(videoService service.VideoService) VideoHandler {
	return &videoHandler{VideoService: videoService}
}

// 路径里的video_id只接受非负十进制整数，不带符号，其他一律当作路由不存在
func parseVideoID(c *gin.Context) (int64, bool) {
	videoID, err := strconv.ParseUint(c.Param("video_id"), 10, 63)
	if err != nil {
		NotFound(c)
		return 0, false
	}
	return int64(videoID), true
}

// 查找视频：1、解析路径中的videoID 2、service层先查缓存再查库 3、通过dto返回
func (h *videoHandler) GetVideo(c *gin.Context) {
	videoID, ok := parseVideoID(c)
	if !ok {
		return
	}
	logCtx := logger.Log.WithField("video_id", videoID)

	video, err := h.VideoService.GetVideo(c.Request.Context(), videoID)
	if err != nil {
		if errors.Is(err, service.ErrVideoNotFound) {
			logCtx.Info("视频不存在")
			sendErrorResponse(c, http.StatusNotFound, "Could not find video with that id")
			return
		}
		logCtx.WithError(err).Error("查找视频失败")
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, dto.ToVideoResponse(video))
}

// 创建视频：1、解析videoID和参数 2、service层在事务中检查id是否被占用并插入 3、201返回新记录
func (h *videoHandler) PutVideo(c *gin.Context) {
	videoID, ok := parseVideoID(c)
	if !ok {
		return
	}
	logCtx := logger.Log.WithField("video_id", videoID)

	var req dto.PutVideoRequest
	if !bindArgs(c, &req) {
		logCtx.Info("创建视频参数校验失败")
		return
	}

	video, err := h.VideoService.CreateVideo(c.Request.Context(), req.ToVideo(videoID))
	if err != nil {
		if errors.Is(err, service.ErrVideoIDTaken) {
			logCtx.Info("视频id已被占用")
			sendErrorResponse(c, http.StatusConflict, "Video id taken...")
			return
		}
		logCtx.WithError(err).Error("创建视频失败")
		internalError(c)
		return
	}
	logCtx.Info("视频创建成功")
	c.JSON(http.StatusCreated, dto.ToVideoResponse(video))
}

// 更新视频：只修改请求里带了“真值”的字段
func (h *videoHandler) PatchVideo(c *gin.Context) {
	videoID, ok := parseVideoID(c)
	if !ok {
		return
	}
	logCtx := logger.Log.WithField("video_id", videoID)

	var req dto.PatchVideoRequest
	if !bindArgs(c, &req) {
		logCtx.Info("更新视频参数校验失败")
		return
	}

	video, err := h.VideoService.UpdateVideo(c.Request.Context(), videoID, req.ToPatch())
	if err != nil {
		if errors.Is(err, service.ErrVideoNotFound) {
			logCtx.Info("要更新的视频不存在")
			sendErrorResponse(c, http.StatusNotFound, "Video doesn't exist, cannot update")
			return
		}
		logCtx.WithError(err).Error("更新视频失败")
		internalError(c)
		return
	}
	logCtx.Info("视频更新成功")
	c.JSON(http.StatusOK, dto.ToVideoResponse(video))
}
