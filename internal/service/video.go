package service

import (
	"Video_API/internal/data"
	"Video_API/internal/dto"
	"Video_API/internal/model"
	"Video_API/internal/repository"
	"Video_API/pkg/logger"
	"Video_API/pkg/rabbitmq"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var (
	ErrVideoNotFound = errors.New("video not found")
	ErrVideoIDTaken  = errors.New("video id taken")
)

type VideoService interface {
	GetVideo(ctx context.Context, videoID int64) (*model.Video, error)
	CreateVideo(ctx context.Context, video *model.Video) (*model.Video, error)
	UpdateVideo(ctx context.Context, videoID int64, patch model.VideoPatch) (*model.Video, error)
}

type videoService struct {
	sf singleflight.Group

	videoRepo repository.VideoRepository
	uow       data.UnitOfWork

	publisher rabbitmq.Publisher // 为nil时不发事件
	queue     string
}

func NewVideoService(videoRepo repository.VideoRepository, uow data.UnitOfWork, publisher rabbitmq.Publisher, queue string) VideoService {
	return &videoService{
		videoRepo: videoRepo,
		uow:       uow,
		publisher: publisher,
		queue:     queue,
	}
}

// 根据videoID查找视频：1、查找Redis缓存 2、通过SingleFlight进行数据库查找
func (s *videoService) GetVideo(ctx context.Context, videoID int64) (*model.Video, error) {
	logCtx := logger.Log.WithField("video_id", videoID)

	video, err := s.videoRepo.GetVideoCache(ctx, videoID)
	if err == nil && video != nil {
		logCtx.Debug("命中视频缓存")
		return video, nil
	}
	// Redis本身出错，降级到数据库
	if err != nil {
		logCtx.WithError(err).Warn("读取视频缓存失败，降级查询数据库")
	}

	key := fmt.Sprintf("get_video_%d", videoID)
	result, err, shared := s.sf.Do(key, func() (interface{}, error) {
		// 结果由所有等待者共享，不能因为发起者断开而取消
		sfCtx := context.WithoutCancel(ctx)
		dbVideo, dbErr := s.videoRepo.FindByID(sfCtx, videoID)
		if dbErr != nil {
			return nil, dbErr
		}
		// 只在key不存在时回填，不覆盖写路径刚写入的新值
		if _, cacheErr := s.videoRepo.SetVideoCacheNX(sfCtx, dbVideo); cacheErr != nil {
			logCtx.WithError(cacheErr).Warn("回填视频缓存失败")
		}
		return dbVideo, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}
	if shared {
		logCtx.Debug("SingleFlight合并了并发查询")
	}
	// 结果在并发调用者之间共享，返回副本
	copied := *result.(*model.Video)
	return &copied, nil
}

// CreateVideo 在一个事务里完成“检查是否存在 + 插入”，id已存在返回ErrVideoIDTaken
func (s *videoService) CreateVideo(ctx context.Context, video *model.Video) (*model.Video, error) {
	err := s.uow.Execute(ctx, func(repos *data.TransactionalRepositories) error {
		_, err := repos.VideoRepo.FindByID(ctx, video.ID)
		if err == nil {
			return ErrVideoIDTaken
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		// 并发PUT同一个id时由主键约束兜底
		if err := repos.VideoRepo.Insert(ctx, video); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return ErrVideoIDTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.refreshCache(ctx, video)
	s.publishVideoEvent(ctx, dto.EventVideoCreated, video)
	return video, nil
}

// UpdateVideo 只修改patch里的字段；patch为空时原样返回，不写库也不发事件
func (s *videoService) UpdateVideo(ctx context.Context, videoID int64, patch model.VideoPatch) (*model.Video, error) {
	var updated *model.Video
	err := s.uow.Execute(ctx, func(repos *data.TransactionalRepositories) error {
		video, err := repos.VideoRepo.Update(ctx, videoID, patch)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrVideoNotFound
			}
			return err
		}
		updated = video
		return nil
	})
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return updated, nil
	}

	s.refreshCache(ctx, updated)
	s.publishVideoEvent(ctx, dto.EventVideoUpdated, updated)
	return updated, nil
}

// 事务提交后覆盖缓存，写失败就删掉，避免读到旧值
func (s *videoService) refreshCache(ctx context.Context, video *model.Video) {
	err := s.videoRepo.SetVideoCache(ctx, video)
	if err == nil {
		return
	}
	logCtx := logger.Log.WithField("video_id", video.ID)
	logCtx.WithError(err).Warn("写入视频缓存失败，尝试删除旧缓存")
	if delErr := s.videoRepo.DeleteVideoCache(ctx, video.ID); delErr != nil {
		logCtx.WithError(delErr).Error("删除视频缓存失败")
	}
}

// 发事件失败只记日志，数据已经提交，不影响请求结果
func (s *videoService) publishVideoEvent(ctx context.Context, eventType string, video *model.Video) {
	if s.publisher == nil {
		return
	}
	event := dto.VideoEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		Video:      dto.ToVideoResponse(video),
		OccurredAt: time.Now().UTC(),
	}
	logCtx := logger.Log.WithFields(logrus.Fields{
		"video_id": video.ID,
		"event_id": event.EventID,
		"type":     eventType,
	})
	body, err := json.Marshal(event)
	if err != nil {
		logCtx.WithError(err).Error("序列化视频事件失败")
		return
	}
	if err := s.publisher.Publish(ctx, s.queue, event.EventID, body); err != nil {
		logCtx.WithError(err).Error("发布视频事件失败")
		return
	}
	logCtx.Info("视频事件已发布")
}
