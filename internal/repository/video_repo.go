package repository

import (
	"Video_API/internal/model"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VideoRepository interface {
	FindByID(ctx context.Context, videoID int64) (*model.Video, error)
	// 带锁的查找
	FindByIDForUpdate(ctx context.Context, videoID int64) (*model.Video, error)
	Insert(ctx context.Context, video *model.Video) error
	Update(ctx context.Context, videoID int64, patch model.VideoPatch) (*model.Video, error)

	GetVideoCache(ctx context.Context, videoID int64) (*model.Video, error)
	SetVideoCache(ctx context.Context, video *model.Video) error
	SetVideoCacheNX(ctx context.Context, video *model.Video) (bool, error)
	DeleteVideoCache(ctx context.Context, videoID int64) error

	WithTx(tx *gorm.DB) VideoRepository
}

type videoRepository struct {
	db  *gorm.DB
	rdb *redis.Client // 为nil时缓存相关方法全部是空操作
}

func NewVideoRepository(db *gorm.DB, rdb *redis.Client) VideoRepository {
	return &videoRepository{
		db:  db,
		rdb: rdb,
	}
}

// WithTx 返回绑定到事务tx的副本，事务中不操作Redis
func (r *videoRepository) WithTx(tx *gorm.DB) VideoRepository {
	return &videoRepository{
		db: tx,
	}
}

// 点查：SELECT * FROM videos WHERE id = ? LIMIT 1，没找到返回ErrNotFound
func (r *videoRepository) FindByID(ctx context.Context, videoID int64) (*model.Video, error) {
	var video model.Video
	err := r.db.WithContext(ctx).Where("id = ?", videoID).First(&video).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &video, nil
}

// SELECT ... FOR UPDATE，锁的生命周期和所在事务绑定；SQLite方言会忽略锁子句
func (r *videoRepository) FindByIDForUpdate(ctx context.Context, videoID int64) (*model.Video, error) {
	var video model.Video
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", videoID).
		First(&video).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &video, nil
}

// Insert 依赖数据库主键约束保证唯一，冲突返回ErrDuplicateKey
func (r *videoRepository) Insert(ctx context.Context, video *model.Video) error {
	err := r.db.WithContext(ctx).Create(video).Error
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

// Update 只写patch中非nil的列，其余保持不变；patch为空时不发任何UPDATE
func (r *videoRepository) Update(ctx context.Context, videoID int64, patch model.VideoPatch) (*model.Video, error) {
	video, err := r.FindByIDForUpdate(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return video, nil
	}
	// 用Where指定主键，id为0时Model(video)会被gorm当成“没有条件”
	err = r.db.WithContext(ctx).
		Model(&model.Video{}).
		Where("id = ?", videoID).
		Updates(patch.Columns()).Error
	if err != nil {
		return nil, err
	}
	patch.Apply(video)
	return video, nil
}

// 返回存储单个视频信息的字符串Key
func (r *videoRepository) keyVideoInfo(videoID int64) string {
	return fmt.Sprintf("video:info:%d", videoID)
}

// GetVideoCache 缓存不存在时返回(nil, nil)，Redis本身出错才返回error
func (r *videoRepository) GetVideoCache(ctx context.Context, videoID int64) (*model.Video, error) {
	if r.rdb == nil {
		return nil, nil
	}
	videoJSON, err := r.rdb.Get(ctx, r.keyVideoInfo(videoID)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var video model.Video
	if err := json.Unmarshal([]byte(videoJSON), &video); err != nil {
		return nil, err
	}
	return &video, nil
}

// 过期时间5分钟再加上随机秒数，防止缓存雪崩
func cacheExpiration() time.Duration {
	return time.Minute*5 + time.Duration(rand.Intn(60))*time.Second
}

// SetVideoCache 覆盖写入，写路径提交后调用
func (r *videoRepository) SetVideoCache(ctx context.Context, video *model.Video) error {
	if r.rdb == nil {
		return nil
	}
	videoJSON, err := json.Marshal(video)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.keyVideoInfo(video.ID), videoJSON, cacheExpiration()).Err()
}

// SetVideoCacheNX 只在key不存在时写入，读路径回填缓存用，避免旧值覆盖写路径刚写入的新值
func (r *videoRepository) SetVideoCacheNX(ctx context.Context, video *model.Video) (bool, error) {
	if r.rdb == nil {
		return false, nil
	}
	videoJSON, err := json.Marshal(video)
	if err != nil {
		return false, err
	}
	return r.rdb.SetNX(ctx, r.keyVideoInfo(video.ID), videoJSON, cacheExpiration()).Result()
}

func (r *videoRepository) DeleteVideoCache(ctx context.Context, videoID int64) error {
	if r.rdb == nil {
		return nil
	}
	return r.rdb.Del(ctx, r.keyVideoInfo(videoID)).Err()
}
