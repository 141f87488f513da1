package data

import (
	"Video_API/internal/repository"
	"context"

	"gorm.io/gorm"
)

// UnitOfWork 定义了事务管理器的接口
type UnitOfWork interface {
	// Execute 将一个函数包裹在数据库事务中执行，并为它提供绑定了事务的Repositories。
	// fn返回error则回滚，返回nil则提交。
	Execute(ctx context.Context, fn func(repos *TransactionalRepositories) error) error
}

// TransactionalRepositories 持有在同一个事务中操作的Repository
type TransactionalRepositories struct {
	VideoRepo repository.VideoRepository
}

type gormUnitOfWork struct {
	db        *gorm.DB
	videoRepo repository.VideoRepository
}

// NewUnitOfWork 接收的是原始的、非事务的repository
func NewUnitOfWork(db *gorm.DB, videoRepo repository.VideoRepository) UnitOfWork {
	return &gormUnitOfWork{
		db:        db,
		videoRepo: videoRepo,
	}
}

func (u *gormUnitOfWork) Execute(ctx context.Context, fn func(repos *TransactionalRepositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 临时创建“一次性”的、绑定了事务tx的Repo副本
		return fn(&TransactionalRepositories{
			VideoRepo: u.videoRepo.WithTx(tx),
		})
	})
}
