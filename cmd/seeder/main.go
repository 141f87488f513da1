// cmd/seeder/main.go

package main

import (
	"Video_API/internal/config"
	"Video_API/internal/database"
	"Video_API/internal/model"
	"Video_API/internal/repository"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"

	"github.com/go-faker/faker/v4"
)

func main() {
	count := flag.Int("count", 500, "要创建的视频数量")
	startID := flag.Int64("start", 1, "第一个视频的id")
	flag.Parse()

	fmt.Println("🚀 开始填充测试数据...")

	// --- 1. 连接数据库，和server使用同一份配置 ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ 配置加载失败: %v", err)
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("❌ 无法连接到数据库: %v", err)
	}
	defer database.Close(db)
	fmt.Println("✅ 数据库连接成功!")

	// --- 2. 创建视频，已存在的id直接跳过 ---
	fmt.Println("🎬 正在创建视频...")
	created, skipped, err := seedVideos(context.Background(), repository.NewVideoRepository(db, nil), *startID, *count)
	if err != nil {
		log.Fatalf("❌ 创建视频失败: %v", err)
	}
	fmt.Printf("✅ 成功创建 %d 个视频, 跳过 %d 个已存在的id!\n", created, skipped)
	fmt.Println("🎉🎉🎉 所有测试数据填充完毕! 🎉🎉🎉")
}

// seedVideos 从startID开始连续创建count个随机视频
func seedVideos(ctx context.Context, repo repository.VideoRepository, startID int64, count int) (created, skipped int, err error) {
	for i := 0; i < count; i++ {
		video := &model.Video{
			ID:    startID + int64(i),
			Name:  fakeVideoName(),
			Views: rand.Int63n(1_000_000),
		}
		// 点赞数不超过播放量
		video.Likes = rand.Int63n(video.Views + 1)

		if err := repo.Insert(ctx, video); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				skipped++
				continue
			}
			return created, skipped, fmt.Errorf("插入视频 %d: %w", video.ID, err)
		}
		created++
	}
	return created, skipped, nil
}

// 随机句子作为视频名，超过列宽就截断
func fakeVideoName() string {
	name := []rune(faker.Sentence())
	if len(name) > 100 {
		name = name[:100]
	}
	return string(name)
}
