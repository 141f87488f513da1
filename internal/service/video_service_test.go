package service

import (
	"Video_API/internal/config"
	"Video_API/internal/data"
	"Video_API/internal/database"
	"Video_API/internal/dto"
	"Video_API/internal/model"
	"Video_API/internal/repository"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	queues []string
	events []dto.VideoEvent
}

func (p *fakePublisher) Publish(ctx context.Context, queue, messageID string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	var event dto.VideoEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return err
	}
	if event.EventID != messageID {
		return fmt.Errorf("messageID %q != event_id %q", messageID, event.EventID)
	}
	p.queues = append(p.queues, queue)
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) published() []dto.VideoEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]dto.VideoEvent(nil), p.events...)
}

type testEnv struct {
	svc  VideoService
	repo repository.VideoRepository
	mr   *miniredis.Miniredis
	pub  *fakePublisher
}

// setupService 用内存SQLite + miniredis + 假的Publisher组装VideoService
func setupService(tb testing.TB) *testEnv {
	tb.Helper()
	return setupServiceWith(tb, nil)
}

// setupServiceWith 允许用wrap替换service看到的repository
func setupServiceWith(tb testing.TB, wrap func(repository.VideoRepository) repository.VideoRepository) *testEnv {
	tb.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(tb.Name(), "/", "_"))
	db, err := database.Open(config.DatabaseConfig{Driver: config.DriverSQLite, DSN: dsn})
	if err != nil {
		tb.Fatalf("无法打开测试数据库: %v", err)
	}
	tb.Cleanup(func() { _ = database.Close(db) })

	mr := miniredis.RunT(tb)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	tb.Cleanup(func() { _ = rdb.Close() })

	repo := repository.NewVideoRepository(db, rdb)
	svcRepo := repo
	if wrap != nil {
		svcRepo = wrap(repo)
	}
	pub := &fakePublisher{}
	svc := NewVideoService(svcRepo, data.NewUnitOfWork(db, svcRepo), pub, "video.events.queue")
	return &testEnv{svc: svc, repo: repo, mr: mr, pub: pub}
}

func ptr[T any](v T) *T { return &v }

// hookRepo 替换FindByID的行为，WithTx返回的事务副本也带着同一个钩子
type hookRepo struct {
	repository.VideoRepository
	findByID func(ctx context.Context, videoID int64) (*model.Video, error)
}

func (r *hookRepo) FindByID(ctx context.Context, videoID int64) (*model.Video, error) {
	if r.findByID != nil {
		return r.findByID(ctx, videoID)
	}
	return r.VideoRepository.FindByID(ctx, videoID)
}

func (r *hookRepo) WithTx(tx *gorm.DB) repository.VideoRepository {
	return &hookRepo{VideoRepository: r.VideoRepository.WithTx(tx), findByID: r.findByID}
}

func TestVideoService_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	created, err := env.svc.CreateVideo(ctx, &model.Video{ID: 1, Name: "A", Views: 5, Likes: 1})
	if err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}
	want := model.Video{ID: 1, Name: "A", Views: 5, Likes: 1}
	if *created != want {
		t.Errorf("CreateVideo = %+v, want %+v", created, want)
	}

	got, err := env.svc.GetVideo(ctx, 1)
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if *got != want {
		t.Errorf("GetVideo = %+v, want %+v", got, want)
	}

	events := env.pub.published()
	if len(events) != 1 || events[0].Type != dto.EventVideoCreated || events[0].Video.ID != 1 {
		t.Errorf("events = %+v, want one video.created", events)
	}
	if env.pub.queues[0] != "video.events.queue" {
		t.Errorf("queue = %q", env.pub.queues[0])
	}
}

func TestVideoService_CreateTaken(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	if _, err := env.svc.CreateVideo(ctx, &model.Video{ID: 1, Name: "A", Views: 5, Likes: 1}); err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}
	_, err := env.svc.CreateVideo(ctx, &model.Video{ID: 1, Name: "Z", Views: 0, Likes: 0})
	if !errors.Is(err, ErrVideoIDTaken) {
		t.Fatalf("err = %v, want ErrVideoIDTaken", err)
	}

	got, err := env.svc.GetVideo(ctx, 1)
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if got.Name != "A" || got.Views != 5 || got.Likes != 1 {
		t.Errorf("重复PUT修改了原记录: %+v", got)
	}
	if n := len(env.pub.published()); n != 1 {
		t.Errorf("published %d events, want 1", n)
	}
}

func TestVideoService_GetMissing(t *testing.T) {
	env := setupService(t)
	if _, err := env.svc.GetVideo(context.Background(), 42); !errors.Is(err, ErrVideoNotFound) {
		t.Fatalf("err = %v, want ErrVideoNotFound", err)
	}
	if env.mr.Exists("video:info:42") {
		t.Error("不存在的视频不应写缓存")
	}
}

func TestVideoService_UpdatePartial(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	if _, err := env.svc.CreateVideo(ctx, &model.Video{ID: 1, Name: "A", Views: 5, Likes: 1}); err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}
	// 先读一次，让缓存里是旧值
	if _, err := env.svc.GetVideo(ctx, 1); err != nil {
		t.Fatalf("GetVideo: %v", err)
	}

	updated, err := env.svc.UpdateVideo(ctx, 1, model.VideoPatch{Views: ptr(int64(10))})
	if err != nil {
		t.Fatalf("UpdateVideo: %v", err)
	}
	want := model.Video{ID: 1, Name: "A", Views: 10, Likes: 1}
	if *updated != want {
		t.Errorf("UpdateVideo = %+v, want %+v", updated, want)
	}

	got, err := env.svc.GetVideo(ctx, 1)
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if *got != want {
		t.Errorf("更新后读到旧值: %+v, want %+v", got, want)
	}

	events := env.pub.published()
	if len(events) != 2 || events[1].Type != dto.EventVideoUpdated || events[1].Video.Views != 10 {
		t.Errorf("events = %+v, want created + updated", events)
	}
}

func TestVideoService_UpdateEmptyPatch(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	if _, err := env.svc.CreateVideo(ctx, &model.Video{ID: 1, Name: "A", Views: 5, Likes: 1}); err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}
	got, err := env.svc.UpdateVideo(ctx, 1, model.VideoPatch{})
	if err != nil {
		t.Fatalf("UpdateVideo: %v", err)
	}
	if got.Name != "A" || got.Views != 5 || got.Likes != 1 {
		t.Errorf("UpdateVideo = %+v", got)
	}
	if n := len(env.pub.published()); n != 1 {
		t.Errorf("空patch不应发事件, published = %d", n)
	}
}

func TestVideoService_UpdateMissing(t *testing.T) {
	env := setupService(t)
	_, err := env.svc.UpdateVideo(context.Background(), 7, model.VideoPatch{Name: ptr("X")})
	if !errors.Is(err, ErrVideoNotFound) {
		t.Fatalf("err = %v, want ErrVideoNotFound", err)
	}
	if n := len(env.pub.published()); n != 0 {
		t.Errorf("published = %d, want 0", n)
	}
}

func TestVideoService_PublishFailureIgnored(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)
	env.pub.err = errors.New("broker down")

	if _, err := env.svc.CreateVideo(ctx, &model.Video{ID: 3, Name: "C", Views: 1, Likes: 1}); err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}
	if _, err := env.repo.FindByID(ctx, 3); err != nil {
		t.Fatalf("发布失败不应影响写库: %v", err)
	}
}

func TestVideoService_RedisDown(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	if _, err := env.svc.CreateVideo(ctx, &model.Video{ID: 1, Name: "A", Views: 5, Likes: 1}); err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}
	env.mr.Close()

	got, err := env.svc.GetVideo(ctx, 1)
	if err != nil {
		t.Fatalf("Redis不可用时应降级到数据库: %v", err)
	}
	if got.Name != "A" {
		t.Errorf("GetVideo = %+v", got)
	}
	if _, err := env.svc.UpdateVideo(ctx, 1, model.VideoPatch{Likes: ptr(int64(2))}); err != nil {
		t.Fatalf("UpdateVideo: %v", err)
	}
}

func TestVideoService_ConcurrentGet(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	if _, err := env.svc.CreateVideo(ctx, &model.Video{ID: 1, Name: "A", Views: 5, Likes: 1}); err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}
	env.mr.FlushAll()

	var wg sync.WaitGroup
	results := make([]*model.Video, 20)
	errs := make([]error, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.svc.GetVideo(ctx, 1)
		}(i)
	}
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("GetVideo[%d]: %v", i, errs[i])
		}
		if results[i].Name != "A" {
			t.Errorf("GetVideo[%d] = %+v", i, results[i])
		}
	}
	// 每个调用者拿到的是独立副本
	results[0].Name = "changed"
	if results[1].Name != "A" {
		t.Error("并发调用者共享了同一个对象")
	}
}

// 缓存失效时大量并发读同一个视频，SingleFlight合并数据库查询
func BenchmarkGetVideo_CacheBreakdown(b *testing.B) {
	ctx := context.Background()
	env := setupService(b)
	if _, err := env.svc.CreateVideo(ctx, &model.Video{ID: 1, Name: "A", Views: 5, Likes: 1}); err != nil {
		b.Fatalf("CreateVideo: %v", err)
	}
	env.mr.FlushAll()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := env.svc.GetVideo(ctx, 1); err != nil {
				b.Errorf("GetVideo failed: %v", err)
			}
		}
	})
}

// 发起查询的请求断开后，合并进同一次查询的其他请求仍然拿到结果
func TestVideoService_ConcurrentGetFirstCallerCanceled(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	env := setupServiceWith(t, func(repo repository.VideoRepository) repository.VideoRepository {
		return &hookRepo{
			VideoRepository: repo,
			findByID: func(ctx context.Context, videoID int64) (*model.Video, error) {
				once.Do(func() { close(started) })
				<-release
				return repo.FindByID(ctx, videoID)
			},
		}
	})
	if err := env.repo.Insert(context.Background(), &model.Video{ID: 1, Name: "A", Views: 5, Likes: 1}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := env.svc.GetVideo(ctxA, 1)
		errA <- err
	}()
	<-started

	type result struct {
		video *model.Video
		err   error
	}
	resB := make(chan result, 1)
	go func() {
		v, err := env.svc.GetVideo(context.Background(), 1)
		resB <- result{v, err}
	}()
	// 给B时间加入同一次查询
	time.Sleep(50 * time.Millisecond)
	cancelA()
	close(release)

	b := <-resB
	if b.err != nil {
		t.Fatalf("未取消的请求拿到了错误: %v", b.err)
	}
	if b.video.Name != "A" {
		t.Errorf("GetVideo = %+v", b.video)
	}
	<-errA
}

// FindByID没发现冲突时，插入时的主键冲突同样返回ErrVideoIDTaken
func TestVideoService_CreateTakenAtInsert(t *testing.T) {
	ctx := context.Background()
	env := setupServiceWith(t, func(repo repository.VideoRepository) repository.VideoRepository {
		return &hookRepo{
			VideoRepository: repo,
			findByID: func(ctx context.Context, videoID int64) (*model.Video, error) {
				return nil, repository.ErrNotFound
			},
		}
	})
	if err := env.repo.Insert(ctx, &model.Video{ID: 7, Name: "A", Views: 5, Likes: 1}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	_, err := env.svc.CreateVideo(ctx, &model.Video{ID: 7, Name: "Z", Views: 0, Likes: 0})
	if !errors.Is(err, ErrVideoIDTaken) {
		t.Fatalf("err = %v, want ErrVideoIDTaken", err)
	}
	got, err := env.repo.FindByID(ctx, 7)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Name != "A" {
		t.Errorf("冲突的插入修改了原记录: %+v", got)
	}
	if n := len(env.pub.published()); n != 0 {
		t.Errorf("published = %d, want 0", n)
	}
}
