// Package server HTTP 接口：上传、曲目查询、分享页、分轨文件和播放器 WebSocket。
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StemShare/cache"
	"StemShare/config"
	"StemShare/core/player"
	"StemShare/core/upload"
	"StemShare/db"
	"StemShare/logger"
	"StemShare/repository"
	"StemShare/storage"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
)

// StemStore 分轨对象存储：上传写入，/stems/ 读取
type StemStore interface {
	upload.ObjectStore
	Open(ctx context.Context, path string) (*storage.Object, error)
}

// Server HTTP 服务及其依赖
type Server struct {
	cfg      *config.Config
	tracks   repository.TrackRepository
	store    StemStore
	uploader *upload.Orchestrator
	hub      *player.Hub
	limiter  *clientLimiter
	router   *mux.Router

	// 播放会话的生命周期跟随服务而不是单个请求
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// New 组装路由。调用方负责 Close。
func New(cfg *config.Config, tracks repository.TrackRepository, store StemStore) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:        cfg,
		tracks:     tracks,
		store:      store,
		uploader:   upload.NewOrchestrator(store, tracks),
		hub:        player.NewHub(),
		limiter:    newClientLimiter(cfg.UploadPerMin),
		baseCtx:    ctx,
		cancelBase: cancel,
	}
	go s.hub.Run()
	s.router = s.routes()
	return s
}

// ServeHTTP 实现 http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close 结束所有播放会话
func (s *Server) Close() {
	s.cancelBase()
	s.hub.Stop()
	s.limiter.stop()
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(requestLogger, cors)

	api := router.PathPrefix("/api").Subrouter()
	api.Handle("/tracks", s.limiter.middleware(http.HandlerFunc(s.UploadHandler))).Methods(http.MethodPost)
	api.HandleFunc("/tracks/{id}", s.GetTrackHandler).Methods(http.MethodGet)
	api.HandleFunc("/classify", s.ClassifyHandler).Methods(http.MethodPost)
	api.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet)

	router.HandleFunc("/s/{id}", s.SharePageHandler).Methods(http.MethodGet)
	router.HandleFunc("/stems/{trackId}/{file}", s.StemFileHandler).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/ws/player/{id}", s.PlayerSocketHandler).Methods(http.MethodGet)
	router.PathPrefix("/assets/").Handler(assetHandler())
	router.HandleFunc("/", s.UploadPageHandler).Methods(http.MethodGet)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		renderNotFound(w)
	})

	return router
}

// Start 加载配置、连接依赖并启动 HTTP 服务，收到 SIGINT/SIGTERM 后优雅退出
func Start() {
	cfg := config.Load()

	if err := logger.InitLogger(logger.Config{
		Level:      cfg.LogLevel,
		OutputPath: cfg.LogFile,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
	}); err != nil {
		panic(err)
	}
	defer logger.Sync()

	tracks, closeDeps, err := Dependencies(context.Background(), cfg)
	if err != nil {
		logger.Fatal("初始化依赖失败", logger.ErrorField(err))
	}
	defer closeDeps()

	store, err := storage.NewMinioStore(cfg)
	if err != nil {
		logger.Fatal("初始化 MinIO 失败", logger.ErrorField(err))
	}
	if err := store.EnsureBucket(context.Background()); err != nil {
		logger.Fatal("初始化 MinIO 存储桶失败", logger.ErrorField(err))
	}

	app := New(cfg, tracks, store)
	defer app.Close()

	// 上传和播放器连接都是长请求，不设置写超时
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("服务启动",
			logger.String("addr", cfg.HTTPAddr),
			logger.String("origin", cfg.PublicOrigin),
			logger.String("bucket", store.Bucket()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("服务启动失败", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	app.Close()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("服务强制关闭", logger.ErrorField(err))
	}
	logger.Info("服务已停止")
}

// Dependencies 连接元数据库，按配置包一层 Redis 缓存。Redis 不可用时降级为直连数据库。
func Dependencies(ctx context.Context, cfg *config.Config) (repository.TrackRepository, func(), error) {
	gdb, err := db.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	closers := []func(){func() { _ = db.Close(gdb) }}
	tracks := repository.NewGormTrackRepository(gdb)

	if cfg.RedisEnabled {
		var client *redis.Client
		client, err = cache.Connect(ctx, cfg)
		if err != nil {
			logger.Warn("Redis 不可用，曲目缓存已关闭", logger.ErrorField(err))
		} else {
			closers = append(closers, func() { _ = client.Close() })
			tracks = repository.NewCachedTrackRepository(tracks, cache.NewTrackCache(client, cfg.TrackCacheTTL))
			logger.Info("曲目缓存已启用", logger.Duration("ttl", cfg.TrackCacheTTL))
		}
	}

	return tracks, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}
