package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/3Eeeecho/go-docflow/internal/config"
	"github.com/3Eeeecho/go-docflow/internal/middlewares"
	"github.com/3Eeeecho/go-docflow/internal/pkg/cache"
	"github.com/3Eeeecho/go-docflow/internal/pkg/logger"
	"github.com/3Eeeecho/go-docflow/internal/pkg/metrics"
	"github.com/3Eeeecho/go-docflow/internal/pkg/mq"
	"github.com/3Eeeecho/go-docflow/internal/pkg/mq/worker"
	"github.com/3Eeeecho/go-docflow/internal/router"
	"github.com/3Eeeecho/go-docflow/internal/services/catalog"
	"github.com/3Eeeecho/go-docflow/internal/services/document"
	"github.com/3Eeeecho/go-docflow/internal/services/search"
	"github.com/3Eeeecho/go-docflow/internal/setup"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	router         *gin.Engine
	httpServer     *http.Server
	db             *gorm.DB
	redisClient    *redis.Client
	rabbitMQClient *mq.RabbitMQClient
	firebase       *setup.FirebaseClients
	resync         *cron.Cron
}

// NewServer 负责构建所有依赖
func NewServer(cfg *config.Config) (*Server, error) {
	ctx := context.Background()

	// 初始化 Firebase (Firestore / Auth / Storage 任一启用时)
	var fb *setup.FirebaseClients
	if cfg.UsesFirebase() {
		var err error
		if fb, err = setup.InitFirebase(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to initialize Firebase: %w", err)
		}
	}

	// 初始化文档仓库
	repo, db, err := setup.InitDocumentRepository(cfg, fb)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document repository: %w", err)
	}

	// 初始化 Redis 连接
	redisClient, err := setup.InitRedis(ctx, &cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}
	redisCache := cache.NewRedisCache(redisClient)

	// 初始化存储服务
	blobs, err := setup.InitBlobStore(cfg, fb)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}

	// 初始化Elasticsearch
	esClient, err := setup.InitElasticsearchClient(&cfg.Elasticsearch)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Elasticsearch: %w", err)
	}
	var index search.DocumentIndex
	if esClient != nil {
		index = search.NewDocumentIndex(esClient, cfg.Elasticsearch.Index)
		if err := index.EnsureIndex(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure search index: %w", err)
		}
	}

	// 初始化rabbitmq，连接失败时不发布文档事件
	var publisher mq.Publisher
	rabbitMQClient, err := mq.NewRabbitMQClient(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Warn("NewServer: Failed to connect to RabbitMQ, document events disabled", zap.Error(err))
		rabbitMQClient = nil
	} else {
		publisher = rabbitMQClient
		if _, err := rabbitMQClient.DeclareQueue(mq.DocumentEventsQueue); err != nil {
			return nil, fmt.Errorf("failed to declare %s: %w", mq.DocumentEventsQueue, err)
		}
	}

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	//  初始化 Services
	cat := catalog.NewCatalog(repo, redisCache, index, m, catalog.Options{
		CacheTTL:        cfg.Catalog.CacheTTL,
		DefaultPageSize: cfg.Catalog.PageSize,
	})
	if _, err := cat.Refresh(ctx); err != nil {
		logger.Warn("NewServer: Initial catalog refresh failed", zap.Error(err))
	}
	resync, err := catalog.StartResync(cat, cfg.Catalog.ResyncSchedule)
	if err != nil {
		return nil, err
	}
	uploads := document.NewUploadManager(blobs, redisCache)
	docService := document.NewDocumentService(repo, blobs, uploads, cat, document.ServiceDeps{
		Publisher:  publisher,
		Metrics:    m,
		PathPrefix: cfg.Storage.PathPrefix,
	})

	// 启动所有后台 Worker
	if rabbitMQClient != nil {
		worker.StartAllWorkers(rabbitMQClient, repo, index)
	}

	// 认证中间件
	var verifier middlewares.TokenVerifier
	if fb != nil && fb.Auth != nil {
		verifier = fb.Auth
	}
	authMiddleware, err := middlewares.NewAuthMiddleware(cfg, verifier)
	if err != nil {
		return nil, fmt.Errorf("failed to build auth middleware: %w", err)
	}

	// 初始化 Gin 引擎和注册路由
	// 将所有依赖传入 RouterConfig
	engine := router.InitRouter(router.NewRouterConfig(cfg, docService, uploads, authMiddleware, prometheus.DefaultGatherer))

	addr := ":" + cfg.Server.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{
		router:         engine,
		httpServer:     httpServer,
		db:             db,
		redisClient:    redisClient,
		rabbitMQClient: rabbitMQClient,
		firebase:       fb,
		resync:         resync,
	}, nil
}

// Run 启动服务器和 Worker，并处理优雅关机
func (s *Server) Run(ctx context.Context, stopChan chan os.Signal) {
	// 确保在应用关闭时，所有连接都被释放
	defer setup.CloseMySQLDB(s.db)
	defer setup.CloseRedis(s.redisClient)
	defer s.firebase.Close()
	if s.rabbitMQClient != nil {
		defer s.rabbitMQClient.Close()
	}
	if s.resync != nil {
		// 等待正在执行的重建结束
		defer func() { <-s.resync.Stop().Done() }()
	}

	// 启动 HTTP 服务器
	go func() {
		logger.Info(fmt.Sprintf("Server is running on %s", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// 等待停止信号
	select {
	case <-stopChan:
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	// 优雅关机
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	logger.Info("Server exited gracefully")
}
