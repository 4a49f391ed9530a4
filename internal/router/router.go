package router

import (
	"net/http"

	_ "github.com/3Eeeecho/go-docflow/docs"
	"github.com/3Eeeecho/go-docflow/internal/config"
	"github.com/3Eeeecho/go-docflow/internal/handlers"
	"github.com/3Eeeecho/go-docflow/internal/pkg/xerr"
	"github.com/3Eeeecho/go-docflow/internal/services/document"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RouterConfig 包含初始化路由所需的所有依赖
type RouterConfig struct {
	cfg       *config.Config
	documents document.DocumentService
	uploads   *document.UploadManager
	auth      gin.HandlerFunc
	gatherer  prometheus.Gatherer
}

func NewRouterConfig(
	cfg *config.Config,
	documents document.DocumentService,
	uploads *document.UploadManager,
	auth gin.HandlerFunc,
	gatherer prometheus.Gatherer,
) *RouterConfig {
	return &RouterConfig{
		cfg:       cfg,
		documents: documents,
		uploads:   uploads,
		auth:      auth,
		gatherer:  gatherer,
	}
}

func InitRouter(routerCfg *RouterConfig) *gin.Engine {
	// 设置 Gin 模式，开发环境为 DebugMode，生产环境为 ReleaseMode
	if mode := routerCfg.cfg.Server.Mode; mode != "" {
		gin.SetMode(mode)
	}

	router := gin.Default() // 使用默认的 Gin 引擎，包含 Logger 和 Recovery 中间件

	// 全局中间件
	router.Use(cors.New(cors.Config{
		AllowOrigins:     routerCfg.cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	// Health Check 路由
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	if routerCfg.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(routerCfg.gatherer, promhttp.HandlerOpts{})))
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	v1.Use(routerCfg.auth)
	{
		// 文档相关路由
		docGroup := v1.Group("/documents")
		{
			docGroup.GET("", handlers.ListDocuments(routerCfg.documents))
			docGroup.POST("", handlers.CreateDocument(routerCfg.documents))
			docGroup.GET("/:id", handlers.GetDocument(routerCfg.documents))
			docGroup.DELETE("/:id", handlers.DeleteDocument(routerCfg.documents))
			docGroup.POST("/:id/versions", handlers.SupersedeDocument(routerCfg.documents))
			docGroup.PUT("/:id/review", handlers.ReviewDocument(routerCfg.documents))
			docGroup.GET("/:id/history", handlers.GetDocumentHistory(routerCfg.documents))
			docGroup.GET("/:id/download", handlers.DownloadDocument(routerCfg.documents))
			docGroup.GET("/:id/archive", handlers.ArchiveDocument(routerCfg.documents))
		}

		// 上传进度
		uploadGroup := v1.Group("/uploads")
		{
			uploadGroup.GET("/:upload_id", handlers.GetUploadProgress(routerCfg.uploads))
			uploadGroup.DELETE("/:upload_id", handlers.CancelUpload(routerCfg.uploads))
		}
	}

	router.NoRoute(func(c *gin.Context) {
		xerr.Error(c, http.StatusNotFound, xerr.NotFoundCode, "Route not found")
	})

	return router
}
