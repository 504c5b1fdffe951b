package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/b2b-sourcing/internal/config"
	"github.com/bitfantasy/b2b-sourcing/internal/middleware"
	"github.com/bitfantasy/b2b-sourcing/internal/shared/push"
	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/entity"
	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/handler"
	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/repository"
	"github.com/bitfantasy/b2b-sourcing/internal/sourcing/service"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting b2b-sourcing service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&entity.Sector{},
		&entity.Package{},
		&entity.Company{},
		&entity.User{},
		&entity.Material{},
		&entity.RFQ{},
		&entity.RFQItem{},
		&entity.RFQContact{},
		&entity.Quotation{},
		&entity.QuotationItem{},
		&entity.Notification{},
		&entity.ActivityLog{},
		&entity.DocumentSequence{},
	); err != nil {
		zapLogger.Warn("AutoMigrate warning", zap.Error(err))
	}
	zapLogger.Info("Database migration completed")

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化依赖
	repos := repository.NewRepositories(db)
	sequenceSvc := service.NewSequenceService(repos.Sequence)
	quotaSvc := service.NewQuotaService(repos.Company)
	rfqSvc := service.NewRFQService(repos.RFQ, repos.Company, repos.ActivityLog, quotaSvc, sequenceSvc)
	quotationSvc := service.NewQuotationService(db, repos.Quotation, repos.RFQ, repos.ActivityLog, sequenceSvc)
	comparisonSvc := service.NewComparisonService(repos.RFQ, repos.Quotation)
	notificationSvc := service.NewNotificationService(repos.Notification, repos.RFQ, repos.Quotation, repos.Company, zapLogger)

	// 推送网关（可选）
	if cfg.Push.BaseURL != "" {
		notificationSvc.SetPushClient(push.NewClient(cfg.Push.BaseURL, cfg.Push.AppID, cfg.Push.AppSecret))
		zapLogger.Info("Push gateway client initialized")
	}
	rfqSvc.SetNotifier(notificationSvc)
	quotationSvc.SetNotifier(notificationSvc)

	handlers := handler.NewHandlers(rfqSvc, quotationSvc, comparisonSvc, notificationSvc, quotaSvc)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, cfg, rdb, zapLogger)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config, rdb *redis.Client, zapLogger *zap.Logger) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1 — 全部需要认证
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(cfg.JWT.Secret))
	if cfg.RateLimit.Enabled {
		v1.Use(middleware.RateLimit(rdb, zapLogger, cfg.RateLimit.Limit, cfg.RateLimit.Window))
	}
	{
		// 询价单
		rfqs := v1.Group("/rfqs")
		{
			rfqs.GET("", h.RFQ.ListRFQs)
			rfqs.GET("/incoming", h.RFQ.ListIncoming)
			rfqs.POST("", h.RFQ.CreateRFQ)
			rfqs.GET("/:id", h.RFQ.GetRFQ)
			rfqs.PUT("/:id", h.RFQ.UpdateRFQ)
			rfqs.DELETE("/:id", h.RFQ.DeleteRFQ)
			rfqs.POST("/:id/publish", h.RFQ.PublishRFQ)
			rfqs.POST("/:id/start-review", h.RFQ.StartReview)
			rfqs.POST("/:id/close", h.RFQ.CloseRFQ)
			rfqs.POST("/:id/complete", h.RFQ.CompleteRFQ)
			rfqs.POST("/:id/cancel", h.RFQ.CancelRFQ)
			rfqs.POST("/:id/items", h.RFQ.AddItem)
			rfqs.POST("/:id/contacts", h.RFQ.AddContact)
			rfqs.GET("/:id/activity", h.RFQ.GetActivity)
			rfqs.GET("/:id/quotations", h.Quotation.ListByRFQ)
			rfqs.GET("/:id/comparison", h.Quotation.GetComparison)
		}
		v1.PUT("/rfq-items/:itemId", h.RFQ.UpdateItem)
		v1.DELETE("/rfq-items/:itemId", h.RFQ.RemoveItem)
		v1.DELETE("/rfq-contacts/:contactId", h.RFQ.RemoveContact)

		// 报价单
		quotations := v1.Group("/quotations")
		{
			quotations.GET("", h.Quotation.ListQuotations)
			quotations.POST("", h.Quotation.CreateQuotation)
			quotations.GET("/:id", h.Quotation.GetQuotation)
			quotations.PUT("/:id", h.Quotation.UpdateQuotation)
			quotations.DELETE("/:id", h.Quotation.DeleteQuotation)
			quotations.POST("/:id/submit", h.Quotation.SubmitQuotation)
			quotations.POST("/:id/withdraw", h.Quotation.WithdrawQuotation)
			quotations.POST("/:id/approve-all", h.Quotation.ApproveAll)
			quotations.POST("/:id/finalize", h.Quotation.FinalizeQuotation)
			quotations.POST("/:id/items", h.Quotation.AddItem)
			quotations.POST("/:id/recalculate", h.Quotation.RecalculateQuotation)
		}
		v1.PUT("/quotation-items/:itemId", h.Quotation.UpdateItem)
		v1.DELETE("/quotation-items/:itemId", h.Quotation.RemoveItem)
		v1.POST("/quotation-items/:itemId/approve", h.Quotation.ApproveItem)
		v1.POST("/quotation-items/:itemId/reject", h.Quotation.RejectItem)

		// 通知
		notifications := v1.Group("/notifications")
		{
			notifications.GET("", h.Notification.ListNotifications)
			notifications.GET("/unread-count", h.Notification.GetUnreadCount)
			notifications.POST("/read-all", h.Notification.MarkAllRead)
			notifications.POST("/:id/read", h.Notification.MarkRead)
		}

		// 公司
		v1.GET("/company/package-usage", h.Company.GetPackageUsage)

		// 定时任务（外部调度器触发，仅admin）
		jobs := v1.Group("/jobs")
		jobs.Use(middleware.RequireRole("admin"))
		{
			jobs.POST("/close-expired", h.Job.CloseExpired)
			jobs.POST("/notify-expiring", h.Job.NotifyExpiring)
		}
	}
}
