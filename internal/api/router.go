// internal/api/router.go
package api

import (
	"fmt"
	"os"

	"github.com/Corphon/SlideCrafter/internal/config"
	"github.com/Corphon/SlideCrafter/internal/di"
	"github.com/Corphon/SlideCrafter/internal/services"
	"github.com/Corphon/SlideCrafter/internal/utils"
	"github.com/gin-gonic/gin"
)

// 每个客户端IP的默认请求速率
const (
	defaultRatePerSec = 20
	defaultRateBurst  = 40
)

// SetupRouter 配置HTTP路由。
// 返回的 Handler 持有后台任务，服务器退出时需要调用 Close。
func SetupRouter(container *di.Container) (*gin.Engine, *Handler, error) {
	// 只从容器获取服务
	cfg, err := di.Resolve[*config.Config](container, di.ServiceConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("配置未正确初始化: %w", err)
	}
	deckService, err := di.Resolve[*services.DeckService](container, di.ServiceDeck)
	if err != nil {
		return nil, nil, fmt.Errorf("演示文稿服务未正确初始化: %w", err)
	}
	progressService, err := di.Resolve[*services.ProgressService](container, di.ServiceProgress)
	if err != nil {
		return nil, nil, fmt.Errorf("进度服务未正确初始化: %w", err)
	}
	exportService, err := di.Resolve[*services.ExportService](container, di.ServiceExport)
	if err != nil {
		return nil, nil, fmt.Errorf("导出服务未正确初始化: %w", err)
	}

	handler := NewHandler(cfg, deckService, progressService, exportService)
	if container.Has(di.ServiceUsage) {
		usageService, err := di.Resolve[*services.UsageService](container, di.ServiceUsage)
		if err != nil {
			return nil, nil, err
		}
		handler.UsageService = usageService
	}
	limiter := NewRateLimiter(defaultRatePerSec, defaultRateBurst)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(utils.GetLogger()))
	r.Use(corsMiddleware())

	// 静态文件服务
	if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
		r.Static("/static", cfg.StaticDir)
	}

	r.GET("/health", handler.HealthCheck)

	// WebSocket 支持
	r.GET("/ws/decks/:id", handler.DeckWebSocket)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	api.Use(limiter.RateLimitByIP())
	{
		api.GET("/languages", handler.GetLanguages)
		api.GET("/stats", handler.GetUsageStats)

		// ===============================
		// 演示文稿相关路由
		// ===============================
		decksGroup := api.Group("/decks")
		{
			decksGroup.GET("", handler.ListDecks)
			decksGroup.POST("", handler.CreateDeck)
			decksGroup.GET("/:id", handler.GetDeck)
			decksGroup.DELETE("/:id", handler.DeleteDeck)
			decksGroup.POST("/:id/upload", handler.UploadSource)
			decksGroup.PUT("/:id/source", handler.UpdateSource)
			decksGroup.PUT("/:id/step", handler.SetStep)
			decksGroup.GET("/:id/export", handler.ExportDeck)

			// 计划相关路由
			planGroup := decksGroup.Group("/:id/plan")
			{
				planGroup.POST("", handler.GeneratePlan)
				planGroup.PUT("", handler.ReplacePlan)
				planGroup.POST("/items", handler.AddPlanItem)
				planGroup.PATCH("/items/:planId", handler.UpdatePlanItem)
				planGroup.DELETE("/items/:planId", handler.RemovePlanItem)
				planGroup.POST("/items/:planId/move", handler.MovePlanItem)
				planGroup.PUT("/items/:planId/image", handler.SetPlanItemImage)
				planGroup.DELETE("/items/:planId/image", handler.ClearPlanItemImage)
			}

			// 生成相关路由
			decksGroup.POST("/:id/generate", handler.GenerateDeck)
			decksGroup.POST("/:id/slides/:planId/regenerate", handler.RegenerateSlide)
		}

		// ===============================
		// 任务进度相关
		// ===============================
		api.GET("/progress/:taskID", handler.SubscribeProgress)
		api.GET("/tasks/:taskID", handler.GetTask)
		api.POST("/cancel/:taskID", handler.CancelTask)

		// 调试路由
		api.GET("/ws/status", handler.GetWebSocketStatus)
	}

	return r, handler, nil
}
