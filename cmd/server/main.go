// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Corphon/SlideCrafter/internal/api"
	"github.com/Corphon/SlideCrafter/internal/app"
	"github.com/Corphon/SlideCrafter/internal/config"
	"github.com/Corphon/SlideCrafter/internal/di"
	"github.com/Corphon/SlideCrafter/internal/utils"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 30 * time.Second
	janitorInterval = 5 * time.Minute
	taskRetention   = 30 * time.Minute
)

func main() {
	log.Println("🚀 启动 SlideCrafter 服务器...")

	// 1. 加载配置
	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	log.Printf("✅ 配置加载完成，端口: %s", cfg.Port)

	// 2. 创建必要的目录
	if err := cfg.EnsureDirs(); err != nil {
		log.Fatalf("创建目录失败: %v", err)
	}
	log.Println("✅ 目录结构创建完成")

	// 3. 初始化日志
	if err := utils.InitLogger(filepath.Join(cfg.LogDir, "slidecrafter.log"), cfg.DebugMode); err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	logger := utils.GetLogger()
	defer logger.Sync()

	if cfg.DebugMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// 4. 初始化所有服务（按依赖顺序）
	application, err := app.New(cfg, app.Options{})
	if err != nil {
		log.Fatalf("初始化服务失败: %v", err)
	}
	defer application.Close()
	log.Printf("✅ 所有服务初始化完成，服务数量: %d", len(application.Container.GetNames()))

	if err := performHealthCheck(application.Container); err != nil {
		log.Printf("⚠️ 服务健康检查警告: %v", err)
	}
	if cfg.GeminiAPIKey == "" {
		log.Println("⚠️ 未配置 GEMINI_API_KEY，请求需要通过请求头提供密钥")
	}

	// 5. 设置路由（只获取服务，不创建）
	router, handler, err := api.SetupRouter(application.Container)
	if err != nil {
		log.Fatalf("❌ 设置路由失败: %v", err)
	}
	defer handler.Close()
	log.Println("✅ 路由设置完成")

	// 6. 启动服务器
	log.Printf("🌐 服务器启动在端口 %s", cfg.Port)
	log.Printf("🔗 访问地址: http://localhost:%s", cfg.Port)

	if err := run(application, router, cfg.Port); err != nil {
		logger.Error("❌ 服务器异常退出", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	log.Println("✅ 服务器优雅关闭完成")
}

// 健康检查函数
func performHealthCheck(container *di.Container) error {
	criticalServices := []string{di.ServiceConfig, di.ServiceDeck, di.ServiceProgress, di.ServiceExport}
	for _, serviceName := range criticalServices {
		if !container.Has(serviceName) {
			return errors.New("关键服务未注册: " + serviceName)
		}
	}
	log.Println("✅ 服务健康检查通过")
	return nil
}

// run 运行 HTTP 服务器和任务清理，直到收到中断信号
func run(application *app.App, router *gin.Engine, port string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return application.RunJanitor(ctx, janitorInterval, taskRetention)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Println("🛑 正在关闭服务器...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
