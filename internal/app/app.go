// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Corphon/SlideCrafter/internal/config"
	"github.com/Corphon/SlideCrafter/internal/di"
	"github.com/Corphon/SlideCrafter/internal/llm"
	_ "github.com/Corphon/SlideCrafter/internal/llm/providers/google"
	"github.com/Corphon/SlideCrafter/internal/models"
	"github.com/Corphon/SlideCrafter/internal/prompts"
	"github.com/Corphon/SlideCrafter/internal/services"
	"github.com/Corphon/SlideCrafter/internal/storage"
	"github.com/Corphon/SlideCrafter/internal/utils"
	"golang.org/x/time/rate"
)

// ProviderName 默认使用的模型提供者
const ProviderName = "google"

// App 持有所有已初始化的服务
type App struct {
	Config    *config.Config
	Container *di.Container

	Files    *storage.FileStorage
	Plans    *services.PlanService
	Slides   *services.SlideService
	Styles   *services.StyleGuideService
	Decks    *services.DeckService
	Progress *services.ProgressService
	Exports  *services.ExportService
	Usage    *services.UsageService

	logger *utils.Logger
}

// Options 可替换的依赖，零值使用默认实现
type Options struct {
	// Connector 为 nil 时使用注册表中的 google 提供者
	Connector llm.Connector
}

// New 按依赖顺序初始化服务：存储 → 用量统计 → 模型连接 → 生成器 → 编排 → 进度 → 导出
func New(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := utils.GetLogger()

	// 1. 存储
	files, err := storage.NewFileStorage(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("初始化存储失败: %w", err)
	}
	logger.Info("存储初始化完成", map[string]interface{}{"data_dir": cfg.DataDir})

	usage, err := services.NewUsageService(filepath.Join(cfg.DataDir, "stats"))
	if err != nil {
		return nil, err
	}

	// 2. 模型连接，所有调用共享一个限速器并计入用量
	connector := opts.Connector
	if connector == nil {
		connector = llm.DefaultRegistry.Connector(ProviderName, map[string]string{
			"default_model": cfg.GeminiModel,
		})
	}
	connector = llm.Metered(connector, usage.RecordModelCall)
	connector = llm.RateLimited(connector, rate.NewLimiter(rate.Limit(cfg.ModelRatePerSec), cfg.ModelBurst))

	// 3. 生成器
	builder, err := prompts.NewBuilder()
	if err != nil {
		usage.Close()
		return nil, fmt.Errorf("加载提示词模板失败: %w", err)
	}
	plans := services.NewPlanService(connector, builder, cfg.GeminiModel, cfg.MaxSlides)
	slides := services.NewSlideService(connector, builder, cfg.GeminiModel)
	styles := services.NewStyleGuideService(connector, builder, cfg.GeminiModel, cfg.StyleGuideCacheTTL)

	// 4. 编排并恢复已保存的演示文稿
	decks := services.NewDeckService(plans, slides, styles, storage.NewDeckStore(files), services.DeckServiceConfig{
		DefaultLanguage: models.Language(cfg.DefaultLanguage),
		DefaultSlides:   cfg.DefaultSlideCount,
		MaxSlides:       cfg.MaxSlides,
		SlideTimeout:    cfg.RequestTimeout,
	})
	restored, err := decks.LoadPersisted()
	if err != nil {
		decks.Close()
		usage.Close()
		return nil, err
	}
	logger.Info("演示文稿加载完成", map[string]interface{}{"count": restored})

	// 5. 进度与导出
	progress := services.NewProgressService()
	exports := services.NewExportService(decks, files)

	app := &App{
		Config:    cfg,
		Container: di.NewContainer(),
		Files:     files,
		Plans:     plans,
		Slides:    slides,
		Styles:    styles,
		Decks:     decks,
		Progress:  progress,
		Exports:   exports,
		Usage:     usage,
		logger:    logger,
	}
	app.register()
	return app, nil
}

func (a *App) register() {
	c := a.Container
	c.Register(di.ServiceConfig, a.Config)
	c.Register(di.ServiceStorage, a.Files)
	c.Register(di.ServicePlan, a.Plans)
	c.Register(di.ServiceSlide, a.Slides)
	c.Register(di.ServiceStyleGuide, a.Styles)
	c.Register(di.ServiceDeck, a.Decks)
	c.Register(di.ServiceProgress, a.Progress)
	c.Register(di.ServiceExport, a.Exports)
	c.Register(di.ServiceUsage, a.Usage)
}

// RunJanitor 定期清理已结束的进度任务，直到 ctx 结束
func (a *App) RunJanitor(ctx context.Context, interval, maxAge time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := a.Progress.CleanupCompletedTasks(maxAge); n > 0 {
				a.logger.Debug("清理已结束的任务", map[string]interface{}{"count": n})
			}
		}
	}
}

// Close 停止后台任务并写入未保存的统计
func (a *App) Close() {
	a.Decks.Close()
	if err := a.Usage.Close(); err != nil {
		a.logger.Warn("保存用量统计失败", map[string]interface{}{"error": err.Error()})
	}
	a.Files.FlushCache()
}
