/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-10-17 10:35:28
 * @LastEditTime: 2025-10-17 18:04:51
 * @LastEditors: 安知鱼
 */
package server

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/anzhiyu-c/anheyu-rawview/internal/app/middleware"
	"github.com/anzhiyu-c/anheyu-rawview/internal/app/task"
	"github.com/anzhiyu-c/anheyu-rawview/internal/infra/router"
	"github.com/anzhiyu-c/anheyu-rawview/internal/pkg/version"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/config"
	gallery_handler "github.com/anzhiyu-c/anheyu-rawview/pkg/handler/gallery"
	version_handler "github.com/anzhiyu-c/anheyu-rawview/pkg/handler/version"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/idgen"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/service/gallery"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/service/thumbnail"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/service/utility"
)

// App 结构体，用于封装应用的所有核心组件
type App struct {
	cfg          *config.Config
	engine       *gin.Engine
	taskBroker   *task.Broker
	index        *gallery.Index
	thumbnailSvc *thumbnail.ThumbnailService
	appVersion   string
}

func (a *App) PrintBanner() {
	banner := `
  ____      ___        __ __     ___
 |  _ \    / \ \      / / \ \   / (_) _____      __
 | |_) |  / _ \ \ /\ / /   \ \ / /| |/ _ \ \ /\ / /
 |  _ <  / ___ \ V  V /     \ V / | |  __/\ V  V /
 |_| \_\/_/   \_\_/\_/       \_/  |_|\___| \_/\_/
`
	log.Println(banner)
	log.Println("--------------------------------------------------------")
	log.Printf(" Anheyu RawView - Version: %s", version.GetVersionString())
	log.Println("--------------------------------------------------------")
}

// pipeline 是服务模式与命令行模式共用的处理链
type pipeline struct {
	thumbnailSvc *thumbnail.ThumbnailService
	galleryOpts  gallery.Options
	render       thumbnail.RenderOptions
}

// newPipeline 根据配置初始化 ID 编码器、单文件处理服务和扫描参数
func newPipeline(cfg *config.Config) (*pipeline, error) {
	seed := cfg.GetString(config.KeyIDSeed)
	if err := idgen.InitSqidsEncoderWithSeed(seed); err != nil {
		return nil, fmt.Errorf("初始化 Sqids 编码器失败: %w", err)
	}
	if seed == "" {
		log.Println("📦 ID.Seed 未配置，使用默认字母表生成公共ID")
	}

	exts := cfg.GetStringSlice(config.KeyGalleryExtensions)
	svc := thumbnail.NewThumbnailService(thumbnail.Options{
		Extensions:  exts,
		MaxFileSize: cfg.GetInt64(config.KeyThumbnailMaxFileSize),
		Skip:        cfg.GetInt(config.KeyThumbnailSkip),
		MaxPixels:   cfg.GetInt(config.KeyThumbnailMaxPixels),
		Timeout:     cfg.GetDuration(config.KeyThumbnailTimeout),
	})

	return &pipeline{
		thumbnailSvc: svc,
		galleryOpts: gallery.Options{
			Columns:    cfg.GetInt(config.KeyGalleryColumns),
			Extensions: exts,
			Workers:    cfg.GetInt(config.KeyThumbnailWorkers),
		},
		render: thumbnail.RenderOptions{
			Format:      cfg.GetString(config.KeyOutputFormat),
			MaxWidth:    cfg.GetInt(config.KeyOutputMaxWidth),
			JPEGQuality: cfg.GetInt(config.KeyOutputJPEGQuality),
		},
	}, nil
}

// NewApp 是应用的构造函数，它执行所有的初始化和依赖注入工作
func NewApp() (*App, func(), error) {
	appVersion := version.GetVersion()

	// --- Phase 1: 加载外部配置 ---
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}

	// --- Phase 2: 初始化处理链 ---
	p, err := newPipeline(cfg)
	if err != nil {
		return nil, nil, err
	}

	// --- Phase 3: 初始化画廊索引与任务调度 ---
	root := cfg.GetString(config.KeyGalleryRoot)
	scanner := gallery.NewScanner(p.thumbnailSvc, utility.NewColorService(), p.galleryOpts)
	index := gallery.NewIndex(scanner, root)
	log.Printf("画廊目录: %s", root)

	taskBroker := task.NewBroker(index, task.Options{
		RescanSchedule: cfg.GetString(config.KeyGalleryRescanSchedule),
		RescanTimeout:  cfg.GetDuration(config.KeyGalleryRescanTimeout),
		Workers:        cfg.GetInt(config.KeyThumbnailWorkers),
	})

	// --- Phase 4: 初始化 Handler 与路由 ---
	galleryHandler := gallery_handler.NewHandler(index, p.thumbnailSvc, taskBroker, p.render)
	versionHandler := version_handler.NewHandler()
	previewLimit := middleware.PreviewRateLimit(
		cfg.GetInt(config.KeyRateLimitPerMinute),
		cfg.GetInt(config.KeyRateLimitBurst),
	)
	appRouter := router.NewRouter(galleryHandler, versionHandler, previewLimit)

	// --- Phase 5: 配置 Gin 引擎 ---
	if cfg.GetBool(config.KeyServerDebug) {
		gin.SetMode(gin.DebugMode)
		log.Println("运行模式: Debug (Gin 将打印详细路由日志)")
	} else {
		gin.SetMode(gin.ReleaseMode)
		log.Println("运行模式: Release (Gin 启动日志已禁用)")
	}

	engine := gin.Default()
	err = engine.SetTrustedProxies([]string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})
	if err != nil {
		return nil, nil, fmt.Errorf("设置信任代理失败: %w", err)
	}
	engine.ForwardedByClientIP = true
	engine.Use(middleware.Cors())
	appRouter.Setup(engine)

	app := &App{
		cfg:          cfg,
		engine:       engine,
		taskBroker:   taskBroker,
		index:        index,
		thumbnailSvc: p.thumbnailSvc,
		appVersion:   appVersion,
	}

	cleanup := func() {
		log.Println("执行清理操作...")
	}

	return app, cleanup, nil
}

func (a *App) Config() *config.Config {
	return a.cfg
}

func (a *App) Engine() *gin.Engine {
	return a.engine
}

func (a *App) Version() string {
	return a.appVersion
}

func (a *App) Run() error {
	if err := a.taskBroker.RegisterCronJobs(); err != nil {
		return err
	}
	a.taskBroker.Start()
	port := a.cfg.GetString(config.KeyServerPort)
	if port == "" {
		port = "8091"
	}
	fmt.Printf("应用程序启动成功，正在监听端口: %s\n", port)

	return a.engine.Run(":" + port)
}

func (a *App) Stop() {
	if a.taskBroker != nil {
		a.taskBroker.Stop()
		log.Println("任务调度器已停止。")
	}
}
