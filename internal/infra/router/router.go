/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-06-15 11:30:55
 * @LastEditTime: 2025-10-14 20:40:18
 * @LastEditors: 安知鱼
 */
package router

import (
	"github.com/gin-gonic/gin"

	gallery_handler "github.com/anzhiyu-c/anheyu-rawview/pkg/handler/gallery"
	version_handler "github.com/anzhiyu-c/anheyu-rawview/pkg/handler/version"
)

// NoCacheMiddleware 全局反缓存中间件，确保所有API响应都不会被CDN缓存
func NoCacheMiddleware() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate, private, max-age=0")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")

		c.Next()
	})
}

// Router 封装了应用的所有路由和其依赖的处理器。
type Router struct {
	galleryHandler *gallery_handler.Handler
	versionHandler *version_handler.Handler
	previewLimit   gin.HandlerFunc
}

// NewRouter 是 Router 的构造函数，previewLimit 为预览接口的限流中间件，可以为 nil。
func NewRouter(
	galleryHandler *gallery_handler.Handler,
	versionHandler *version_handler.Handler,
	previewLimit gin.HandlerFunc,
) *Router {
	if previewLimit == nil {
		previewLimit = func(c *gin.Context) { c.Next() }
	}
	return &Router{
		galleryHandler: galleryHandler,
		versionHandler: versionHandler,
		previewLimit:   previewLimit,
	}
}

// Setup 将所有路由注册到 Gin 引擎上。
func (r *Router) Setup(engine *gin.Engine) {
	// 创建 /api 分组
	apiGroup := engine.Group("/api")
	// 应用全局反缓存中间件
	apiGroup.Use(NoCacheMiddleware())

	r.registerGalleryRoutes(apiGroup)
	r.registerVersionRoutes(apiGroup)
}

func (r *Router) registerGalleryRoutes(api *gin.RouterGroup) {
	gallery := api.Group("/gallery")
	{
		// GET /api/gallery
		gallery.GET("", r.galleryHandler.List)

		// POST /api/gallery/rescan
		gallery.POST("/rescan", r.galleryHandler.Rescan)

		gallery.GET("/:publicID", r.galleryHandler.Get)

		// 预览每次都会读取 RAW 文件，单独限流
		gallery.GET("/:publicID/preview", r.previewLimit, r.galleryHandler.Preview)
	}
}

// registerVersionRoutes 注册版本信息相关路由
func (r *Router) registerVersionRoutes(api *gin.RouterGroup) {
	versionGroup := api.Group("/version")
	{
		// GET /api/version - 获取版本信息 (JSON格式)
		versionGroup.GET("", r.versionHandler.GetVersion)

		// GET /api/version/string - 获取版本字符串 (简单字符串格式)
		versionGroup.GET("/string", r.versionHandler.GetVersionString)
	}
}
