/*
 * @Description: 画廊接口：列表、条目详情、预览图和手动重新扫描
 * @Author: 安知鱼
 * @Date: 2025-10-14 13:10:26
 * @LastEditTime: 2025-10-14 20:12:55
 * @LastEditors: 安知鱼
 */
package gallery

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/constant"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/response"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/service/rawthumb"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/service/thumbnail"
)

// Index 是处理器对画廊索引的依赖
type Index interface {
	Snapshot() *model.GallerySnapshot
	Lookup(publicID string) (*model.GalleryEntry, error)
}

// Extractor 为单个文件提取预览图
type Extractor interface {
	Extract(ctx context.Context, path string) (*thumbnail.Result, error)
}

// RescanDispatcher 将重新扫描任务派发到后台
type RescanDispatcher interface {
	DispatchGalleryRescan() error
}

// Handler 画廊接口处理器
type Handler struct {
	index      Index
	extractor  Extractor
	dispatcher RescanDispatcher
	render     thumbnail.RenderOptions
}

// NewHandler 创建画廊接口处理器，render.MaxWidth 同时是 ?w= 参数允许的最大值
func NewHandler(index Index, extractor Extractor, dispatcher RescanDispatcher, render thumbnail.RenderOptions) *Handler {
	return &Handler{
		index:      index,
		extractor:  extractor,
		dispatcher: dispatcher,
		render:     render,
	}
}

// EntryDetail 是单个条目的详情，附带完整的缩略图目录
type EntryDetail struct {
	*model.GalleryEntry
	Directory      *model.ThumbnailDirectory `json:"directory,omitempty"`
	DirectoryError string                    `json:"directoryError,omitempty"`
}

// ErrorDetail 是预览提取失败时返回的数据
type ErrorDetail struct {
	ErrorKind model.ErrorKind `json:"errorKind"`
}

// List 获取画廊列表
// @Summary      获取画廊列表
// @Description  返回最近一次扫描的全部条目，失败的条目同样返回，并带有错误分类
// @Tags         画廊
// @Produce      json
// @Success      200  {object}  response.Response{data=model.GallerySnapshot}
// @Router       /gallery [get]
func (h *Handler) List(c *gin.Context) {
	response.Success(c, h.index.Snapshot(), "获取画廊成功")
}

// Get 获取单个条目及其缩略图目录
// @Summary      获取画廊条目
// @Tags         画廊
// @Produce      json
// @Param        publicID  path  string  true  "条目公共ID"
// @Success      200  {object}  response.Response{data=EntryDetail}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /gallery/{publicID} [get]
func (h *Handler) Get(c *gin.Context) {
	entry, ok := h.lookup(c)
	if !ok {
		return
	}

	detail := EntryDetail{GalleryEntry: entry}
	dir, err := rawthumb.ReadDirectory(entry.Path)
	if err != nil {
		detail.DirectoryError = err.Error()
	} else {
		detail.Directory = dir
	}
	response.Success(c, detail, "获取画廊条目成功")
}

// Preview 提取并返回条目的预览图
// @Summary      获取预览图
// @Description  每次请求都会重新从 RAW 文件中提取内嵌预览，不做缓存
// @Tags         画廊
// @Produce      image/jpeg,image/png
// @Param        publicID  path   string  true   "条目公共ID"
// @Param        w         query  int     false  "输出宽度上限"
// @Success      200
// @Failure      404  {object}  response.Response{data=ErrorDetail}  "没有可用的 JPEG 预览"
// @Failure      415  {object}  response.Response{data=ErrorDetail}  "预览解码失败"
// @Failure      422  {object}  response.Response{data=ErrorDetail}  "RAW 容器无法解析"
// @Failure      504  {object}  response.Response{data=ErrorDetail}  "提取超时"
// @Router       /gallery/{publicID}/preview [get]
func (h *Handler) Preview(c *gin.Context) {
	entry, ok := h.lookup(c)
	if !ok {
		return
	}

	opts := h.render
	if w := c.Query("w"); w != "" {
		width, err := strconv.Atoi(w)
		if err != nil || width <= 0 {
			response.Fail(c, http.StatusBadRequest, "参数 w 必须是正整数")
			return
		}
		if opts.MaxWidth <= 0 || width < opts.MaxWidth {
			opts.MaxWidth = width
		}
	}

	res, err := h.extractor.Extract(c.Request.Context(), entry.Path)
	if err != nil {
		kind := thumbnail.ClassifyError(err)
		if kind == model.ErrorKindNoThumbnail {
			log.Printf("[GalleryHandler] 信息: 文件 '%s' 没有可用的 JPEG 预览", entry.Name)
		} else {
			log.Printf("[GalleryHandler] 错误: 提取文件 '%s' 的预览失败: %v", entry.Name, err)
		}
		response.FailWithData(c, StatusForError(err), err.Error(), ErrorDetail{ErrorKind: kind})
		return
	}

	data, err := thumbnail.Render(res.Image, opts)
	if err != nil {
		log.Printf("[GalleryHandler] 错误: 编码文件 '%s' 的预览失败: %v", entry.Name, err)
		response.Fail(c, http.StatusInternalServerError, "编码预览图失败")
		return
	}

	c.Header("X-Preview-Width", strconv.Itoa(int(res.Image.Width)))
	c.Header("X-Preview-Height", strconv.Itoa(int(res.Image.Height)))
	c.Data(http.StatusOK, opts.ContentType(), data)
}

// Rescan 手动触发重新扫描
// @Summary      重新扫描画廊
// @Tags         画廊
// @Produce      json
// @Success      202  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /gallery/rescan [post]
func (h *Handler) Rescan(c *gin.Context) {
	if err := h.dispatcher.DispatchGalleryRescan(); err != nil {
		response.Fail(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	response.SuccessWithStatus(c, http.StatusAccepted, nil, "已加入扫描队列")
}

func (h *Handler) lookup(c *gin.Context) (*model.GalleryEntry, bool) {
	entry, err := h.index.Lookup(c.Param("publicID"))
	if err != nil {
		response.Fail(c, StatusForError(err), err.Error())
		return nil, false
	}
	return entry, true
}

// StatusForError 将业务错误映射为 HTTP 状态码
func StatusForError(err error) int {
	switch {
	case errors.Is(err, constant.ErrInvalidPublicID), errors.Is(err, constant.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, constant.ErrNotFound):
		return http.StatusNotFound
	}

	switch thumbnail.ClassifyError(err) {
	case model.ErrorKindNoThumbnail:
		return http.StatusNotFound
	case model.ErrorKindDecodeCorrupt, model.ErrorKindDecodeUnsupported, model.ErrorKindUnsupportedFile:
		return http.StatusUnsupportedMediaType
	case model.ErrorKindContainerOpen:
		return http.StatusUnprocessableEntity
	case model.ErrorKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
