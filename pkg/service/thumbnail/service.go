/*
 * @Description: 预览图提取服务。按顺序挑选可处理文件的生成器，并为单个文件的处理施加超时。
 * @Author: 安知鱼
 * @Date: 2025-07-10 15:06:15
 * @LastEditTime: 2025-10-14 18:25:40
 * @LastEditors: 安知鱼
 */
package thumbnail

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/constant"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/service/preview"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/service/rawthumb"
)

// Options 是 ThumbnailService 的构造参数，通常来自配置文件的 Thumbnail 与 Gallery 段。
type Options struct {
	Extensions  []string
	MaxFileSize int64
	Skip        int
	MaxPixels   int
	Timeout     time.Duration
}

// ThumbnailService 负责为单个文件执行预览提取。
type ThumbnailService struct {
	generators []Generator
	timeout    time.Duration
}

// NewThumbnailService 是 ThumbnailService 的构造函数。
func NewThumbnailService(opts Options) *ThumbnailService {
	var loadedGeneratorNames []string

	log.Println("--- 开始加载预览图生成器 (Preview Generators) ---")

	raw := NewRawPreviewGenerator(
		opts.Extensions,
		opts.MaxFileSize,
		rawthumb.Policy{Skip: opts.Skip},
		preview.Options{MaxPixels: opts.MaxPixels},
	)
	loadedGeneratorNames = append(loadedGeneratorNames, "RawPreview")
	log.Printf("  -> 已加载 [1]: RawPreview (RAW 内嵌预览, 扩展名: %s, 跳过数: %d)", strings.Join(opts.Extensions, ","), opts.Skip)

	log.Printf("--- 预览图生成器加载完成。共启用 %d 个，加载顺序: [%s] ---", len(loadedGeneratorNames), strings.Join(loadedGeneratorNames, ", "))

	return NewThumbnailServiceWithGenerators(opts.Timeout, raw)
}

// NewThumbnailServiceWithGenerators 使用给定的生成器列表创建服务，按顺序匹配。
func NewThumbnailServiceWithGenerators(timeout time.Duration, generators ...Generator) *ThumbnailService {
	return &ThumbnailService{
		generators: generators,
		timeout:    timeout,
	}
}

// Extract 提取 path 指向文件的预览图。
func (s *ThumbnailService) Extract(ctx context.Context, path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &rawthumb.ContainerOpenError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &rawthumb.ContainerOpenError{Path: path, Err: fmt.Errorf("'%s' 是一个目录", path)}
	}
	return s.Generate(ctx, &Source{Name: filepath.Base(path), Path: path, Size: info.Size()})
}

// Generate 将 src 交给第一个能处理它的生成器。
func (s *ThumbnailService) Generate(ctx context.Context, src *Source) (*Result, error) {
	for _, g := range s.generators {
		if g.CanHandle(ctx, src) {
			return s.run(ctx, g, src)
		}
	}
	return nil, fmt.Errorf("文件 '%s': %w", src.Name, constant.ErrUnsupportedFile)
}

// CanHandle 判断是否存在能处理 src 的生成器。
func (s *ThumbnailService) CanHandle(ctx context.Context, src *Source) bool {
	for _, g := range s.generators {
		if g.CanHandle(ctx, src) {
			return true
		}
	}
	return false
}

type outcome struct {
	result *Result
	err    error
}

// run 在独立的 goroutine 中执行生成器。超时或 ctx 取消后直接放弃结果，
// 进行中的读取与解码无法中断，会在后台自然结束。
func (s *ThumbnailService) run(ctx context.Context, g Generator, src *Source) (*Result, error) {
	if s.timeout <= 0 && ctx.Done() == nil {
		return g.Generate(ctx, src)
	}

	done := make(chan outcome, 1)
	go func() {
		res, err := g.Generate(ctx, src)
		done <- outcome{result: res, err: err}
	}()

	var timeoutC <-chan time.Time
	if s.timeout > 0 {
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	select {
	case o := <-done:
		return o.result, o.err
	case <-timeoutC:
		log.Printf("[ThumbnailService] 警告: 文件 '%s' 处理超过 %s，放弃等待。", src.Name, s.timeout)
		return nil, fmt.Errorf("文件 '%s' 处理超过 %s: %w", src.Name, s.timeout, constant.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
