/*
 * @Description: 扫描目录中的 RAW 文件并为每个文件提取预览信息
 * @Author: 安知鱼
 * @Date: 2025-10-14 12:05:44
 * @LastEditTime: 2025-10-14 19:02:10
 * @LastEditors: 安知鱼
 */
package gallery

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/idgen"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/service/thumbnail"
)

// DefaultColumns 是网格默认列数
const DefaultColumns = 3

// Extractor 为单个文件提取预览图
type Extractor interface {
	Extract(ctx context.Context, path string) (*thumbnail.Result, error)
}

// ColorExtractor 计算图像主色调
type ColorExtractor interface {
	GetPrimaryColor(img image.Image) (string, error)
}

// Options 控制扫描行为
type Options struct {
	Columns    int
	Extensions []string
	// Workers 是并发处理文件的数量，<=0 时使用 CPU 核数
	Workers int
	// OnReady 在文件提取成功后调用，此时解码后的像素仍然可用。会被多个 worker 并发调用
	OnReady func(entry *model.GalleryEntry, res *thumbnail.Result)
}

// Scanner 并发处理目录中的 RAW 文件，单个文件失败不影响其它文件
type Scanner struct {
	extractor Extractor
	colors    ColorExtractor
	opts      Options
	exts      map[string]bool
	logger    *slog.Logger
}

// NewScanner 创建扫描器，colors 为 nil 时不计算主色调
func NewScanner(extractor Extractor, colors ColorExtractor, opts Options) *Scanner {
	if opts.Columns <= 0 {
		opts.Columns = DefaultColumns
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	exts := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = true
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With("system", "gallery")

	return &Scanner{
		extractor: extractor,
		colors:    colors,
		opts:      opts,
		exts:      exts,
		logger:    logger,
	}
}

// Columns 返回网格列数
func (s *Scanner) Columns() int {
	return s.opts.Columns
}

// Accepts 判断文件名是否为需要处理的 RAW 扩展名
func (s *Scanner) Accepts(name string) bool {
	return s.exts[strings.ToLower(filepath.Ext(name))]
}

// Scan 处理 dir 下（不递归）的全部 RAW 文件，结果按文件名排序。
// 只有目录本身无法读取或 ctx 被取消时才返回错误。
func (s *Scanner) Scan(ctx context.Context, dir string) (*model.GallerySnapshot, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取画廊目录 '%s' 失败: %w", dir, err)
	}

	var entries []*model.GalleryEntry
	usedIDs := make(map[string]bool)
	for _, de := range dirEntries {
		if de.IsDir() || !s.Accepts(de.Name()) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			s.logger.Warn("读取文件信息失败，已跳过", slog.String("file", de.Name()), slog.Any("error", err))
			continue
		}
		publicID, err := publicIDFor(de.Name(), usedIDs)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &model.GalleryEntry{
			PublicID: publicID,
			Name:     de.Name(),
			Path:     filepath.Join(dir, de.Name()),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	}

	start := time.Now()
	s.process(ctx, entries)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("画廊扫描被中断: %w", err)
	}

	ready := 0
	for _, e := range entries {
		if e.Status == model.GalleryStatusReady {
			ready++
		}
	}
	s.logger.Info("画廊扫描完成",
		slog.String("root", dir),
		slog.Int("total", len(entries)),
		slog.Int("ready", ready),
		slog.Duration("duration", time.Since(start)),
	)

	return &model.GallerySnapshot{
		Root:      dir,
		Columns:   s.opts.Columns,
		ScannedAt: time.Now(),
		Entries:   entries,
	}, nil
}

// process 使用固定数量的 worker 处理全部条目
func (s *Scanner) process(ctx context.Context, entries []*model.GalleryEntry) {
	jobs := make(chan *model.GalleryEntry)
	var wg sync.WaitGroup

	workers := s.opts.Workers
	if workers > len(entries) {
		workers = len(entries)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				s.processEntry(ctx, entry)
			}
		}()
	}

	for _, entry := range entries {
		select {
		case jobs <- entry:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()
}

func (s *Scanner) processEntry(ctx context.Context, entry *model.GalleryEntry) {
	res, err := s.extract(ctx, entry.Path)
	if err != nil {
		entry.Status = model.GalleryStatusFailed
		entry.ErrorKind = thumbnail.ClassifyError(err)
		entry.Error = err.Error()
		// 没有预览是部分 RAW 的正常情况，不按错误记录
		if entry.ErrorKind == model.ErrorKindNoThumbnail {
			s.logger.Info("文件没有可用的 JPEG 预览", slog.String("file", entry.Name))
		} else {
			s.logger.Warn("提取预览失败", slog.String("file", entry.Name), slog.String("kind", string(entry.ErrorKind)), slog.Any("error", err))
		}
		return
	}

	rec := res.Record
	entry.Status = model.GalleryStatusReady
	entry.Record = &rec
	entry.Width = res.Image.Width
	entry.Height = res.Image.Height

	if s.colors != nil {
		color, err := s.colors.GetPrimaryColor(res.Image.ToImage())
		if err != nil {
			s.logger.Warn("计算主色调失败", slog.String("file", entry.Name), slog.Any("error", err))
		} else {
			entry.PrimaryColor = color
		}
	}

	if s.opts.OnReady != nil {
		s.opts.OnReady(entry, res)
	}
}

// extract 调用提取器，并将其 panic 转换为错误，保证一个文件不会中断整次扫描
func (s *Scanner) extract(ctx context.Context, path string) (res *thumbnail.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("处理文件时发生 panic: %v", r)
		}
	}()
	res, err = s.extractor.Extract(ctx, path)
	if err == nil && (res == nil || res.Image == nil) {
		err = errors.New("提取器没有返回图像")
	}
	return res, err
}

// publicIDFor 根据文件名生成稳定的公共 ID，同一次扫描内哈希冲突时加盐重试
func publicIDFor(name string, used map[string]bool) (string, error) {
	for salt := 0; salt < 16; salt++ {
		h := fnv.New32a()
		h.Write([]byte(name))
		if salt > 0 {
			fmt.Fprintf(h, "#%d", salt)
		}
		id, err := idgen.GeneratePublicID(uint(h.Sum32()), idgen.EntityTypeRawFile)
		if err != nil {
			return "", fmt.Errorf("为文件 '%s' 生成公共ID失败: %w", name, err)
		}
		if !used[id] {
			used[id] = true
			return id, nil
		}
	}
	return "", fmt.Errorf("为文件 '%s' 生成公共ID失败: 冲突次数过多", name)
}
