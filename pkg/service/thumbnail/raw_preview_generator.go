/*
 * @Description: 从 RAW 文件中提取内嵌 JPEG 预览图的生成器。
 * @Author: 安知鱼
 * @Date: 2025-10-14 11:20:05
 * @LastEditTime: 2025-10-14 18:02:33
 * @LastEditors: 安知鱼
 */
package thumbnail

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/service/preview"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/service/rawthumb"
)

// RawPreviewGenerator 依次执行目录解析、记录选择、字节范围读取和解码。
type RawPreviewGenerator struct {
	selector      *rawthumb.Selector
	decoder       *preview.Decoder
	supportedExts map[string]bool
	maxSize       int64
}

// NewRawPreviewGenerator 是 RawPreviewGenerator 的构造函数。
func NewRawPreviewGenerator(exts []string, maxSize int64, policy rawthumb.Policy, decodeOpts preview.Options) *RawPreviewGenerator {
	return &RawPreviewGenerator{
		selector:      rawthumb.NewSelector(policy),
		decoder:       preview.NewDecoder(decodeOpts),
		supportedExts: extSet(exts),
		maxSize:       maxSize,
	}
}

// CanHandle 检查文件扩展名和大小是否符合配置。
func (g *RawPreviewGenerator) CanHandle(ctx context.Context, src *Source) bool {
	if g.maxSize > 0 && src.Size > g.maxSize {
		return false
	}
	return g.supportedExts[strings.ToLower(filepath.Ext(src.Name))]
}

// Generate 将 src 的内嵌预览解码为像素。任何一步失败都直接返回，不会尝试其他记录。
func (g *RawPreviewGenerator) Generate(ctx context.Context, src *Source) (*Result, error) {
	rec, err := g.selector.SelectFile(src.Path)
	if err != nil {
		return nil, err
	}

	data, err := rawthumb.ReadRecord(src.Path, rec)
	if err != nil {
		return nil, err
	}

	img, err := g.decoder.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("文件 '%s' 的预览记录 (offset=%d, length=%d): %w", src.Name, rec.Offset, rec.Length, err)
	}

	return &Result{
		GeneratorName: "raw-preview",
		Record:        rec,
		Image:         img,
	}, nil
}
