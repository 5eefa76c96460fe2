package thumbnail

import (
	"context"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/domain/model"
)

// Source 描述一个待处理的本地文件。
type Source struct {
	Name string
	Path string
	Size int64
}

// Result 是生成器成功处理后返回的结果。
type Result struct {
	// GeneratorName 是生成器的名称 (例如 "raw-preview")。
	GeneratorName string
	// Record 是被选中的内嵌预览记录。
	Record model.ThumbnailRecord
	// Image 是解码后的 RGBA 像素，归调用方独占。
	Image *model.DecodedImage
}

// Generator 定义了所有预览生成器的通用接口。
type Generator interface {
	// CanHandle 判断此生成器是否能处理给定的文件。
	CanHandle(ctx context.Context, src *Source) bool

	// Generate 执行生成操作，并返回结果。该调用是同步阻塞的，返回前必须释放所有打开的文件句柄。
	Generate(ctx context.Context, src *Source) (*Result, error)
}
