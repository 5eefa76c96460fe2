package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/domain/model"
)

// RenderOptions 控制预览图的输出编码。
type RenderOptions struct {
	// Format 为 "png" 或 "jpeg"，为空时使用 jpeg
	Format string
	// MaxWidth 大于 0 时将宽度超过它的图像等比缩小
	MaxWidth    int
	JPEGQuality int
}

// Ext 返回输出格式对应的文件扩展名（不含点）。
func (o RenderOptions) Ext() string {
	if o.format() == imaging.PNG {
		return "png"
	}
	return "jpg"
}

// ContentType 返回输出格式对应的 MIME 类型。
func (o RenderOptions) ContentType() string {
	if o.format() == imaging.PNG {
		return "image/png"
	}
	return "image/jpeg"
}

func (o RenderOptions) format() imaging.Format {
	if strings.EqualFold(o.Format, "png") {
		return imaging.PNG
	}
	return imaging.JPEG
}

func (o RenderOptions) quality() int {
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		return 85
	}
	return o.JPEGQuality
}

func (o RenderOptions) resize(img *model.DecodedImage) image.Image {
	src := img.ToImage()
	if o.MaxWidth > 0 && int(img.Width) > o.MaxWidth {
		return imaging.Resize(src, o.MaxWidth, 0, imaging.Lanczos)
	}
	return src
}

// Render 将解码后的像素编码为 PNG 或 JPEG。
func Render(img *model.DecodedImage, opts RenderOptions) ([]byte, error) {
	if img == nil || img.Width == 0 || img.Height == 0 {
		return nil, fmt.Errorf("没有可编码的图像")
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, opts.resize(img), opts.format(), imaging.JPEGQuality(opts.quality())); err != nil {
		return nil, fmt.Errorf("使用imaging库编码预览图失败: %w", err)
	}
	return buf.Bytes(), nil
}

// Save 将解码后的像素保存到 path，格式由 opts 决定。
func Save(img *model.DecodedImage, path string, opts RenderOptions) error {
	if img == nil || img.Width == 0 || img.Height == 0 {
		return fmt.Errorf("没有可保存的图像")
	}
	if err := imaging.Save(opts.resize(img), path, imaging.JPEGQuality(opts.quality())); err != nil {
		return fmt.Errorf("使用imaging库保存预览图 '%s' 失败: %w", path, err)
	}
	return nil
}
