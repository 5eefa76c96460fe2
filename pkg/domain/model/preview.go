/*
 * @Description: RAW 内嵌预览图相关的领域模型
 * @Author: 安知鱼
 * @Date: 2025-10-14 10:12:40
 * @LastEditTime: 2025-10-14 16:45:02
 * @LastEditors: 安知鱼
 */
package model

import (
	"fmt"
	"image"
)

// ThumbnailFormat 定义了内嵌预览图的编码格式。
// 在解析缩略图目录时一次性确定，后续逻辑不再比较原始整数标签。
type ThumbnailFormat int

const (
	ThumbnailFormatUnsupported ThumbnailFormat = iota // 其他/不支持的格式
	ThumbnailFormatJPEG                               // 压缩的 JPEG 数据流
	ThumbnailFormatBitmap                             // 未压缩的 8 位 RGB 位图
)

// String 方法用于返回 ThumbnailFormat 的字符串表示。
func (f ThumbnailFormat) String() string {
	switch f {
	case ThumbnailFormatJPEG:
		return "jpeg"
	case ThumbnailFormatBitmap:
		return "bitmap"
	case ThumbnailFormatUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("unknown_format_%d", int(f))
	}
}

// MarshalText 让 ThumbnailFormat 在 JSON 中以字符串形式输出。
func (f ThumbnailFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// ThumbnailRecord 描述 RAW 文件中一条内嵌预览图记录。
type ThumbnailRecord struct {
	Format ThumbnailFormat `json:"format"`
	Offset uint64          `json:"offset"` // 相对文件起始位置的字节偏移
	Length uint64          `json:"length"` // 编码数据的字节数
	// Width/Height 是容器声明的尺寸，仅供参考，0 表示未知
	Width  uint32 `json:"width,omitempty"`
	Height uint32 `json:"height,omitempty"`
	Source string `json:"source,omitempty"` // 产生该记录的目录位置，例如 "IFD0"、"SubIFD1"、"RAF"
}

// End 返回记录数据结束位置（不含）。
func (r ThumbnailRecord) End() uint64 {
	return r.Offset + r.Length
}

// ThumbnailDirectory 是从单个 RAW 文件中解析出的预览图记录集合，顺序与容器内部目录一致。
type ThumbnailDirectory struct {
	Records []ThumbnailRecord `json:"records"`
}

// Len 返回记录数量。
func (d *ThumbnailDirectory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// JPEG 返回所有 JPEG 格式记录的副本，保持原有顺序。
func (d *ThumbnailDirectory) JPEG() []ThumbnailRecord {
	if d == nil {
		return nil
	}
	out := make([]ThumbnailRecord, 0, len(d.Records))
	for _, r := range d.Records {
		if r.Format == ThumbnailFormatJPEG {
			out = append(out, r)
		}
	}
	return out
}

// DecodedImage 是解码后的预览图像。
// Pix 为 RGBA 每通道 8 位、按行从上到下排列，长度恒为 Width*Height*4。
type DecodedImage struct {
	Width  uint32
	Height uint32
	Pix    []byte
}

// Stride 返回每行字节数。
func (img *DecodedImage) Stride() int {
	return int(img.Width) * 4
}

// ToImage 以共享 Pix 的方式包装为 *image.RGBA。
func (img *DecodedImage) ToImage() *image.RGBA {
	return &image.RGBA{
		Pix:    img.Pix,
		Stride: img.Stride(),
		Rect:   image.Rect(0, 0, int(img.Width), int(img.Height)),
	}
}
