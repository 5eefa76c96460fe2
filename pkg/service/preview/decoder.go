/*
 * @Description: 内嵌 JPEG 预览图解码
 * @Author: 安知鱼
 * @Date: 2025-10-14 11:02:37
 * @LastEditTime: 2025-10-15 10:06:52
 * @LastEditors: 安知鱼
 */
package preview

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/gen2brain/jpegn"
	"golang.org/x/image/draw"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/domain/model"
)

// Options 控制解码行为
type Options struct {
	// MaxPixels 限制 JPEG 声明的像素总数，超出时在分配内存之前拒绝，0 表示不限制
	MaxPixels int
}

// Decoder 将 JPEG 数据流解码为 RGBA 像素。Decoder 不保存任何跨调用的状态，可并发使用。
type Decoder struct {
	opts Options
}

// NewDecoder 创建一个解码器
func NewDecoder(opts Options) *Decoder {
	return &Decoder{opts: opts}
}

var defaultDecoder = NewDecoder(Options{})

// Decode 使用默认选项解码 buf
func Decode(buf []byte) (*model.DecodedImage, error) {
	return defaultDecoder.Decode(buf)
}

// Decode 解码 buf 中的 JPEG 数据流，无论源色彩空间为灰度、YCbCr 还是 CMYK，都输出 RGBA。
// 宽高取自数据流本身，EOI 之后的多余字节会被忽略。
// 扫描数据在中途截断的基线 JPEG 会保留已解码的部分，而不是报错。
func (d *Decoder) Decode(buf []byte) (img *model.DecodedImage, err error) {
	if len(buf) == 0 {
		return nil, corrupt(io.ErrUnexpectedEOF)
	}

	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = corrupt(fmt.Errorf("解码器内部错误: %v", r))
		}
	}()

	cfg, err := jpegn.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		return nil, classify(err)
	}
	if d.opts.MaxPixels > 0 && cfg.Width*cfg.Height > d.opts.MaxPixels {
		return nil, unsupported(fmt.Errorf("图像尺寸 %dx%d 超过像素上限 %d", cfg.Width, cfg.Height, d.opts.MaxPixels))
	}

	// jpegn 的 RGBA 直出只转换 1/3 分量，CMYK 先按原生色彩空间解码
	opts := &jpegn.Options{ToRGBA: cfg.ColorModel != color.CMYKModel, UpsampleMethod: jpegn.NearestNeighbor}
	src, err := jpegn.Decode(bytes.NewReader(buf), opts)
	if err != nil {
		return nil, classify(err)
	}

	rgba := toRGBA(src)
	b := rgba.Bounds()
	return &model.DecodedImage{
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
		Pix:    rgba.Pix[:4*b.Dx()*b.Dy()],
	}, nil
}

// toRGBA 返回原点在 (0,0)、Stride 紧凑的 *image.RGBA，解码器直出的 RGBA 不再复制
func toRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	if rgba, ok := src.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == 4*b.Dx() {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// classify 将 jpegn 的错误映射为 DecodeError
func classify(err error) *DecodeError {
	if errors.Is(err, jpegn.ErrUnsupported) || errors.Is(err, jpegn.ErrOutOfMemory) {
		return unsupported(err)
	}
	return corrupt(err)
}
