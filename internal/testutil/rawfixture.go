// Package testutil 提供测试中共用的合成 RAW 容器与 JPEG 夹具。
package testutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

// Pointer 是写入 IFD 的预览偏移与长度
type Pointer struct {
	Offset uint32
	Length uint32
}

// BuildRAW 生成一个小端 TIFF 容器，每个数据块对应一个通过 JPEGInterchangeFormat 指向它的 IFD。
// override 中出现的下标会改写对应 IFD 写入的偏移和长度。
func BuildRAW(payloads [][]byte, override map[int]Pointer) []byte {
	const ifdSize = 2 + 2*12 + 4
	var buf bytes.Buffer
	buf.WriteString("II")
	_ = binary.Write(&buf, binary.LittleEndian, uint16(42))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(8))

	dataStart := uint32(8 + ifdSize*len(payloads))
	pos := dataStart
	for i, p := range payloads {
		ptr := Pointer{Offset: pos, Length: uint32(len(p))}
		if o, ok := override[i]; ok {
			ptr = o
		}
		_ = binary.Write(&buf, binary.LittleEndian, uint16(2))
		for _, e := range [][2]uint32{{0x0201, ptr.Offset}, {0x0202, ptr.Length}} {
			_ = binary.Write(&buf, binary.LittleEndian, uint16(e[0]))
			_ = binary.Write(&buf, binary.LittleEndian, uint16(4))
			_ = binary.Write(&buf, binary.LittleEndian, uint32(1))
			_ = binary.Write(&buf, binary.LittleEndian, e[1])
		}
		next := uint32(0)
		if i < len(payloads)-1 {
			next = uint32(8 + ifdSize*(i+1))
		}
		_ = binary.Write(&buf, binary.LittleEndian, next)
		pos += uint32(len(p))
	}
	for _, p := range payloads {
		buf.Write(p)
	}
	return buf.Bytes()
}

// JPEG 编码一张 w×h 的渐变图
func JPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: 90, B: uint8(y * 10), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("编码 JPEG 夹具失败: %v", err)
	}
	return buf.Bytes()
}

// Pad 返回长度恰好为 n 的数据块，data 放在开头
func Pad(t testing.TB, data []byte, n int) []byte {
	t.Helper()
	if len(data) > n {
		t.Fatalf("夹具长度 %d 超过目标长度 %d", len(data), n)
	}
	out := make([]byte, n)
	copy(out, data)
	return out
}

// WriteFile 将 data 写入 dir/name 并返回完整路径
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("写入测试文件失败: %v", err)
	}
	return path
}
