package rawthumb

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

// 条目值的引用类型，构造容器时再解析成实际偏移
const (
	refNone = iota
	refPayloadOffset
	refPayloadLength
	refIFD
)

type testEntry struct {
	Tag   uint16
	Type  uint16
	Count uint32
	Value uint32
	Ref   int
	Index int
}

type testIFD struct {
	Entries []testEntry
	// Next 是下一个 IFD 的下标加一，0 表示链结束
	Next int
}

// buildTIFF 按 header、全部 IFD、全部 payload 的顺序排布一个 TIFF 容器
func buildTIFF(order binary.ByteOrder, magic uint16, ifds []testIFD, payloads [][]byte) []byte {
	ifdOffsets := make([]uint32, len(ifds))
	pos := uint32(8)
	for i, d := range ifds {
		ifdOffsets[i] = pos
		pos += 2 + 12*uint32(len(d.Entries)) + 4
	}
	payloadOffsets := make([]uint32, len(payloads))
	for i, p := range payloads {
		payloadOffsets[i] = pos
		pos += uint32(len(p))
	}

	var buf bytes.Buffer
	if order == binary.LittleEndian {
		buf.WriteString("II")
	} else {
		buf.WriteString("MM")
	}
	_ = binary.Write(&buf, order, magic)
	first := uint32(0)
	if len(ifds) > 0 {
		first = ifdOffsets[0]
	}
	_ = binary.Write(&buf, order, first)

	for _, d := range ifds {
		_ = binary.Write(&buf, order, uint16(len(d.Entries)))
		for _, e := range d.Entries {
			v := e.Value
			switch e.Ref {
			case refPayloadOffset:
				v = payloadOffsets[e.Index]
			case refPayloadLength:
				v = uint32(len(payloads[e.Index]))
			case refIFD:
				v = ifdOffsets[e.Index]
			}
			_ = binary.Write(&buf, order, e.Tag)
			_ = binary.Write(&buf, order, e.Type)
			_ = binary.Write(&buf, order, e.Count)
			var val [4]byte
			if e.Type == 3 && e.Count == 1 {
				order.PutUint16(val[:], uint16(v))
			} else {
				order.PutUint32(val[:], v)
			}
			buf.Write(val[:])
		}
		next := uint32(0)
		if d.Next > 0 {
			next = ifdOffsets[d.Next-1]
		}
		_ = binary.Write(&buf, order, next)
	}
	for _, p := range payloads {
		buf.Write(p)
	}
	return buf.Bytes()
}

func short(tag uint16, v uint32) testEntry {
	return testEntry{Tag: tag, Type: 3, Count: 1, Value: v}
}

func long(tag uint16, v uint32) testEntry {
	return testEntry{Tag: tag, Type: 4, Count: 1, Value: v}
}

// jpegIFD 描述一个通过 JPEGInterchangeFormat 指向第 payload 个数据块的 IFD
func jpegIFD(payload, next int) testIFD {
	return testIFD{
		Entries: []testEntry{
			{Tag: tagJPEGInterchange, Type: 4, Count: 1, Ref: refPayloadOffset, Index: payload},
			{Tag: tagJPEGInterchangeLen, Type: 4, Count: 1, Ref: refPayloadLength, Index: payload},
		},
		Next: next,
	}
}

// stripEntries 描述一个单条带图像
func stripEntries(payload int, compression, photometric, bits uint32, w, h uint32) []testEntry {
	return []testEntry{
		long(tagImageWidth, w),
		long(tagImageLength, h),
		short(tagBitsPerSample, bits),
		short(tagCompression, compression),
		short(tagPhotometric, photometric),
		{Tag: tagStripOffsets, Type: 4, Count: 1, Ref: refPayloadOffset, Index: payload},
		short(tagSamplesPerPixel, 3),
		{Tag: tagStripByteCounts, Type: 4, Count: 1, Ref: refPayloadLength, Index: payload},
	}
}

// makeJPEG 编码一张 w×h 的渐变图
func makeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("编码 JPEG 夹具失败: %v", err)
	}
	return buf.Bytes()
}

// padded 返回长度恰好为 n 的数据块，data 放在开头
func padded(t *testing.T, data []byte, n int) []byte {
	t.Helper()
	if len(data) > n {
		t.Fatalf("夹具长度 %d 超过目标长度 %d", len(data), n)
	}
	out := make([]byte, n)
	copy(out, data)
	for i := len(data); i < n; i++ {
		out[i] = byte(i)
	}
	return out
}

func filler(n int, b byte) []byte {
	return bytes.Repeat([]byte{b}, n)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("写入测试文件失败: %v", err)
	}
	return path
}
