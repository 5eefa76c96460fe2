package rawthumb

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/domain/model"
)

// Fujifilm RAF 头部布局
const (
	rafMagic         = "FUJIFILMCCD-RAW "
	rafJPEGOffsetPos = 84
	rafHeaderSize    = 92
)

// readRAFDirectory 从 RAF 头部读取内嵌 JPEG 的位置。
// RAF 只声明一张全尺寸预览，长度为 0 时返回空目录。
func readRAFDirectory(r io.ReaderAt, size int64) ([]model.ThumbnailRecord, error) {
	if size < rafHeaderSize {
		return nil, fmt.Errorf("%w: RAF 头部不完整", errUnknownContainer)
	}
	var buf [8]byte
	if _, err := r.ReadAt(buf[:], rafJPEGOffsetPos); err != nil && err != io.EOF {
		return nil, err
	}
	offset := binary.BigEndian.Uint32(buf[0:4])
	length := binary.BigEndian.Uint32(buf[4:8])
	if length == 0 {
		return nil, nil
	}
	return []model.ThumbnailRecord{{
		Format: model.ThumbnailFormatJPEG,
		Offset: uint64(offset),
		Length: uint64(length),
		Source: "RAF",
	}}, nil
}
