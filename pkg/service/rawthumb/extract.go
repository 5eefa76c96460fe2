package rawthumb

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/domain/model"
)

// ReadRange 以独立的只读句柄读取 [offset, offset+length] 范围内的字节。
// 返回的切片通常为 length+1 字节，多出的 1 个字节是给解码器留的余量；
// 若记录恰好结束在文件末尾，余量字节缺失，此时返回 length 字节。
func ReadRange(path string, offset, length uint64) ([]byte, error) {
	fail := func(err error) ([]byte, error) {
		return nil, &IoError{Path: path, Offset: offset, Length: length, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return fail(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fail(err)
	}
	size := uint64(info.Size())

	if offset > size {
		return fail(fmt.Errorf("偏移 %d 超出文件大小 %d", offset, size))
	}
	if length > size-offset {
		return fail(fmt.Errorf("范围结束位置 %d 超出文件大小 %d", offset+length, size))
	}

	if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
		return fail(err)
	}

	want := length + 1
	buf := make([]byte, want)
	n, err := io.ReadFull(io.LimitReader(f, int64(want)), buf)
	switch {
	case err == nil:
	case errors.Is(err, io.ErrUnexpectedEOF) && uint64(n) == length:
		// 只有余量字节缺失
	case errors.Is(err, io.EOF) && length == 0:
	default:
		return fail(err)
	}
	return buf[:n], nil
}

// ReadRecord 读取 rec 描述的字节范围
func ReadRecord(path string, rec model.ThumbnailRecord) ([]byte, error) {
	return ReadRange(path, rec.Offset, rec.Length)
}
