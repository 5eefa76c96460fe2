/*
 * @Description: RAW 容器缩略图目录解析
 * @Author: 安知鱼
 * @Date: 2025-10-14 10:30:11
 * @LastEditTime: 2025-10-15 09:12:40
 * @LastEditors: 安知鱼
 */
package rawthumb

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/domain/model"
)

const sniffSize = 16

// ReadDirectory 打开 path 指向的 RAW 容器并列出其中全部内嵌预览记录。
// 任何打开或解析失败都以 *ContainerOpenError 返回；文件句柄在返回前关闭。
func ReadDirectory(path string) (*model.ThumbnailDirectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ContainerOpenError{Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &ContainerOpenError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &ContainerOpenError{Path: path, Err: fmt.Errorf("'%s' 是一个目录", path)}
	}
	size := info.Size()

	header, err := sniffHeader(f)
	if err != nil {
		return nil, &ContainerOpenError{Path: path, Err: err}
	}

	var records []model.ThumbnailRecord
	switch {
	case strings.HasPrefix(string(header), rafMagic):
		records, err = readRAFDirectory(f, size)
	case len(header) >= 8:
		records, err = readTIFFDirectory(f, size, header)
	default:
		err = errUnknownContainer
	}
	if err != nil {
		return nil, &ContainerOpenError{Path: path, Err: err}
	}

	return &model.ThumbnailDirectory{Records: records}, nil
}

// sniffHeader 读取文件开头用于识别容器的字节，文件比 sniffSize 短时返回实际读到的部分
func sniffHeader(r io.ReaderAt) ([]byte, error) {
	header := make([]byte, sniffSize)
	n, err := r.ReadAt(header, 0)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("读取文件头失败: %w", err)
	}
	return header[:n], nil
}
