package rawthumb

import (
	"errors"
	"fmt"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/constant"
)

// ErrNoThumbnailFound 容器解析成功，但没有任何 JPEG 格式的预览记录。
// 这是部分 RAW 变体的正常结果，调用方不应将其当作异常记录。
var ErrNoThumbnailFound = constant.ErrNoThumbnailFound

var (
	errUnknownContainer = errors.New("无法识别的容器格式")
	errInvalidIFD       = errors.New("无效的 IFD")
)

// ContainerOpenError 表示 RAW 容器无法打开，或其缩略图目录无法解析。
type ContainerOpenError struct {
	Path string
	Err  error
}

func (e *ContainerOpenError) Error() string {
	return fmt.Sprintf("打开 RAW 容器 '%s' 失败: %v", e.Path, e.Err)
}

func (e *ContainerOpenError) Unwrap() error { return e.Err }

// Is 使 errors.Is(err, constant.ErrContainerOpen) 成立。
func (e *ContainerOpenError) Is(target error) bool {
	return target == constant.ErrContainerOpen
}

// IoError 表示读取预览字节范围时发生的错误（越界、权限、I/O 故障）。
type IoError struct {
	Path   string
	Offset uint64
	Length uint64
	Err    error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("读取 '%s' 的字节范围 [%d, +%d) 失败: %v", e.Path, e.Offset, e.Length, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// Is 使 errors.Is(err, constant.ErrRangeRead) 成立。
func (e *IoError) Is(target error) bool {
	return target == constant.ErrRangeRead
}
