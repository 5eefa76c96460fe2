package preview

import (
	"fmt"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/constant"
)

// DecodeErrorKind 区分解码失败的原因。调用方对两者的处理相同，
// 区分只用于日志和接口返回。
type DecodeErrorKind int

const (
	DecodeErrorCorrupt     DecodeErrorKind = iota // 数据流损坏或被截断
	DecodeErrorUnsupported                        // 合法但使用了不支持的特性
)

func (k DecodeErrorKind) String() string {
	switch k {
	case DecodeErrorCorrupt:
		return "corrupt"
	case DecodeErrorUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("unknown_%d", int(k))
	}
}

// DecodeError 表示提取出的字节无法解码为有效的 JPEG 图像
type DecodeError struct {
	Kind DecodeErrorKind
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("预览图解码失败 (%s): %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is 使 errors.Is(err, constant.ErrDecode) 成立。
func (e *DecodeError) Is(target error) bool {
	return target == constant.ErrDecode
}

func corrupt(err error) *DecodeError {
	return &DecodeError{Kind: DecodeErrorCorrupt, Err: err}
}

func unsupported(err error) *DecodeError {
	return &DecodeError{Kind: DecodeErrorUnsupported, Err: err}
}
