package thumbnail

import (
	"context"
	"errors"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/constant"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-rawview/pkg/service/preview"
)

// ClassifyError 将单文件处理的错误归类为 ErrorKind，nil 返回 ErrorKindNone。
func ClassifyError(err error) model.ErrorKind {
	var decErr *preview.DecodeError
	switch {
	case err == nil:
		return model.ErrorKindNone
	case errors.Is(err, constant.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return model.ErrorKindTimeout
	case errors.Is(err, constant.ErrNoThumbnailFound):
		return model.ErrorKindNoThumbnail
	case errors.Is(err, constant.ErrContainerOpen):
		return model.ErrorKindContainerOpen
	case errors.Is(err, constant.ErrRangeRead):
		return model.ErrorKindIO
	case errors.As(err, &decErr):
		if decErr.Kind == preview.DecodeErrorUnsupported {
			return model.ErrorKindDecodeUnsupported
		}
		return model.ErrorKindDecodeCorrupt
	case errors.Is(err, constant.ErrUnsupportedFile):
		return model.ErrorKindUnsupportedFile
	default:
		return model.ErrorKindUnknown
	}
}
