/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-06-27 12:08:15
 * @LastEditTime: 2025-10-14 11:06:30
 * @LastEditors: 安知鱼
 */
package constant

import "errors"

// 定义业务逻辑相关的标准错误
var (
	// ErrNotFound 表示资源未找到，可以由 Handler 转换为 404
	ErrNotFound = errors.New("资源未找到")

	// ErrBadRequest 表示请求参数错误，可以由 Handler 转换为 400
	ErrBadRequest = errors.New("错误的请求")

	// ErrInvalidPublicID 表示无效的公共ID，可以由 Handler 转换为 400
	ErrInvalidPublicID = errors.New("无效的公共ID")

	// ErrContainerOpen 表示 RAW 容器无法打开或其目录无法解析，可以由 Handler 转换为 422
	ErrContainerOpen = errors.New("无法打开或解析 RAW 容器")

	// ErrNoThumbnailFound 表示容器解析成功但没有任何 JPEG 格式的内嵌预览，可以由 Handler 转换为 404
	ErrNoThumbnailFound = errors.New("未找到 JPEG 内嵌预览图")

	// ErrRangeRead 表示读取预览图字节范围失败，可以由 Handler 转换为 500
	ErrRangeRead = errors.New("读取预览图数据失败")

	// ErrDecode 表示提取出的字节不是有效的 JPEG 数据流，可以由 Handler 转换为 415
	ErrDecode = errors.New("预览图解码失败")

	// ErrTimeout 表示单文件处理超时，可以由 Handler 转换为 504
	ErrTimeout = errors.New("预览图提取超时")

	// ErrUnsupportedFile 表示没有任何生成器可以处理该文件，可以由 Handler 转换为 415
	ErrUnsupportedFile = errors.New("不支持的文件类型")
)
