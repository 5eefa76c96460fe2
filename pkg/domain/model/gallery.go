package model

import "time"

// GalleryStatus 定义了画廊中单个格子的状态
type GalleryStatus string

const (
	GalleryStatusReady  GalleryStatus = "ready"  // 预览可用
	GalleryStatusFailed GalleryStatus = "failed" // 无可用预览
)

// ErrorKind 是对单文件处理失败原因的分类，供前端决定如何展示格子
type ErrorKind string

const (
	ErrorKindNone              ErrorKind = ""
	ErrorKindContainerOpen     ErrorKind = "container_open"
	ErrorKindNoThumbnail       ErrorKind = "no_thumbnail"
	ErrorKindIO                ErrorKind = "io"
	ErrorKindDecodeCorrupt     ErrorKind = "decode_corrupt"
	ErrorKindDecodeUnsupported ErrorKind = "decode_unsupported"
	ErrorKindTimeout           ErrorKind = "timeout"
	ErrorKindUnsupportedFile   ErrorKind = "unsupported_file"
	ErrorKindUnknown           ErrorKind = "unknown"
)

// GalleryEntry 代表画廊中的一个 RAW 文件。只保存元信息，不缓存像素数据。
type GalleryEntry struct {
	PublicID     string           `json:"id"`
	Name         string           `json:"name"`
	Path         string           `json:"-"`
	Size         int64            `json:"size"`
	ModTime      time.Time        `json:"modTime"`
	Status       GalleryStatus    `json:"status"`
	ErrorKind    ErrorKind        `json:"errorKind,omitempty"`
	Error        string           `json:"error,omitempty"`
	Width        uint32           `json:"width,omitempty"`
	Height       uint32           `json:"height,omitempty"`
	PrimaryColor string           `json:"primaryColor,omitempty"`
	Record       *ThumbnailRecord `json:"record,omitempty"`
}

// GallerySnapshot 是一次目录扫描的完整结果
type GallerySnapshot struct {
	Root      string          `json:"root"`
	Columns   int             `json:"columns"`
	ScannedAt time.Time       `json:"scannedAt"`
	Entries   []*GalleryEntry `json:"entries"`
}
