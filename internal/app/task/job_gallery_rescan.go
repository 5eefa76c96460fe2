// internal/app/task/job_gallery_rescan.go
package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/domain/model"
)

// Rescanner 是画廊索引对任务模块暴露的能力
type Rescanner interface {
	Rescan(ctx context.Context) (*model.GallerySnapshot, error)
}

// GalleryRescanJob 重新扫描画廊目录
type GalleryRescanJob struct {
	rescanner Rescanner
	timeout   time.Duration
	logger    *slog.Logger
	trigger   string
}

// NewGalleryRescanJob 是任务的构造函数，trigger 用于日志区分定时触发和手动触发
func NewGalleryRescanJob(rescanner Rescanner, timeout time.Duration, logger *slog.Logger, trigger string) *GalleryRescanJob {
	return &GalleryRescanJob{
		rescanner: rescanner,
		timeout:   timeout,
		logger:    logger,
		trigger:   trigger,
	}
}

// Run 是 Job 接口要求实现的方法
func (j *GalleryRescanJob) Run() {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	snapshot, err := j.rescanner.Rescan(ctx)
	if err != nil {
		j.logger.Error("Gallery rescan failed", slog.String("trigger", j.trigger), slog.Any("error", err))
		return
	}
	j.logger.Info("Gallery rescan completed",
		slog.String("trigger", j.trigger),
		slog.String("root", snapshot.Root),
		slog.Int("entries", len(snapshot.Entries)),
	)
}

// Name 方法让日志包装器可以打印出更有意义的任务名
func (j *GalleryRescanJob) Name() string {
	return "GalleryRescanJob(" + j.trigger + ")"
}
