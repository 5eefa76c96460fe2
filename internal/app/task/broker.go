// internal/app/task/broker.go
package task

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrBrokerStopped 表示 Broker 已停止，不再接受新任务
var ErrBrokerStopped = errors.New("任务调度器已停止")

// Options 控制 Broker 的调度行为
type Options struct {
	// RescanSchedule 是画廊重新扫描的 cron 表达式（含秒字段），为空时不注册定时扫描
	RescanSchedule string
	// RescanTimeout 是单次扫描的最长时间，0 表示不限制
	RescanTimeout time.Duration
	// Workers 是处理派发任务的 worker 数量，<=0 时使用 CPU 核数
	Workers int
}

// Broker 是整个后台任务模块的核心协调者。
type Broker struct {
	cron      *cron.Cron
	logger    *slog.Logger
	rescanner Rescanner
	opts      Options
	jobQueue  chan Job

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewBroker 是 Broker 的构造函数。
func NewBroker(rescanner Rescanner, opts Options) *Broker {
	slogHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(slogHandler).With("system", "task_broker")

	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(scheduledJobWrappers(logger)...),
	)

	broker := &Broker{
		cron:      c,
		logger:    logger,
		rescanner: rescanner,
		opts:      opts,
		jobQueue:  make(chan Job, 100),
	}

	broker.startWorkerPool()

	return broker
}

// startWorkerPool 启动固定数量的 worker goroutine 来处理任务。
func (b *Broker) startWorkerPool() {
	workerCount := b.opts.Workers
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if workerCount <= 0 {
		workerCount = 4
	}
	b.logger.Info("Starting task worker pool", "concurrency", workerCount)

	for i := 0; i < workerCount; i++ {
		workerID := i + 1
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.logger.Info("Worker started", "worker_id", workerID)
			for job := range b.jobQueue {
				jobWithWrappers := cron.NewChain(
					NewPanicRecoveryWrapper(b.logger),
					NewLoggingWrapper(b.logger),
				).Then(job)

				b.logger.Info("Worker picked up a job", "worker_id", workerID, "job_name", job.Name())
				jobWithWrappers.Run()
				b.logger.Info("Worker finished a job", "worker_id", workerID, "job_name", job.Name())
			}
			b.logger.Info("Worker stopped", "worker_id", workerID)
		}()
	}
}

// RegisterCronJobs 注册所有周期性任务。
func (b *Broker) RegisterCronJobs() error {
	b.logger.Info("Registering all periodic jobs...")

	if b.opts.RescanSchedule == "" {
		b.logger.Info("-> Skipped 'GalleryRescanJob'", "reason", "no schedule configured")
	} else {
		rescanJob := NewGalleryRescanJob(b.rescanner, b.opts.RescanTimeout, b.logger, "cron")
		if _, err := b.cron.AddJob(b.opts.RescanSchedule, rescanJob); err != nil {
			b.logger.Error("Failed to add 'GalleryRescanJob'", slog.Any("error", err))
			return fmt.Errorf("注册画廊扫描任务失败 (schedule: %q): %w", b.opts.RescanSchedule, err)
		}
		b.logger.Info("-> Successfully registered 'GalleryRescanJob'", "schedule", b.opts.RescanSchedule)
	}

	b.logger.Info("All periodic jobs registered.")
	return nil
}

// Dispatch 将任务发送到队列中。队列已满时阻塞。
func (b *Broker) Dispatch(job Job) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		return ErrBrokerStopped
	}
	b.jobQueue <- job
	return nil
}

// DispatchGalleryRescan 创建一个画廊扫描任务并将其派发到后台执行。
func (b *Broker) DispatchGalleryRescan() error {
	job := NewGalleryRescanJob(b.rescanner, b.opts.RescanTimeout, b.logger, "manual")
	if err := b.Dispatch(job); err != nil {
		return err
	}
	b.logger.Info("Successfully queued gallery rescan job")
	return nil
}

// Start 启动 cron 调度器，并立即派发一次扫描以建立初始索引。
func (b *Broker) Start() {
	b.logger.Info("Task broker started.")
	b.cron.Start()

	if err := b.Dispatch(NewGalleryRescanJob(b.rescanner, b.opts.RescanTimeout, b.logger, "startup")); err != nil {
		b.logger.Error("Failed to queue startup gallery rescan", slog.Any("error", err))
	}
}

// Stop 优雅地停止 cron 调度器和所有 worker。
func (b *Broker) Stop() {
	b.logger.Info("Stopping task broker...")
	ctx := b.cron.Stop()
	<-ctx.Done()

	b.mu.Lock()
	if !b.stopped {
		b.stopped = true
		close(b.jobQueue)
	}
	b.mu.Unlock()

	b.wg.Wait()
	b.logger.Info("Task broker gracefully stopped.")
}
