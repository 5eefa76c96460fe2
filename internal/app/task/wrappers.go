/*
 * @Description: 用于后台任务的装饰器：结构化日志与 panic 恢复。
 * @Author: 安知鱼
 * @Date: 2025-06-29 22:36:09
 * @LastEditTime: 2025-10-15 11:20:05
 * @LastEditors: 安知鱼
 */
package task

import (
	"log/slog"
	"reflect"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// JobWrapper 是 cron.JobWrapper 的类型别名。
type JobWrapper = cron.JobWrapper

// namedFuncJob 是带名字的 cron.FuncJob，装饰器层层嵌套后外层仍能取到原始任务名
type namedFuncJob struct {
	name string
	run  func()
}

func (j namedFuncJob) Run()         { j.run() }
func (j namedFuncJob) Name() string { return j.name }

// scheduledJobWrappers 返回调度器使用的装饰器链。DelayIfStillRunning 返回匿名的 FuncJob，
// 必须放在最外层，否则内层的日志与 panic 恢复拿不到任务名。
func scheduledJobWrappers(logger *slog.Logger) []JobWrapper {
	return []JobWrapper{
		cron.DelayIfStillRunning(cron.DefaultLogger),
		NewPanicRecoveryWrapper(logger),
		NewLoggingWrapper(logger),
	}
}

// NewLoggingWrapper 在任务开始和结束时各记录一条日志，
// 同一次执行的日志共享一个 execution_id。
func NewLoggingWrapper(logger *slog.Logger) JobWrapper {
	return func(j cron.Job) cron.Job {
		name := getJobName(j)
		return namedFuncJob{name: name, run: func() {
			jobLogger := logger.With(
				slog.String("job_name", name),
				slog.String("execution_id", uuid.New().String()),
			)

			startTime := time.Now()
			jobLogger.Info("Job execution started")
			j.Run()
			jobLogger.Info("Job execution finished", slog.Duration("duration", time.Since(startTime)))
		}}
	}
}

// NewPanicRecoveryWrapper 捕获任务中的 panic 并记录堆栈，worker 和调度器继续运行。
// onPanic 可以为 nil。
func NewPanicRecoveryWrapper(logger *slog.Logger, onPanic ...func(jobName string, r any)) JobWrapper {
	return func(j cron.Job) cron.Job {
		jobName := getJobName(j)
		return namedFuncJob{name: jobName, run: func() {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				logger.Error("Job panicked",
					slog.String("job_name", jobName),
					slog.Any("panic", r),
					slog.String("stack_trace", string(debug.Stack())),
				)
				for _, fn := range onPanic {
					if fn != nil {
						fn(jobName, r)
					}
				}
			}()

			j.Run()
		}}
	}
}

// getJobName 优先使用任务的 Name() 方法，否则返回其类型名，例如 "task.GalleryRescanJob"。
func getJobName(j cron.Job) string {
	if namedJob, ok := j.(interface{ Name() string }); ok {
		return namedJob.Name()
	}

	jobType := reflect.TypeOf(j)
	if jobType.Kind() == reflect.Ptr {
		return jobType.Elem().String()
	}
	return jobType.String()
}
