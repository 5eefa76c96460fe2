/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-07-12 16:09:46
 * @LastEditTime: 2025-10-14 19:20:11
 * @LastEditors: 安知鱼
 */
// internal/app/task/jobs.go
package task

// Job 是所有后台任务的接口，与 cron.Job 接口兼容。
type Job interface {
	Run()
	Name() string
}
