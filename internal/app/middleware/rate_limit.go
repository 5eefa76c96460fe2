/*
 * @Description: 频率限制中间件
 * @Author: 安知鱼
 * @Date: 2025-11-08 00:00:00
 * @LastEditTime: 2025-11-09 10:12:33
 * @LastEditors: 安知鱼
 */
package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/anzhiyu-c/anheyu-rawview/pkg/response"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterIdleTTL         = 10 * time.Minute
)

// ipRateLimiter 为每个IP地址维护一个令牌桶
type ipRateLimiter struct {
	limiters map[string]*limiterInfo
	mu       sync.Mutex
	every    rate.Limit
	burst    int
}

// limiterInfo 存储限流器及其最后访问时间
type limiterInfo struct {
	limiter      *rate.Limiter
	lastAccessed time.Time
}

// newIPRateLimiter 创建一个每分钟允许 requestsPerMinute 次、突发 burst 次的IP限流器
func newIPRateLimiter(requestsPerMinute, burst int) *ipRateLimiter {
	if burst <= 0 {
		burst = requestsPerMinute
	}
	return &ipRateLimiter{
		limiters: make(map[string]*limiterInfo),
		every:    rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:    burst,
	}
}

// getLimiter 获取指定IP的限流器，不存在时创建
func (i *ipRateLimiter) getLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := time.Now()
	info, exists := i.limiters[ip]
	if !exists {
		info = &limiterInfo{limiter: rate.NewLimiter(i.every, i.burst)}
		i.limiters[ip] = info
	}
	info.lastAccessed = now
	return info.limiter
}

// sweep 删除超过 ttl 未访问的限流器，返回删除数量
func (i *ipRateLimiter) sweep(ttl time.Duration) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	removed := 0
	for ip, info := range i.limiters {
		if time.Since(info.lastAccessed) > ttl {
			delete(i.limiters, ip)
			removed++
		}
	}
	return removed
}

func (i *ipRateLimiter) cleanupStaleEntries() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		i.sweep(limiterIdleTTL)
	}
}

// getClientIP 获取客户端真实IP地址
func getClientIP(c *gin.Context) string {
	if clientIP := strings.TrimSpace(c.GetHeader("X-Real-IP")); clientIP != "" {
		return clientIP
	}

	// X-Forwarded-For 的格式为：client, proxy1, proxy2，取第一个
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if ip, _, err := net.SplitHostPort(first); err == nil {
			return ip
		}
		if first != "" {
			return first
		}
	}

	if ip, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
		return ip
	}
	return c.Request.RemoteAddr
}

// PreviewRateLimit 限制每个IP请求预览图的频率。提取预览需要读取并解码整张内嵌 JPEG，
// 开销远高于普通接口。requestsPerMinute <= 0 表示不限制。
func PreviewRateLimit(requestsPerMinute, burst int) gin.HandlerFunc {
	if requestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := newIPRateLimiter(requestsPerMinute, burst)
	go limiter.cleanupStaleEntries()

	return func(c *gin.Context) {
		if !limiter.getLimiter(getClientIP(c)).Allow() {
			response.Fail(c, http.StatusTooManyRequests, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}
		c.Next()
	}
}
