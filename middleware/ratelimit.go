package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimit 写操作限流中间件
// 每 IP 在 window 内最多 maxAttempts 次请求，超过则返回 429。
// 过期数据在请求路径上顺带清理，没有后台协程，可按路由组任意创建多个实例
func RateLimit(maxAttempts int, window time.Duration) gin.HandlerFunc {
	var (
		mu        sync.Mutex
		store     = make(map[string][]time.Time)
		lastSweep = time.Now()
	)

	prune := func(timestamps []time.Time, cutoff time.Time) []time.Time {
		kept := timestamps[:0]
		for _, t := range timestamps {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		return kept
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()
		cutoff := now.Add(-window)

		mu.Lock()
		// 每隔一个窗口全量清理一次久未活动的 IP
		if now.Sub(lastSweep) >= window {
			for k, ts := range store {
				if kept := prune(ts, cutoff); len(kept) == 0 {
					delete(store, k)
				} else {
					store[k] = kept
				}
			}
			lastSweep = now
		}

		timestamps := prune(store[ip], cutoff)
		if len(timestamps) >= maxAttempts {
			store[ip] = timestamps
			mu.Unlock()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    429,
				"message": "操作过于频繁，请稍后再试",
			})
			c.Abort()
			return
		}
		store[ip] = append(timestamps, now)
		mu.Unlock()
		c.Next()
	}
}
