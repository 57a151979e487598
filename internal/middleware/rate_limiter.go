package middleware

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter 窗口期内的调用次数限制器，用于控制摘要API的每日调用预算
type RateLimiter struct {
	mu            sync.RWMutex
	requestsCount int64
	lastReset     time.Time
	window        time.Duration
	maxRequests   int64
}

// NewRateLimiter 创建新的速率限制器，maxRequests为0或负数时不限流
func NewRateLimiter(maxRequests int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		lastReset:   time.Now(),
	}
}

// Check 申请一次调用配额，返回是否允许
func (rl *RateLimiter) Check() bool {
	if rl.maxRequests <= 0 {
		return true
	}

	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// 窗口到期后重置计数
	if now.Sub(rl.lastReset) >= rl.window {
		rl.requestsCount = 0
		rl.lastReset = now
	}

	if rl.requestsCount < rl.maxRequests {
		rl.requestsCount++
		return true
	}

	return false
}

// Status 速率限制状态
type Status struct {
	Limit     int64
	Used      int64
	Remaining int64
	ResetIn   time.Duration
}

// GetStatus 获取当前状态
func (rl *RateLimiter) GetStatus() Status {
	now := time.Now()

	rl.mu.RLock()
	defer rl.mu.RUnlock()

	remaining := rl.maxRequests - rl.requestsCount
	if remaining < 0 {
		remaining = 0
	}

	return Status{
		Limit:     rl.maxRequests,
		Used:      rl.requestsCount,
		Remaining: remaining,
		ResetIn:   rl.window - now.Sub(rl.lastReset),
	}
}

// RateLimitError 限流错误
type RateLimitError struct {
	Status Status
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d/%d used, reset in %v",
		e.Status.Used, e.Status.Limit, e.Status.ResetIn.Round(time.Second))
}
