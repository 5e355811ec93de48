// Package ratelimiter はクライアント単位の固定ウィンドウ方式のレート制限を提供します。
package ratelimiter

import (
	"sync"
	"time"
)

// window は1クライアント分のカウンタです。
type window struct {
	count     int
	lastReset time.Time
}

// RateLimiter は、キー（クライアントIPなど）ごとにinterval内の操作回数を制限します。
// 複数のゴルーチンから安全に利用できます。
type RateLimiter struct {
	limit    int           // interval あたりの上限
	interval time.Duration // どの単位でリセットするか
	now      func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// NewRateLimiter は新しいRateLimiterのインスタンスを生成します。
// limitが0以下の場合は nil を返し、呼び出し側は制限なしとして扱います。
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	if limit <= 0 || interval <= 0 {
		return nil
	}
	return &RateLimiter{
		limit:    limit,
		interval: interval,
		now:      time.Now,
		windows:  make(map[string]*window),
	}
}

// Allow はkeyの操作を1回消費し、上限内であればtrueを返します。
// 上限に達している場合は次のリセットまでの残り時間を返します。
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	// interval を過ぎたらカウントリセット
	if !ok || now.Sub(w.lastReset) >= rl.interval {
		rl.sweep(now)
		w = &window{lastReset: now}
		rl.windows[key] = w
	}

	if w.count >= rl.limit {
		return false, rl.interval - now.Sub(w.lastReset)
	}
	w.count++
	return true, 0
}

// sweep は期限切れのウィンドウを削除します。
func (rl *RateLimiter) sweep(now time.Time) {
	for k, w := range rl.windows {
		if now.Sub(w.lastReset) >= rl.interval {
			delete(rl.windows, k)
		}
	}
}
