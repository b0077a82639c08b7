package ratelimit

import (
	"sync"
	"time"
)

const (
	ActionSendMessage        = "send_message"
	ActionCreateConversation = "create_conversation"
	ActionTyping             = "typing"
	ActionReact              = "react"
)

// Limit describes a bucket: Burst tokens, refilled one at a time every
// Every.
type Limit struct {
	Burst int
	Every time.Duration
}

// PerMinute spreads n actions evenly over a minute.
func PerMinute(n int) Limit {
	if n <= 0 {
		n = 1
	}
	return Limit{Burst: n, Every: time.Minute / time.Duration(n)}
}

// PerHour spreads n actions evenly over an hour.
func PerHour(n int) Limit {
	if n <= 0 {
		n = 1
	}
	return Limit{Burst: n, Every: time.Hour / time.Duration(n)}
}

// TokenBucket represents a token bucket for rate limiting
type TokenBucket struct {
	tokens     int
	maxTokens  int
	refillTime time.Duration
	lastRefill time.Time
	lastUsed   time.Time
	mutex      sync.Mutex
}

func NewTokenBucket(limit Limit, now time.Time) *TokenBucket {
	return &TokenBucket{
		tokens:     limit.Burst,
		maxTokens:  limit.Burst,
		refillTime: limit.Every,
		lastRefill: now,
		lastUsed:   now,
	}
}

// Allow consumes a token if one is available. Otherwise it reports how long
// until the next refill.
func (tb *TokenBucket) Allow(now time.Time) (bool, time.Duration) {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.lastUsed = now
	if elapsed := now.Sub(tb.lastRefill); elapsed >= tb.refillTime {
		refills := int(elapsed / tb.refillTime)
		tb.tokens += refills
		if tb.tokens > tb.maxTokens {
			tb.tokens = tb.maxTokens
		}
		tb.lastRefill = tb.lastRefill.Add(time.Duration(refills) * tb.refillTime)
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true, 0
	}
	return false, tb.lastRefill.Add(tb.refillTime).Sub(now)
}

// RateLimiter keeps one bucket per user and action.
type RateLimiter struct {
	limits   map[string]Limit
	fallback Limit
	buckets  map[string]*TokenBucket
	mutex    sync.RWMutex
	now      func() time.Time
}

func NewRateLimiter(limits map[string]Limit) *RateLimiter {
	return &RateLimiter{
		limits:   limits,
		fallback: PerMinute(60),
		buckets:  make(map[string]*TokenBucket),
		now:      time.Now,
	}
}

// DefaultLimits mirrors the production tuning.
func DefaultLimits(messagesPerMinute, conversationsPerHour int) map[string]Limit {
	return map[string]Limit{
		ActionSendMessage:        PerMinute(messagesPerMinute),
		ActionCreateConversation: PerHour(conversationsPerHour),
		ActionTyping:             PerMinute(120),
		ActionReact:              PerMinute(60),
	}
}

// Unlimited never rejects; used when rate limiting is not wanted.
func Unlimited() *RateLimiter {
	return nil
}

// Allow checks if a user action is allowed. A nil limiter allows everything.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	if rl == nil {
		return true, 0
	}
	key := userID + ":" + action

	rl.mutex.RLock()
	bucket, exists := rl.buckets[key]
	rl.mutex.RUnlock()

	if !exists {
		rl.mutex.Lock()
		if bucket, exists = rl.buckets[key]; !exists {
			limit, ok := rl.limits[action]
			if !ok {
				limit = rl.fallback
			}
			bucket = NewTokenBucket(limit, rl.now())
			rl.buckets[key] = bucket
		}
		rl.mutex.Unlock()
	}

	return bucket.Allow(rl.now())
}

// Cleanup removes buckets idle for longer than idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) int {
	if rl == nil {
		return 0
	}
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	removed := 0
	for key, bucket := range rl.buckets {
		bucket.mutex.Lock()
		stale := now.Sub(bucket.lastUsed) > idle
		bucket.mutex.Unlock()
		if stale {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// StartCleanupRoutine prunes idle buckets until done is closed.
func (rl *RateLimiter) StartCleanupRoutine(done <-chan struct{}) {
	if rl == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			case <-done:
				return
			}
		}
	}()
}
