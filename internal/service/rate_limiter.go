package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	redisclient "github.com/scripty/hub-server-go/internal/redis"
)

// rateLimitScript is a Lua script for sliding window rate limiting
var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

local windowStart = now - window

redis.call('ZREMRANGEBYSCORE', key, '-inf', windowStart)

local count = redis.call('ZCARD', key)

if count >= limit then
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local resetAt = 0
    if #oldest >= 2 then
        resetAt = tonumber(oldest[2]) + window
    else
        resetAt = now + window
    end
    return {0, resetAt}
end

redis.call('ZADD', key, now, now .. '-' .. math.random())
redis.call('EXPIRE', key, window + 10)

local resetAt = now + window
return {1, resetAt}
`)

// RateLimiter is a Redis sliding-window limiter shared by the connection
// and transcription limits.
type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// CheckLimit records one hit against key and reports whether it is within
// limit for the trailing window. Redis failures deny.
func (rl *RateLimiter) CheckLimit(
	ctx context.Context,
	key string,
	limit int,
	window time.Duration,
) (allowed bool, resetAt time.Time) {
	now := time.Now().Unix()
	fullKey := fmt.Sprintf("ratelimit:%s", key)

	result, err := rateLimitScript.Run(
		ctx,
		rl.client,
		[]string{fullKey},
		now,
		int64(window.Seconds()),
		limit,
	).Int64Slice()

	if err != nil {
		log.Warn().
			Err(err).
			Str("key", key).
			Msg("rate limit check failed, denying request for safety")
		return false, time.Now().Add(window)
	}

	if len(result) != 2 {
		log.Warn().Str("key", key).Msg("unexpected rate limit result, denying request for safety")
		return false, time.Now().Add(window)
	}

	return result[0] == 1, time.Unix(result[1], 0)
}

// TranscriptionLimiter caps CALL_TTS_API submissions per cluster.
type TranscriptionLimiter struct {
	limiter *RateLimiter
	limit   int
	window  time.Duration
}

func NewTranscriptionLimiter(limiter *RateLimiter, limit int, window time.Duration) *TranscriptionLimiter {
	return &TranscriptionLimiter{
		limiter: limiter,
		limit:   limit,
		window:  window,
	}
}

func (l *TranscriptionLimiter) AllowTranscription(ctx context.Context, clusterID int64) bool {
	if l.limit <= 0 {
		return true
	}
	allowed, _ := l.limiter.CheckLimit(ctx, redisclient.TTSRateLimitKey(clusterID), l.limit, l.window)
	if !allowed {
		log.Warn().Int64("cluster", clusterID).Int("limit", l.limit).Msg("transcription rate limit exceeded")
	}
	return allowed
}
