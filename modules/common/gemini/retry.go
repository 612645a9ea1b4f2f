package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"veo-studio-server/modules/common/logger"
)

// RetryPolicy - 키당 시도 횟수 + 대기 시간
type RetryPolicy struct {
	AttemptsPerKey int
	Delay          time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{AttemptsPerKey: 3, Delay: 2 * time.Second}
}

// WithKeyRetry - 429 에러 시 같은 키로 재시도, 다 쓰면 다음 키로
// 429 가 아닌 에러는 바로 반환
func WithKeyRetry[T any](ctx context.Context, policy RetryPolicy, keys int, log *logger.Logger, call func(ctx context.Context, key int) (T, error)) (T, error) {
	var zero T
	if keys == 0 {
		return zero, fmt.Errorf("no API keys provided")
	}
	if policy.AttemptsPerKey <= 0 {
		policy.AttemptsPerKey = 1
	}

	var lastErr error
	for key := 0; key < keys; key++ {
		for attempt := 1; attempt <= policy.AttemptsPerKey; attempt++ {
			result, err := call(ctx, key)
			if err == nil {
				if key > 0 || attempt > 1 {
					log.Info("✅ [Gemini Retry] Success", "key", key+1, "attempt", attempt)
				}
				return result, nil
			}

			lastErr = err
			if !IsRateLimited(err) {
				return zero, err
			}

			log.Warn("⚠️  [Gemini Retry] Rate limited", "key", key+1, "attempt", attempt, "maxAttempts", policy.AttemptsPerKey)

			if attempt < policy.AttemptsPerKey {
				select {
				case <-ctx.Done():
					return zero, ctx.Err()
				case <-time.After(policy.Delay):
				}
			}
		}
		log.Warn("⚠️  [Gemini Retry] Key exhausted, trying next key", "key", key+1)
	}

	return zero, fmt.Errorf("all %d API keys exhausted (%d attempts each), last error: %w", keys, policy.AttemptsPerKey, lastErr)
}

// IsRateLimited - 429 Rate Limit 에러인지 확인
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "resource_exhausted")
}
