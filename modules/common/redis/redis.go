package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"veo-studio-server/modules/common/config"
	"veo-studio-server/modules/common/logger"
)

// Connect - Redis 연결 생성 + ping 확인
func Connect(cfg *config.Config, log *logger.Logger) (*redis.Client, error) {
	log.Info("🔌 Connecting to Redis", "addr", cfg.GetRedisAddr(), "tls", cfg.RedisUseTLS)

	var tlsConfig *tls.Config
	if cfg.RedisUseTLS {
		tlsConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Username:     cfg.RedisUsername,
		Password:     cfg.RedisPassword,
		TLSConfig:    tlsConfig,
		DB:           0,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// 연결 테스트
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	log.Info("✅ Redis connected", "addr", cfg.GetRedisAddr())
	return rdb, nil
}

// 취소 플래그 키 (TTL 1일)
const cancelFlagTTL = 24 * time.Hour

func cancelKey(jobID string) string {
	return "job:cancel:" + jobID
}

// SetJobCancelled - Job 취소 플래그 설정
func SetJobCancelled(ctx context.Context, rdb *redis.Client, jobID string) error {
	if err := rdb.Set(ctx, cancelKey(jobID), "1", cancelFlagTTL).Err(); err != nil {
		return fmt.Errorf("set cancel flag for %s: %w", jobID, err)
	}
	return nil
}

// IsJobCancelled - 취소 플래그 확인 (조회 실패는 취소 아님으로 처리)
func IsJobCancelled(ctx context.Context, rdb *redis.Client, jobID string) bool {
	n, err := rdb.Exists(ctx, cancelKey(jobID)).Result()
	return err == nil && n > 0
}
