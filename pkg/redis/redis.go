package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"share-worker/backend/config"
)

// Client Redis 客户端封装
// 用于 Token 黑名单、限流、紧急码失败计数、扫码凭证一次性校验与事件发布
type Client struct {
	rdb    goredis.UniversalClient
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}

// ── Token 黑名单（由认证服务写入）──

const blacklistPrefix = "token:blacklist:"

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 限流 ──

// CheckRateLimit 滑动窗口限流，返回本次请求是否放行
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	member := strconv.FormatInt(now.UnixNano(), 10)
	windowStart := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", windowStart)
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixNano()), Member: member})
	count := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return count.Val() <= int64(limit), nil
}

// ── 紧急码失败计数 ──

const (
	attemptPrefix = "emergency:attempts:"
	lockPrefix    = "emergency:lock:"
)

// AttemptState 单个验证会话的失败计数
func (c *Client) AttemptState(ctx context.Context, session string) (failures int, locked bool, err error) {
	pipe := c.rdb.Pipeline()
	countCmd := pipe.Get(ctx, attemptPrefix+session)
	lockCmd := pipe.Exists(ctx, lockPrefix+session)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, goredis.Nil) {
		return 0, false, err
	}
	if v, err := countCmd.Int(); err == nil {
		failures = v
	}
	return failures, lockCmd.Val() > 0, nil
}

// RecordAttemptFailure 失败计数加一；达到阈值时写入锁定标记（不设过期，需人工解除）
// ttl <= 0 时计数不过期（EXPIRE 0 会直接删除键）
func (c *Client) RecordAttemptFailure(ctx context.Context, session string, threshold int, ttl time.Duration) (failures int, locked bool, err error) {
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, attemptPrefix+session)
	if ttl > 0 {
		pipe.Expire(ctx, attemptPrefix+session, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, false, err
	}
	failures = int(incr.Val())
	if failures >= threshold {
		if err := c.rdb.Set(ctx, lockPrefix+session, failures, 0).Err(); err != nil {
			return failures, false, err
		}
		return failures, true, nil
	}
	return failures, false, nil
}

// ResetAttempts 验证成功后清零
func (c *Client) ResetAttempts(ctx context.Context, session string) error {
	return c.rdb.Del(ctx, attemptPrefix+session).Err()
}

// ClearAttemptLock 设施人员解除锁定，同时清零计数
func (c *Client) ClearAttemptLock(ctx context.Context, session string) error {
	return c.rdb.Del(ctx, attemptPrefix+session, lockPrefix+session).Err()
}

// ── 扫码凭证一次性校验 ──

const scanTokenPrefix = "scan:used:"

// ClaimScanToken 以 SETNX 占用 jti；已被占用时返回占用者
func (c *Client) ClaimScanToken(ctx context.Context, jti, owner string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	ok, err := c.rdb.SetNX(ctx, scanTokenPrefix+jti, owner, ttl).Result()
	if err != nil {
		return "", err
	}
	if ok {
		return owner, nil
	}
	return c.rdb.Get(ctx, scanTokenPrefix+jti).Result()
}

// ── 事件发布 ──

// Publish 向频道发布消息
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.rdb.Publish(ctx, channel, payload).Err()
}
