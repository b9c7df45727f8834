package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"share-worker/backend/pkg/redis"
)

// ScanLedger 扫码凭证 jti 的一次性占用记录
type ScanLedger interface {
	// Claim 占用 jti 并返回占用者；已被他人占用时返回原占用者
	Claim(ctx context.Context, jti, owner string, ttl time.Duration) (string, error)
}

type redisScanLedger struct {
	rdb *redis.Client
}

// NewRedisScanLedger 基于 SETNX 的占用记录
func NewRedisScanLedger(rdb *redis.Client) ScanLedger {
	return &redisScanLedger{rdb: rdb}
}

func (l *redisScanLedger) Claim(ctx context.Context, jti, owner string, ttl time.Duration) (string, error) {
	return l.rdb.ClaimScanToken(ctx, jti, owner, ttl)
}

type memoryClaim struct {
	owner   string
	expires time.Time
}

type memoryScanLedger struct {
	mu     sync.Mutex
	claims map[string]memoryClaim
	now    func() time.Time
}

// NewMemoryScanLedger 单实例使用
func NewMemoryScanLedger() ScanLedger {
	return &memoryScanLedger{claims: make(map[string]memoryClaim), now: time.Now}
}

func (l *memoryScanLedger) Claim(_ context.Context, jti, owner string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, c := range l.claims {
		if now.After(c.expires) {
			delete(l.claims, k)
		}
	}
	if c, ok := l.claims[jti]; ok {
		return c.owner, nil
	}
	l.claims[jti] = memoryClaim{owner: owner, expires: now.Add(ttl)}
	return owner, nil
}

func scanOwner(applicationID uint64) string {
	return strconv.FormatUint(applicationID, 10)
}
