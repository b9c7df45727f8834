package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"share-worker/backend/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient(&config.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	if err != nil {
		t.Fatalf("连接测试 Redis 失败: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, mr
}

// ── 紧急码失败计数 ──

func TestRecordAttemptFailure_LocksAtThreshold(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		failures, locked, err := c.RecordAttemptFailure(ctx, "1:check_in", 5, time.Minute)
		if err != nil {
			t.Fatalf("记录失败: %v", err)
		}
		if failures != i || locked {
			t.Fatalf("第 %d 次期望 failures=%d 未锁定，实际 failures=%d locked=%v", i, i, failures, locked)
		}
	}
	if _, locked, _ := c.RecordAttemptFailure(ctx, "1:check_in", 5, time.Minute); !locked {
		t.Fatal("第 5 次失败应锁定")
	}
	if _, locked, err := c.AttemptState(ctx, "1:check_in"); err != nil || !locked {
		t.Errorf("期望已锁定，实际 locked=%v err=%v", locked, err)
	}
}

func TestRecordAttemptFailure_ZeroTTLKeepsCounter(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	var (
		failures int
		locked   bool
	)
	for i := 0; i < 8; i++ {
		var err error
		failures, locked, err = c.RecordAttemptFailure(ctx, "1:check_in", 5, 0)
		if err != nil {
			t.Fatalf("记录失败: %v", err)
		}
	}
	if failures != 8 || !locked {
		t.Errorf("ttl=0 时计数不应被删除，实际 failures=%d locked=%v", failures, locked)
	}
	if ttl := mr.TTL(attemptPrefix + "1:check_in"); ttl != 0 {
		t.Errorf("ttl=0 时计数不应设置过期，实际 %v", ttl)
	}
}

func TestRecordAttemptFailure_CounterExpiresLockPersists(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	_, _, _ = c.RecordAttemptFailure(ctx, "a", 5, time.Minute)
	mr.FastForward(2 * time.Minute)
	if failures, locked, _ := c.AttemptState(ctx, "a"); failures != 0 || locked {
		t.Errorf("过期后计数应清零，实际 failures=%d locked=%v", failures, locked)
	}

	for i := 0; i < 5; i++ {
		_, _, _ = c.RecordAttemptFailure(ctx, "b", 5, time.Minute)
	}
	mr.FastForward(time.Hour)
	if _, locked, _ := c.AttemptState(ctx, "b"); !locked {
		t.Error("锁定标记不应过期")
	}
}

func TestResetAndClearAttempts(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, _, _ = c.RecordAttemptFailure(ctx, "s", 5, time.Minute)
	if err := c.ResetAttempts(ctx, "s"); err != nil {
		t.Fatalf("清零失败: %v", err)
	}
	if failures, _, _ := c.AttemptState(ctx, "s"); failures != 0 {
		t.Errorf("清零后期望 0，实际=%d", failures)
	}

	for i := 0; i < 5; i++ {
		_, _, _ = c.RecordAttemptFailure(ctx, "s", 5, time.Minute)
	}
	if err := c.ClearAttemptLock(ctx, "s"); err != nil {
		t.Fatalf("解除锁定失败: %v", err)
	}
	if failures, locked, _ := c.AttemptState(ctx, "s"); failures != 0 || locked {
		t.Errorf("解除后期望未锁定且计数为 0，实际 failures=%d locked=%v", failures, locked)
	}
}

// ── 扫码凭证 ──

func TestClaimScanToken(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	owner, err := c.ClaimScanToken(ctx, "jti-1", "10", time.Minute)
	if err != nil || owner != "10" {
		t.Fatalf("首次占用应返回自身，实际 owner=%q err=%v", owner, err)
	}
	if owner, _ := c.ClaimScanToken(ctx, "jti-1", "11", time.Minute); owner != "10" {
		t.Errorf("已占用应返回原占用者，实际 %q", owner)
	}
	if owner, _ := c.ClaimScanToken(ctx, "jti-1", "10", time.Minute); owner != "10" {
		t.Errorf("同一占用者重放应返回自身，实际 %q", owner)
	}

	mr.FastForward(2 * time.Minute)
	if owner, _ := c.ClaimScanToken(ctx, "jti-1", "11", time.Minute); owner != "11" {
		t.Errorf("过期后可重新占用，实际 %q", owner)
	}
}

// ── 限流与黑名单 ──

func TestCheckRateLimit(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		allowed, err := c.CheckRateLimit(ctx, "rate_limit:u1:/check-in", 2, time.Minute)
		if err != nil {
			t.Fatalf("限流检查失败: %v", err)
		}
		if want := i <= 2; allowed != want {
			t.Errorf("第 %d 次期望 allowed=%v，实际 %v", i, want, allowed)
		}
	}
	if allowed, _ := c.CheckRateLimit(ctx, "rate_limit:u2:/check-in", 2, time.Minute); !allowed {
		t.Error("不同用户应独立计数")
	}
}

func TestIsBlacklisted(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	if ok, err := c.IsBlacklisted(ctx, "jti-x"); err != nil || ok {
		t.Fatalf("期望未拉黑，实际 ok=%v err=%v", ok, err)
	}
	mr.Set(blacklistPrefix+"jti-x", "1")
	if ok, _ := c.IsBlacklisted(ctx, "jti-x"); !ok {
		t.Error("期望已拉黑")
	}
}
