package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	pkgerrors "share-worker/backend/pkg/errors"
	"share-worker/backend/pkg/redis"
)

// ── 紧急码生成与哈希 ──

// GenerateEmergencyCode 生成 4 位数字紧急码及其 bcrypt 哈希
func GenerateEmergencyCode() (code, hash string, err error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", "", err
	}
	code = fmt.Sprintf("%04d", n.Int64())
	h, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return code, string(h), nil
}

// EmergencySession 失败计数的会话键：报名 + 打卡目的
func EmergencySession(applicationID uint64, purpose string) string {
	return strconv.FormatUint(applicationID, 10) + ":" + purpose
}

// ── 失败计数存储 ──

// AttemptStore 紧急码连续失败计数
type AttemptStore interface {
	State(ctx context.Context, session string) (failures int, locked bool, err error)
	// RecordFailure 计数加一，达到阈值时锁定
	RecordFailure(ctx context.Context, session string, threshold int, ttl time.Duration) (failures int, locked bool, err error)
	Reset(ctx context.Context, session string) error
	ClearLock(ctx context.Context, session string) error
}

type redisAttemptStore struct {
	rdb *redis.Client
}

// NewRedisAttemptStore 多实例部署时共享计数
func NewRedisAttemptStore(rdb *redis.Client) AttemptStore {
	return &redisAttemptStore{rdb: rdb}
}

func (s *redisAttemptStore) State(ctx context.Context, session string) (int, bool, error) {
	return s.rdb.AttemptState(ctx, session)
}

func (s *redisAttemptStore) RecordFailure(ctx context.Context, session string, threshold int, ttl time.Duration) (int, bool, error) {
	return s.rdb.RecordAttemptFailure(ctx, session, threshold, ttl)
}

func (s *redisAttemptStore) Reset(ctx context.Context, session string) error {
	return s.rdb.ResetAttempts(ctx, session)
}

func (s *redisAttemptStore) ClearLock(ctx context.Context, session string) error {
	return s.rdb.ClearAttemptLock(ctx, session)
}

type memoryAttempt struct {
	failures int
	locked   bool
	expires  time.Time
}

type memoryAttemptStore struct {
	mu       sync.Mutex
	sessions map[string]*memoryAttempt
	now      func() time.Time
}

// NewMemoryAttemptStore 单实例或 Redis 不可用时使用
func NewMemoryAttemptStore() AttemptStore {
	return &memoryAttemptStore{sessions: make(map[string]*memoryAttempt), now: time.Now}
}

// get 返回会话状态；过期且未锁定的计数视为 0
func (s *memoryAttemptStore) get(session string) *memoryAttempt {
	a, ok := s.sessions[session]
	if !ok {
		return nil
	}
	if !a.locked && !a.expires.IsZero() && s.now().After(a.expires) {
		delete(s.sessions, session)
		return nil
	}
	return a
}

func (s *memoryAttemptStore) State(_ context.Context, session string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.get(session); a != nil {
		return a.failures, a.locked, nil
	}
	return 0, false, nil
}

func (s *memoryAttemptStore) RecordFailure(_ context.Context, session string, threshold int, ttl time.Duration) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.get(session)
	if a == nil {
		a = &memoryAttempt{}
		s.sessions[session] = a
	}
	a.failures++
	if ttl > 0 {
		a.expires = s.now().Add(ttl)
	}
	if a.failures >= threshold {
		a.locked = true
	}
	return a.failures, a.locked, nil
}

func (s *memoryAttemptStore) Reset(_ context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.get(session); a != nil && !a.locked {
		delete(s.sessions, session)
	}
	return nil
}

func (s *memoryAttemptStore) ClearLock(_ context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, session)
	return nil
}

// ── 校验器 ──

// EmergencyCodeVerifier 校验紧急码并维护连续失败计数
type EmergencyCodeVerifier struct {
	store      AttemptStore
	threshold  int
	sessionTTL time.Duration
	logger     *zap.Logger

	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// NewEmergencyCodeVerifier 创建校验器，threshold 为锁定前允许的连续失败次数
func NewEmergencyCodeVerifier(store AttemptStore, threshold int, sessionTTL time.Duration, logger *zap.Logger) *EmergencyCodeVerifier {
	if threshold <= 0 {
		threshold = 5
	}
	return &EmergencyCodeVerifier{
		store:      store,
		threshold:  threshold,
		sessionTTL: sessionTTL,
		logger:     logger,
		locks:      make(map[string]*keyedLock),
	}
}

func (v *EmergencyCodeVerifier) lock(session string) func() {
	v.mu.Lock()
	l, ok := v.locks[session]
	if !ok {
		l = &keyedLock{}
		v.locks[session] = l
	}
	l.refs++
	v.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		v.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(v.locks, session)
		}
		v.mu.Unlock()
	}
}

// Verify 锁定的会话一律返回 ErrLockedOut；错误码计数加一并返回 ErrProofInvalid，
// 达到阈值的那次失败同时锁定会话，之后的尝试返回 ErrLockedOut；正确码清零计数
func (v *EmergencyCodeVerifier) Verify(ctx context.Context, session, hash, code string) error {
	unlock := v.lock(session)
	defer unlock()

	_, locked, err := v.store.State(ctx, session)
	if err != nil {
		return fmt.Errorf("读取紧急码失败计数: %w", err)
	}
	if locked {
		return pkgerrors.ErrLockedOut
	}

	if len(code) == 4 && bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil {
		if err := v.store.Reset(ctx, session); err != nil {
			v.logger.Warn("清零紧急码失败计数失败", zap.String("session", session), zap.Error(err))
		}
		return nil
	}

	failures, locked, err := v.store.RecordFailure(ctx, session, v.threshold, v.sessionTTL)
	if err != nil {
		return fmt.Errorf("记录紧急码失败: %w", err)
	}
	remaining := v.threshold - failures
	if locked || remaining < 0 {
		v.logger.Warn("紧急码会话已锁定", zap.String("session", session), zap.Int("failures", failures))
		remaining = 0
	}
	return pkgerrors.ErrProofInvalid.WithMessage(
		fmt.Sprintf("紧急码错误，还可尝试 %d 次", remaining))
}

// ClearLockout 设施人员解除锁定
func (v *EmergencyCodeVerifier) ClearLockout(ctx context.Context, session string) error {
	unlock := v.lock(session)
	defer unlock()
	return v.store.ClearLock(ctx, session)
}
