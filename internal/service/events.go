package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"share-worker/backend/pkg/redis"
)

// 事件名称
const (
	EventApplicationMatched   = "application.matched"
	EventApplicationCancelled = "application.cancelled"
	EventApplicationRejected  = "application.rejected"
	EventAttendanceCompleted  = "attendance.completed"
	EventModificationApproved = "modification.approved"
	EventModificationRejected = "modification.rejected"
)

// EventChannel Redis 发布频道
const EventChannel = "shift-events"

// Event 提交后对外发布的领域事件
type Event struct {
	Name       string                 `json:"name"`
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload"`
}

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// ── Redis Publisher ──

type redisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher 通过 Redis Pub/Sub 发布事件
func NewRedisPublisher(rdb *redis.Client) Publisher {
	return &redisPublisher{rdb: rdb}
}

func (p *redisPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, EventChannel, data)
}

// ── Log Publisher ──

type logPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher 未配置 Redis 时仅记录日志
func NewLogPublisher(logger *zap.Logger) Publisher {
	return &logPublisher{logger: logger}
}

func (p *logPublisher) Publish(_ context.Context, event Event) error {
	p.logger.Info("领域事件", zap.String("event", event.Name), zap.Any("payload", event.Payload))
	return nil
}

// ── Dispatcher ──

// EventDispatcher 在事务提交后异步发布事件，失败只记录日志
type EventDispatcher struct {
	publisher Publisher
	logger    *zap.Logger
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewEventDispatcher 创建事件分发器
func NewEventDispatcher(publisher Publisher, logger *zap.Logger) *EventDispatcher {
	return &EventDispatcher{publisher: publisher, logger: logger, timeout: 5 * time.Second}
}

// Dispatch 不阻塞调用方；必须在事务提交之后调用
func (d *EventDispatcher) Dispatch(name string, payload map[string]interface{}) {
	if d == nil || d.publisher == nil {
		return
	}
	event := Event{Name: name, OccurredAt: time.Now().UTC(), Payload: payload}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("事件发布 panic", zap.String("event", name), zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.publisher.Publish(ctx, event); err != nil {
			d.logger.Warn("事件发布失败", zap.String("event", name), zap.Error(err))
		}
	}()
}

// Wait 等待进行中的发布完成（优雅关闭）
func (d *EventDispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
