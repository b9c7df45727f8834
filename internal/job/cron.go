package job

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"share-worker/backend/config"
)

// jobTimeout 单次任务的最长执行时间
const jobTimeout = 5 * time.Minute

// StaleExpirer 驳回槽位已开始仍未审批的报名
type StaleExpirer interface {
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}

// SlotRetirer 已结束的槽位停止招募
type SlotRetirer interface {
	RetireEnded(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler 定时任务调度器
type Scheduler struct {
	cron    *cron.Cron
	expirer StaleExpirer
	retirer SlotRetirer
	logger  *zap.Logger
	now     func() time.Time
}

// NewScheduler 按配置注册定时任务，调用 Start 后开始运行
func NewScheduler(cfg *config.CronConfig, loc *time.Location, expirer StaleExpirer, retirer SlotRetirer, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		expirer: expirer,
		retirer: retirer,
		logger:  logger,
		now:     time.Now,
	}

	if _, err := s.cron.AddFunc(cfg.ExpireSpec, s.wrap("expire_stale", s.ExpireStale)); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(cfg.RetireSpec, s.wrap("retire_ended", s.RetireEnded)); err != nil {
		return nil, err
	}
	return s, nil
}

// Start 启动调度
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("定时任务已启动", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop 停止调度并等待运行中的任务结束
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("等待定时任务结束超时")
	}
}

// ExpireStale 执行一次过期报名清理
func (s *Scheduler) ExpireStale(ctx context.Context) error {
	n, err := s.expirer.ExpireStale(ctx, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("已驳回过期报名", zap.Int("count", n))
	}
	return nil
}

// RetireEnded 执行一次已结束槽位停止招募
func (s *Scheduler) RetireEnded(ctx context.Context) error {
	n, err := s.retirer.RetireEnded(ctx, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("已停止招募结束槽位", zap.Int64("count", n))
	}
	return nil
}

func (s *Scheduler) wrap(name string, fn func(ctx context.Context) error) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("定时任务异常", zap.String("job", name), zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			s.logger.Error("定时任务失败", zap.String("job", name), zap.Error(err))
			return
		}
		s.logger.Debug("定时任务完成", zap.String("job", name), zap.Duration("latency", time.Since(start)))
	}
}
