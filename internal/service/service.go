package service

import (
	"go.uber.org/zap"

	"share-worker/backend/config"
	"share-worker/backend/internal/repository"
	"share-worker/backend/pkg/jwt"
	"share-worker/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Slot         SlotService
	Application  ApplicationService
	Attendance   AttendanceService
	Modification ModificationService

	// Events 关闭时需等待进行中的事件发布
	Events *EventDispatcher
}

// NewService 创建 Service 聚合
// rdb 为 nil 时失败计数与扫码记录退化为进程内存储，事件只写日志
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	var (
		attempts  AttemptStore
		ledger    ScanLedger
		publisher Publisher
	)
	if rdb != nil {
		attempts = NewRedisAttemptStore(rdb)
		ledger = NewRedisScanLedger(rdb)
		publisher = NewRedisPublisher(rdb)
	} else {
		attempts = NewMemoryAttemptStore()
		ledger = NewMemoryScanLedger()
		publisher = NewLogPublisher(logger)
	}

	loc := cfg.App.Location()
	events := NewEventDispatcher(publisher, logger)
	slots := NewSlotStore(cfg.Feature.RejectApplyWhenFull, logger)
	codes := NewEmergencyCodeVerifier(
		attempts,
		cfg.Attendance.EmergencyCodeMaxAttempts,
		cfg.Attendance.EmergencySessionTTL,
		logger,
	)

	return &Service{
		Slot:         NewSlotService(repo, jwtMgr, loc, logger),
		Application:  NewApplicationService(repo, slots, events, logger),
		Attendance:   NewAttendanceService(repo, jwtMgr, codes, ledger, events, cfg.Attendance.CheckInOpenBefore, logger),
		Modification: NewModificationService(repo, events, loc, logger),
		Events:       events,
	}
}
