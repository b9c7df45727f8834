package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"share-worker/backend/internal/model"
	"share-worker/backend/internal/repository"
	pkgerrors "share-worker/backend/pkg/errors"
)

// SlotStore 槽位容量计数的唯一写入方，所有方法都在调用方的事务内执行
type SlotStore struct {
	rejectApplyWhenFull bool
	logger              *zap.Logger
}

// NewSlotStore 创建 SlotStore；rejectApplyWhenFull 为 true 时满员槽位拒绝报名
func NewSlotStore(rejectApplyWhenFull bool, logger *zap.Logger) *SlotStore {
	return &SlotStore{rejectApplyWhenFull: rejectApplyWhenFull, logger: logger}
}

// ReserveApplication 报名占用：校验槽位可报名并使 applied_count 加一
func (s *SlotStore) ReserveApplication(ctx context.Context, tx *repository.Repository, slotID uint64, now time.Time) (*model.WorkSlot, error) {
	slot, err := s.lockSlot(ctx, tx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.IsRetired() {
		return nil, pkgerrors.ErrSlotRetired
	}
	if !slot.VisibleAt(now) {
		return nil, pkgerrors.ErrSlotNotVisible
	}
	if now.After(slot.Deadline) {
		return nil, pkgerrors.ErrDeadlinePassed
	}
	if s.rejectApplyWhenFull && slot.IsFull() {
		return nil, pkgerrors.ErrSlotFull
	}

	if err := tx.WorkSlot.AdjustCounters(ctx, slot.ID, 1, 0); err != nil {
		return nil, s.counterError(slot.ID, err)
	}
	slot.AppliedCount++
	return slot, nil
}

// ReserveMatch 匹配占用：行锁下检查容量并使 matched_count 加一，满员返回 ErrSlotFull
func (s *SlotStore) ReserveMatch(ctx context.Context, tx *repository.Repository, slotID uint64) (*model.WorkSlot, error) {
	slot, err := s.lockSlot(ctx, tx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.IsFull() {
		return nil, pkgerrors.ErrSlotFull
	}

	if err := tx.WorkSlot.AdjustCounters(ctx, slot.ID, 0, 1); err != nil {
		if errors.Is(err, pkgerrors.ErrCounterGuard) {
			return nil, pkgerrors.ErrSlotFull
		}
		return nil, err
	}
	slot.MatchedCount++
	return slot, nil
}

// Release 报名离开存活状态时归还计数；wasMatched 表示该报名占用了匹配名额
func (s *SlotStore) Release(ctx context.Context, tx *repository.Repository, slotID uint64, wasMatched bool) error {
	matchedDelta := 0
	if wasMatched {
		matchedDelta = -1
	}
	if err := tx.WorkSlot.AdjustCounters(ctx, slotID, -1, matchedDelta); err != nil {
		return s.counterError(slotID, err)
	}
	return nil
}

func (s *SlotStore) lockSlot(ctx context.Context, tx *repository.Repository, slotID uint64) (*model.WorkSlot, error) {
	slot, err := tx.WorkSlot.GetForUpdate(ctx, slotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrSlotNotFound
		}
		s.logger.Error("锁定槽位失败", zap.Uint64("slot_id", slotID), zap.Error(err))
		return nil, err
	}
	return slot, nil
}

// counterError 计数约束被拒绝说明计数与报名集合已不一致，按内部错误处理
func (s *SlotStore) counterError(slotID uint64, err error) error {
	if errors.Is(err, pkgerrors.ErrCounterGuard) {
		s.logger.Error("槽位计数不一致", zap.Uint64("slot_id", slotID))
		return fmt.Errorf("槽位 %d 计数不一致: %w", slotID, err)
	}
	s.logger.Error("更新槽位计数失败", zap.Uint64("slot_id", slotID), zap.Error(err))
	return err
}
