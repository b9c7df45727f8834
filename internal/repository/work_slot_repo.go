package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"share-worker/backend/internal/model"
	pkgerrors "share-worker/backend/pkg/errors"
)

// WorkSlotFilter 槽位查询条件，零值字段不参与过滤
type WorkSlotFilter struct {
	FacilityID uint64
	JobID      uint64
	From       *time.Time // starts_at >= From
	To         *time.Time // starts_at < To
	VisibleAt  *time.Time // 仅返回该时刻公开且未退役的槽位
}

// WorkSlotRepository 工作槽位数据访问接口
type WorkSlotRepository interface {
	BatchCreate(ctx context.Context, slots []model.WorkSlot) error
	GetByID(ctx context.Context, id uint64) (*model.WorkSlot, error)
	// GetForUpdate 读取并对行加 FOR UPDATE 锁，必须在事务内调用
	GetForUpdate(ctx context.Context, id uint64) (*model.WorkSlot, error)
	List(ctx context.Context, filter WorkSlotFilter, page Page) ([]model.WorkSlot, int64, error)
	// AdjustCounters 条件更新计数；结果会破坏计数约束时不写入并返回 ErrCounterGuard
	AdjustCounters(ctx context.Context, id uint64, appliedDelta, matchedDelta int) error
	UpdateEmergencyCode(ctx context.Context, id uint64, hash string) error
	Retire(ctx context.Context, id uint64, at time.Time) error
	RetireEndedBefore(ctx context.Context, before time.Time) (int64, error)
}

type workSlotRepo struct {
	db *gorm.DB
}

func NewWorkSlotRepo(db *gorm.DB) WorkSlotRepository {
	return &workSlotRepo{db: db}
}

func (r *workSlotRepo) BatchCreate(ctx context.Context, slots []model.WorkSlot) error {
	if len(slots) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Job").Create(&slots).Error
}

func (r *workSlotRepo) GetByID(ctx context.Context, id uint64) (*model.WorkSlot, error) {
	var slot model.WorkSlot
	if err := r.db.WithContext(ctx).Preload("Job").First(&slot, id).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *workSlotRepo) GetForUpdate(ctx context.Context, id uint64) (*model.WorkSlot, error) {
	var slot model.WorkSlot
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&slot, id).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *workSlotRepo) List(ctx context.Context, filter WorkSlotFilter, page Page) ([]model.WorkSlot, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.WorkSlot{})
	if filter.FacilityID != 0 {
		query = query.Where("facility_id = ?", filter.FacilityID)
	}
	if filter.JobID != 0 {
		query = query.Where("job_id = ?", filter.JobID)
	}
	if filter.From != nil {
		query = query.Where("starts_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("starts_at < ?", *filter.To)
	}
	if filter.VisibleAt != nil {
		query = query.
			Where("retired_at IS NULL").
			Where("visible_from <= ?", *filter.VisibleAt).
			Where("visible_until IS NULL OR visible_until >= ?", *filter.VisibleAt)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var slots []model.WorkSlot
	err := page.apply(query).
		Order("starts_at ASC, id ASC").
		Find(&slots).Error
	return slots, total, err
}

func (r *workSlotRepo) AdjustCounters(ctx context.Context, id uint64, appliedDelta, matchedDelta int) error {
	result := r.db.WithContext(ctx).
		Model(&model.WorkSlot{}).
		Where("id = ?", id).
		Where("applied_count + ? >= 0", appliedDelta).
		Where("matched_count + ? >= 0", matchedDelta).
		Where("matched_count + ? <= applied_count + ?", matchedDelta, appliedDelta).
		Where("matched_count + ? <= recruitment_count", matchedDelta).
		Updates(map[string]interface{}{
			"applied_count": gorm.Expr("applied_count + ?", appliedDelta),
			"matched_count": gorm.Expr("matched_count + ?", matchedDelta),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrCounterGuard
	}
	return nil
}

func (r *workSlotRepo) UpdateEmergencyCode(ctx context.Context, id uint64, hash string) error {
	result := r.db.WithContext(ctx).
		Model(&model.WorkSlot{}).
		Where("id = ?", id).
		Update("emergency_code_hash", hash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *workSlotRepo) Retire(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.WorkSlot{}).
		Where("id = ? AND retired_at IS NULL", id).
		Update("retired_at", at).Error
}

func (r *workSlotRepo) RetireEndedBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.WorkSlot{}).
		Where("retired_at IS NULL AND ends_at < ?", before).
		Update("retired_at", before)
	return result.RowsAffected, result.Error
}
