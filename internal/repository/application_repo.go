package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"share-worker/backend/internal/model"
	pkgerrors "share-worker/backend/pkg/errors"
)

// ApplicationFilter 报名查询条件
type ApplicationFilter struct {
	WorkerID   uint64
	WorkSlotID uint64
	FacilityID uint64
	Statuses   []model.ApplicationStatus
}

// ApplicationRepository 报名数据访问接口
type ApplicationRepository interface {
	Create(ctx context.Context, app *model.Application) error
	GetByID(ctx context.Context, id uint64) (*model.Application, error)
	// GetForUpdate 读取并对行加 FOR UPDATE 锁，必须在事务内调用
	GetForUpdate(ctx context.Context, id uint64) (*model.Application, error)
	// FindLive 查找 (worker, slot) 上未取消的报名
	FindLive(ctx context.Context, workerID, slotID uint64) (*model.Application, error)
	List(ctx context.Context, filter ApplicationFilter, page Page) ([]model.Application, int64, error)
	// ListStaleApplied 槽位已开始但仍处于 APPLIED 的报名
	ListStaleApplied(ctx context.Context, now time.Time, limit int) ([]model.Application, error)
	// UpdateStatus 以 from 为条件更新状态及决策字段，状态已变化时返回 ErrOptimisticLock
	UpdateStatus(ctx context.Context, app *model.Application, from model.ApplicationStatus) error
	UpdateReview(ctx context.Context, app *model.Application) error
}

type applicationRepo struct {
	db *gorm.DB
}

func NewApplicationRepo(db *gorm.DB) ApplicationRepository {
	return &applicationRepo{db: db}
}

func (r *applicationRepo) Create(ctx context.Context, app *model.Application) error {
	return r.db.WithContext(ctx).Omit("WorkSlot").Create(app).Error
}

func (r *applicationRepo) GetByID(ctx context.Context, id uint64) (*model.Application, error) {
	var app model.Application
	if err := r.db.WithContext(ctx).Preload("WorkSlot").First(&app, id).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepo) GetForUpdate(ctx context.Context, id uint64) (*model.Application, error) {
	var app model.Application
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&app, id).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepo) FindLive(ctx context.Context, workerID, slotID uint64) (*model.Application, error) {
	var app model.Application
	err := r.db.WithContext(ctx).
		Where("worker_id = ? AND work_slot_id = ?", workerID, slotID).
		Where("status NOT IN ?", []model.ApplicationStatus{
			model.ApplicationCancelledByWorker,
			model.ApplicationCancelledByFacility,
		}).
		First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepo) List(ctx context.Context, filter ApplicationFilter, page Page) ([]model.Application, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Application{})
	if filter.WorkerID != 0 {
		query = query.Where("applications.worker_id = ?", filter.WorkerID)
	}
	if filter.WorkSlotID != 0 {
		query = query.Where("applications.work_slot_id = ?", filter.WorkSlotID)
	}
	if filter.FacilityID != 0 {
		query = query.Where("applications.work_slot_id IN (?)",
			r.db.Model(&model.WorkSlot{}).Select("id").Where("facility_id = ?", filter.FacilityID))
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("applications.status IN ?", filter.Statuses)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var apps []model.Application
	err := page.apply(query).
		Preload("WorkSlot").
		Order("applications.created_at DESC, applications.id DESC").
		Find(&apps).Error
	return apps, total, err
}

func (r *applicationRepo) ListStaleApplied(ctx context.Context, now time.Time, limit int) ([]model.Application, error) {
	var apps []model.Application
	query := r.db.WithContext(ctx).
		Joins("JOIN work_slots ON work_slots.id = applications.work_slot_id").
		Where("applications.status = ?", model.ApplicationApplied).
		Where("work_slots.starts_at <= ?", now).
		Order("applications.id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&apps).Error
	return apps, err
}

func (r *applicationRepo) UpdateStatus(ctx context.Context, app *model.Application, from model.ApplicationStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.Application{}).
		Where("id = ? AND status = ?", app.ID, from).
		Updates(map[string]interface{}{
			"status":        app.Status,
			"cancelled_by":  app.CancelledBy,
			"cancel_reason": app.CancelReason,
			"cancelled_at":  app.CancelledAt,
			"decided_by":    app.DecidedBy,
			"decided_at":    app.DecidedAt,
			"matched_at":    app.MatchedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *applicationRepo) UpdateReview(ctx context.Context, app *model.Application) error {
	return r.db.WithContext(ctx).
		Model(&model.Application{}).
		Where("id = ?", app.ID).
		Updates(map[string]interface{}{
			"status":             app.Status,
			"worker_reviewed":    app.WorkerReviewed,
			"facility_reviewed":  app.FacilityReviewed,
			"rating_by_worker":   app.RatingByWorker,
			"rating_by_facility": app.RatingByFacility,
			"worker_comment":     app.WorkerComment,
			"facility_comment":   app.FacilityComment,
		}).Error
}
