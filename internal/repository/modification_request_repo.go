package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"share-worker/backend/internal/model"
	pkgerrors "share-worker/backend/pkg/errors"
)

// ModificationFilter 修改申请查询条件
type ModificationFilter struct {
	FacilityID uint64
	WorkerID   uint64
	Statuses   []model.ModificationStatus
}

// ModificationRequestRepository 勤务修改申请数据访问接口
type ModificationRequestRepository interface {
	Create(ctx context.Context, req *model.ModificationRequest) error
	// GetByID 附带审批历史（按修订号升序）
	GetByID(ctx context.Context, id uint64) (*model.ModificationRequest, error)
	GetForUpdate(ctx context.Context, id uint64) (*model.ModificationRequest, error)
	FindOpen(ctx context.Context, attendanceID uint64) (*model.ModificationRequest, error)
	FindLatest(ctx context.Context, attendanceID uint64) (*model.ModificationRequest, error)
	List(ctx context.Context, filter ModificationFilter, page Page) ([]model.ModificationRequest, int64, error)
	// Update 以 from 为条件更新，状态已变化时返回 ErrOptimisticLock
	Update(ctx context.Context, req *model.ModificationRequest, from model.ModificationStatus) error
	CreateRevision(ctx context.Context, rev *model.ModificationRequestRevision) error
}

type modificationRequestRepo struct {
	db *gorm.DB
}

func NewModificationRequestRepo(db *gorm.DB) ModificationRequestRepository {
	return &modificationRequestRepo{db: db}
}

func (r *modificationRequestRepo) Create(ctx context.Context, req *model.ModificationRequest) error {
	return r.db.WithContext(ctx).Omit("Revisions").Create(req).Error
}

func (r *modificationRequestRepo) GetByID(ctx context.Context, id uint64) (*model.ModificationRequest, error) {
	var req model.ModificationRequest
	err := r.db.WithContext(ctx).
		Preload("Revisions", func(db *gorm.DB) *gorm.DB {
			return db.Order("revision ASC, id ASC")
		}).
		First(&req, id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *modificationRequestRepo) GetForUpdate(ctx context.Context, id uint64) (*model.ModificationRequest, error) {
	var req model.ModificationRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *modificationRequestRepo) FindOpen(ctx context.Context, attendanceID uint64) (*model.ModificationRequest, error) {
	var req model.ModificationRequest
	err := r.db.WithContext(ctx).
		Where("attendance_id = ? AND status IN ?", attendanceID, []model.ModificationStatus{
			model.ModificationPending,
			model.ModificationResubmitted,
		}).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *modificationRequestRepo) FindLatest(ctx context.Context, attendanceID uint64) (*model.ModificationRequest, error) {
	var req model.ModificationRequest
	err := r.db.WithContext(ctx).
		Where("attendance_id = ?", attendanceID).
		Order("id DESC").
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *modificationRequestRepo) List(ctx context.Context, filter ModificationFilter, page Page) ([]model.ModificationRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.ModificationRequest{})
	if filter.FacilityID != 0 {
		query = query.Where("facility_id = ?", filter.FacilityID)
	}
	if filter.WorkerID != 0 {
		query = query.Where("worker_id = ?", filter.WorkerID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reqs []model.ModificationRequest
	err := page.apply(query).
		Order("created_at DESC, id DESC").
		Find(&reqs).Error
	return reqs, total, err
}

func (r *modificationRequestRepo) Update(ctx context.Context, req *model.ModificationRequest, from model.ModificationStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.ModificationRequest{}).
		Where("id = ? AND status = ?", req.ID, from).
		Updates(map[string]interface{}{
			"requested_start_at":      req.RequestedStartAt,
			"requested_end_at":        req.RequestedEndAt,
			"requested_break_minutes": req.RequestedBreakMinutes,
			"worker_comment":          req.WorkerComment,
			"original_amount":         req.OriginalAmount,
			"requested_amount":        req.RequestedAmount,
			"status":                  req.Status,
			"reviewer_comment":        req.ReviewerComment,
			"reviewed_by":             req.ReviewedBy,
			"reviewed_at":             req.ReviewedAt,
			"revision":                req.Revision,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *modificationRequestRepo) CreateRevision(ctx context.Context, rev *model.ModificationRequestRevision) error {
	return r.db.WithContext(ctx).Create(rev).Error
}
