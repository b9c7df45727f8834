package repository

import (
	"context"

	"gorm.io/gorm"

	"share-worker/backend/internal/model"
)

// JobRepository 招聘信息数据访问接口
type JobRepository interface {
	Create(ctx context.Context, job *model.Job) error
	GetByID(ctx context.Context, id uint64) (*model.Job, error)
}

type jobRepo struct {
	db *gorm.DB
}

func NewJobRepo(db *gorm.DB) JobRepository {
	return &jobRepo{db: db}
}

// Create 只写入 Job 本身，槽位由 WorkSlotRepository 单独批量写入
func (r *jobRepo) Create(ctx context.Context, job *model.Job) error {
	return r.db.WithContext(ctx).Omit("Slots", "Facility").Create(job).Error
}

func (r *jobRepo) GetByID(ctx context.Context, id uint64) (*model.Job, error) {
	var job model.Job
	err := r.db.WithContext(ctx).
		Preload("Facility").
		Preload("Slots", func(db *gorm.DB) *gorm.DB {
			return db.Order("starts_at ASC")
		}).
		First(&job, id).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}
