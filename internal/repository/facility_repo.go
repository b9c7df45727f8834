package repository

import (
	"context"

	"gorm.io/gorm"

	"share-worker/backend/internal/model"
)

// FacilityRepository 设施数据访问接口
type FacilityRepository interface {
	Create(ctx context.Context, facility *model.Facility) error
	GetByID(ctx context.Context, id uint64) (*model.Facility, error)
}

type facilityRepo struct {
	db *gorm.DB
}

func NewFacilityRepo(db *gorm.DB) FacilityRepository {
	return &facilityRepo{db: db}
}

func (r *facilityRepo) Create(ctx context.Context, facility *model.Facility) error {
	return r.db.WithContext(ctx).Create(facility).Error
}

func (r *facilityRepo) GetByID(ctx context.Context, id uint64) (*model.Facility, error) {
	var facility model.Facility
	if err := r.db.WithContext(ctx).First(&facility, id).Error; err != nil {
		return nil, err
	}
	return &facility, nil
}
