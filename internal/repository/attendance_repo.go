package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"share-worker/backend/internal/model"
)

// AttendanceRepository 出勤记录数据访问接口
type AttendanceRepository interface {
	Create(ctx context.Context, attendance *model.Attendance) error
	GetByID(ctx context.Context, id uint64) (*model.Attendance, error)
	GetByApplication(ctx context.Context, applicationID uint64) (*model.Attendance, error)
	// GetForUpdate 读取并对行加 FOR UPDATE 锁，必须在事务内调用
	GetForUpdate(ctx context.Context, id uint64) (*model.Attendance, error)
	// UpdateCheckOut 写入签退信息与结算值
	UpdateCheckOut(ctx context.Context, attendance *model.Attendance) error
	// UpdateEffective 写入审批后的结算值，原始打卡时间不变
	UpdateEffective(ctx context.Context, attendance *model.Attendance) error
}

type attendanceRepo struct {
	db *gorm.DB
}

func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) Create(ctx context.Context, attendance *model.Attendance) error {
	return r.db.WithContext(ctx).Create(attendance).Error
}

func (r *attendanceRepo) GetByID(ctx context.Context, id uint64) (*model.Attendance, error) {
	var attendance model.Attendance
	if err := r.db.WithContext(ctx).First(&attendance, id).Error; err != nil {
		return nil, err
	}
	return &attendance, nil
}

func (r *attendanceRepo) GetByApplication(ctx context.Context, applicationID uint64) (*model.Attendance, error) {
	var attendance model.Attendance
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		First(&attendance).Error
	if err != nil {
		return nil, err
	}
	return &attendance, nil
}

func (r *attendanceRepo) GetForUpdate(ctx context.Context, id uint64) (*model.Attendance, error) {
	var attendance model.Attendance
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&attendance, id).Error
	if err != nil {
		return nil, err
	}
	return &attendance, nil
}

func (r *attendanceRepo) UpdateCheckOut(ctx context.Context, attendance *model.Attendance) error {
	return r.db.WithContext(ctx).
		Model(&model.Attendance{}).
		Where("id = ?", attendance.ID).
		Updates(map[string]interface{}{
			"check_out_at":            attendance.CheckOutAt,
			"check_out_method":        attendance.CheckOutMethod,
			"check_out_proof_ref":     attendance.CheckOutProofRef,
			"effective_start_at":      attendance.EffectiveStartAt,
			"effective_end_at":        attendance.EffectiveEndAt,
			"effective_break_minutes": attendance.EffectiveBreakMinutes,
			"wage_amount":             attendance.WageAmount,
		}).Error
}

func (r *attendanceRepo) UpdateEffective(ctx context.Context, attendance *model.Attendance) error {
	return r.db.WithContext(ctx).
		Model(&model.Attendance{}).
		Where("id = ?", attendance.ID).
		Updates(map[string]interface{}{
			"effective_start_at":      attendance.EffectiveStartAt,
			"effective_end_at":        attendance.EffectiveEndAt,
			"effective_break_minutes": attendance.EffectiveBreakMinutes,
			"wage_amount":             attendance.WageAmount,
			"modification_count":      attendance.ModificationCount,
		}).Error
}
