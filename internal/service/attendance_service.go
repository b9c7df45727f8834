package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"share-worker/backend/internal/dto"
	"share-worker/backend/internal/model"
	"share-worker/backend/internal/repository"
	"share-worker/backend/internal/wage"
	pkgerrors "share-worker/backend/pkg/errors"
	"share-worker/backend/pkg/jwt"
)

// AttendanceService 签到 / 签退业务接口
type AttendanceService interface {
	CheckIn(ctx context.Context, actor ActorContext, applicationID uint64, req *dto.CheckRequest) (*dto.CheckResult, error)
	CheckOut(ctx context.Context, actor ActorContext, applicationID uint64, req *dto.CheckRequest) (*dto.CheckResult, error)
	// ClearLockout 设施人员解除紧急码锁定
	ClearLockout(ctx context.Context, actor ActorContext, applicationID uint64, purpose string) error
	GetByID(ctx context.Context, actor ActorContext, id uint64) (*dto.AttendanceResponse, error)
}

type attendanceService struct {
	repo       *repository.Repository
	jwtMgr     *jwt.Manager
	codes      *EmergencyCodeVerifier
	ledger     ScanLedger
	events     *EventDispatcher
	openBefore time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewAttendanceService 创建 AttendanceService 实例；openBefore 为开始前多久开放签到
func NewAttendanceService(
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	codes *EmergencyCodeVerifier,
	ledger ScanLedger,
	events *EventDispatcher,
	openBefore time.Duration,
	logger *zap.Logger,
) AttendanceService {
	return &attendanceService{
		repo:       repo,
		jwtMgr:     jwtMgr,
		codes:      codes,
		ledger:     ledger,
		events:     events,
		openBefore: openBefore,
		logger:     logger,
		now:        time.Now,
	}
}

// ────────────────────── CheckIn ──────────────────────

func (s *attendanceService) CheckIn(ctx context.Context, actor ActorContext, applicationID uint64, req *dto.CheckRequest) (*dto.CheckResult, error) {
	if err := requireSelf(actor); err != nil {
		return nil, err
	}

	now := s.now()
	var (
		app     *model.Application
		att     *model.Attendance
		outcome string
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		app, err = s.lockOwnApplication(ctx, tx, actor, applicationID)
		if err != nil {
			return err
		}

		existing, err := tx.Attendance.GetByApplication(ctx, app.ID)
		if err == nil {
			att, outcome = existing, dto.OutcomeAlreadyCheckedIn
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if app.Status != model.ApplicationMatched {
			return pkgerrors.ErrNotScheduled
		}
		slot, err := tx.WorkSlot.GetByID(ctx, app.WorkSlotID)
		if err != nil {
			return err
		}
		if now.Before(slot.StartsAt.Add(-s.openBefore)) || !now.Before(slot.EndsAt) {
			return pkgerrors.ErrCheckInWindowClosed
		}

		method, ref, err := s.verifyProof(ctx, app, slot, model.PurposeCheckIn, req, now)
		if err != nil {
			return err
		}

		att = &model.Attendance{
			ApplicationID:         app.ID,
			WorkSlotID:            slot.ID,
			WorkerID:              app.WorkerID,
			FacilityID:            slot.FacilityID,
			ScheduledStartAt:      slot.StartsAt,
			ScheduledEndAt:        slot.EndsAt,
			ScheduledBreakMinutes: slot.BreakMinutes,
			HourlyRate:            slot.HourlyRate,
			TransportationFee:     slot.TransportationFee,
			CheckInAt:             now,
			CheckInMethod:         method,
			CheckInProofRef:       ref,
		}
		if err := tx.Attendance.Create(ctx, att); err != nil {
			return err
		}
		outcome = dto.OutcomeCheckedIn
		return transition(ctx, tx, app, model.ApplicationCheckedIn)
	})
	if err != nil {
		s.logFailure("签到失败", actor, applicationID, err)
		return nil, err
	}

	if outcome == dto.OutcomeCheckedIn {
		s.logger.Info("签到成功", append(actor.AuditFields(),
			zap.Uint64("application_id", app.ID),
			zap.Uint64("attendance_id", att.ID),
			zap.String("method", att.CheckInMethod))...)
	}
	return &dto.CheckResult{
		Outcome:           outcome,
		ApplicationStatus: string(app.Status),
		Attendance:        *toAttendanceResponse(att),
	}, nil
}

// ────────────────────── CheckOut ──────────────────────

func (s *attendanceService) CheckOut(ctx context.Context, actor ActorContext, applicationID uint64, req *dto.CheckRequest) (*dto.CheckResult, error) {
	if err := requireSelf(actor); err != nil {
		return nil, err
	}

	now := s.now()
	var (
		app     *model.Application
		att     *model.Attendance
		outcome string
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		app, err = s.lockOwnApplication(ctx, tx, actor, applicationID)
		if err != nil {
			return err
		}

		switch app.Status {
		case model.ApplicationCheckedOut, model.ApplicationCompleted, model.ApplicationCompletedRated:
			att, err = s.attendanceOf(ctx, tx, app.ID)
			outcome = dto.OutcomeAlreadyCheckedOut
			return err
		case model.ApplicationCheckedIn:
		default:
			return pkgerrors.ErrNotCheckedIn
		}

		att, err = s.attendanceOf(ctx, tx, app.ID)
		if err != nil {
			return err
		}
		slot, err := tx.WorkSlot.GetByID(ctx, app.WorkSlotID)
		if err != nil {
			return err
		}

		method, ref, err := s.verifyProof(ctx, app, slot, model.PurposeCheckOut, req, now)
		if err != nil {
			return err
		}

		start, end := effectiveWindow(att, now)
		att.CheckOutAt = &now
		att.CheckOutMethod = method
		att.CheckOutProofRef = ref
		att.EffectiveStartAt = &start
		att.EffectiveEndAt = &end
		att.EffectiveBreakMinutes = att.ScheduledBreakMinutes
		att.WageAmount = wage.ComputeSpan(start, end, att.EffectiveBreakMinutes, att.HourlyRate, att.TransportationFee)
		if err := tx.Attendance.UpdateCheckOut(ctx, att); err != nil {
			return err
		}

		if err := transition(ctx, tx, app, model.ApplicationCheckedOut); err != nil {
			return err
		}
		outcome = dto.OutcomeCheckedOut
		return transition(ctx, tx, app, model.ApplicationCompleted)
	})
	if err != nil {
		s.logFailure("签退失败", actor, applicationID, err)
		return nil, err
	}

	if outcome == dto.OutcomeCheckedOut {
		s.logger.Info("签退成功", append(actor.AuditFields(),
			zap.Uint64("application_id", app.ID),
			zap.Uint64("attendance_id", att.ID),
			zap.Int64("wage_amount", att.WageAmount))...)
		s.events.Dispatch(EventAttendanceCompleted, map[string]interface{}{
			"application_id": app.ID,
			"attendance_id":  att.ID,
			"worker_id":      att.WorkerID,
			"facility_id":    att.FacilityID,
			"wage_amount":    att.WageAmount,
		})
	}
	return &dto.CheckResult{
		Outcome:           outcome,
		ApplicationStatus: string(app.Status),
		Attendance:        *toAttendanceResponse(att),
	}, nil
}

// effectiveWindow 预定时段与实际打卡时间取交集，精确到分钟：
// 签到向上取整，签退向下取整
func effectiveWindow(att *model.Attendance, checkOutAt time.Time) (time.Time, time.Time) {
	start := att.CheckInAt.Truncate(time.Minute)
	if start.Before(att.CheckInAt) {
		start = start.Add(time.Minute)
	}
	if start.Before(att.ScheduledStartAt) {
		start = att.ScheduledStartAt
	}

	end := checkOutAt.Truncate(time.Minute)
	if end.After(att.ScheduledEndAt) {
		end = att.ScheduledEndAt
	}
	if end.Before(start) {
		end = start
	}
	return start, end
}

// ────────────────────── ClearLockout ──────────────────────

func (s *attendanceService) ClearLockout(ctx context.Context, actor ActorContext, applicationID uint64, purpose string) error {
	if err := requireFacility(actor); err != nil {
		return err
	}
	if purpose != model.PurposeCheckIn && purpose != model.PurposeCheckOut {
		return pkgerrors.ErrInvalidInput.WithMessage("purpose 只能是 check_in 或 check_out")
	}

	app, err := s.repo.Application.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.ErrApplicationNotFound
		}
		return err
	}
	if app.WorkSlot == nil || !actor.IsFacilityOf(app.WorkSlot.FacilityID) {
		return pkgerrors.ErrForbidden
	}

	if err := s.codes.ClearLockout(ctx, EmergencySession(app.ID, purpose)); err != nil {
		s.logger.Error("解除紧急码锁定失败", zap.Uint64("application_id", app.ID), zap.Error(err))
		return err
	}
	s.logger.Info("紧急码锁定已解除", append(actor.AuditFields(),
		zap.Uint64("application_id", app.ID),
		zap.String("purpose", purpose))...)
	return nil
}

// ────────────────────── GetByID ──────────────────────

func (s *attendanceService) GetByID(ctx context.Context, actor ActorContext, id uint64) (*dto.AttendanceResponse, error) {
	att, err := s.repo.Attendance.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrAttendanceNotFound
		}
		s.logger.Error("查询出勤记录失败", zap.Uint64("id", id), zap.Error(err))
		return nil, err
	}
	if !(actor.IsWorker() && att.WorkerID == actor.ID) && !actor.IsFacilityOf(att.FacilityID) {
		return nil, pkgerrors.ErrForbidden
	}
	return toAttendanceResponse(att), nil
}

// ── 内部辅助方法 ──

// requireSelf 打卡只能由工作者本人操作，代理登录不可
func requireSelf(actor ActorContext) error {
	if !actor.IsWorker() {
		return pkgerrors.ErrForbidden
	}
	if actor.Delegated {
		return pkgerrors.ErrForbidden.WithMessage("代理登录不能打卡")
	}
	return nil
}

func (s *attendanceService) lockOwnApplication(ctx context.Context, tx *repository.Repository, actor ActorContext, id uint64) (*model.Application, error) {
	app, err := tx.Application.GetForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrApplicationNotFound
		}
		return nil, err
	}
	if app.WorkerID != actor.ID {
		return nil, pkgerrors.ErrForbidden
	}
	return app, nil
}

func (s *attendanceService) attendanceOf(ctx context.Context, tx *repository.Repository, applicationID uint64) (*model.Attendance, error) {
	att, err := tx.Attendance.GetByApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrAttendanceNotFound
		}
		return nil, err
	}
	return att, nil
}

// verifyProof 校验打卡凭证，返回打卡方式与凭证引用
func (s *attendanceService) verifyProof(ctx context.Context, app *model.Application, slot *model.WorkSlot, purpose string, req *dto.CheckRequest, now time.Time) (string, string, error) {
	switch req.Method {
	case model.ProofScan:
		claims, err := s.jwtMgr.ParseScanToken(req.Token)
		if err != nil {
			return "", "", pkgerrors.ErrProofInvalid.WithMessage("二维码无效或已过期")
		}
		if claims.WorkSlotID != slot.ID || claims.Purpose != purpose {
			return "", "", pkgerrors.ErrProofInvalid.WithMessage("二维码与当前勤务不符")
		}

		ttl := time.Minute
		if claims.ExpiresAt != nil {
			if d := claims.ExpiresAt.Time.Sub(now); d > ttl {
				ttl = d
			}
		}
		owner, err := s.ledger.Claim(ctx, claims.ID, scanOwner(app.ID), ttl)
		if err != nil {
			return "", "", fmt.Errorf("记录扫码凭证失败: %w", err)
		}
		if owner != scanOwner(app.ID) {
			return "", "", pkgerrors.ErrProofInvalid.WithMessage("二维码已被使用")
		}
		return model.ProofScan, claims.ID, nil

	case model.ProofEmergencyCode:
		if err := s.codes.Verify(ctx, EmergencySession(app.ID, purpose), slot.EmergencyCodeHash, req.Code); err != nil {
			return "", "", err
		}
		return model.ProofEmergencyCode, "", nil

	default:
		return "", "", pkgerrors.ErrInvalidInput.WithMessage("method 只能是 scan 或 emergency_code")
	}
}

func (s *attendanceService) logFailure(msg string, actor ActorContext, applicationID uint64, err error) {
	fields := append(actor.AuditFields(), zap.Uint64("application_id", applicationID), zap.Error(err))
	switch pkgerrors.KindOf(err) {
	case pkgerrors.KindInternal:
		s.logger.Error(msg, fields...)
	case pkgerrors.KindProof, pkgerrors.KindLockout:
		s.logger.Warn(msg, fields...)
	}
}
