package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"share-worker/backend/internal/dto"
	"share-worker/backend/internal/model"
	"share-worker/backend/internal/repository"
	"share-worker/backend/internal/wage"
	pkgerrors "share-worker/backend/pkg/errors"
)

// ModificationService 勤务修改申请业务接口
type ModificationService interface {
	// Submit 对已签退的出勤提出修改；最近一次申请被驳回时转为再次提交
	Submit(ctx context.Context, actor ActorContext, attendanceID uint64, req *dto.SubmitModificationRequest) (*dto.ModificationRequestResponse, error)
	Resubmit(ctx context.Context, actor ActorContext, id uint64, req *dto.SubmitModificationRequest) (*dto.ModificationRequestResponse, error)
	Decide(ctx context.Context, actor ActorContext, id uint64, req *dto.DecideModificationRequest) (*dto.ModificationRequestResponse, error)
	GetByID(ctx context.Context, actor ActorContext, id uint64) (*dto.ModificationRequestResponse, error)
	List(ctx context.Context, actor ActorContext, req *dto.ModificationListRequest) ([]dto.ModificationRequestResponse, int64, error)
}

type modificationService struct {
	repo   *repository.Repository
	events *EventDispatcher
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewModificationService 创建 ModificationService 实例；loc 用于确定勤务日期
func NewModificationService(repo *repository.Repository, events *EventDispatcher, loc *time.Location, logger *zap.Logger) ModificationService {
	if loc == nil {
		loc = time.UTC
	}
	return &modificationService{repo: repo, events: events, loc: loc, logger: logger, now: time.Now}
}

// proposal 解析后的修改内容
type proposal struct {
	startAt      time.Time
	endAt        time.Time
	breakMinutes int
	comment      string
}

// parseProposal 时刻锚定到出勤的勤务日期，结束不晚于开始时视为次日
func (s *modificationService) parseProposal(att *model.Attendance, req *dto.SubmitModificationRequest) (*proposal, error) {
	start, err := wage.ParseClock(req.StartTime)
	if err != nil {
		return nil, pkgerrors.ErrInvalidInput.WithMessage(err.Error())
	}
	end, err := wage.ParseClock(req.EndTime)
	if err != nil {
		return nil, pkgerrors.ErrInvalidInput.WithMessage(err.Error())
	}
	if req.BreakMinutes < 0 {
		return nil, pkgerrors.ErrInvalidInput.WithMessage("休息时间不能为负")
	}
	if start == end {
		return nil, pkgerrors.ErrInvalidInput.WithMessage("开始时间与结束时间不能相同")
	}

	startsAt, endsAt := anchorWindow(att.ScheduledStartAt.In(s.loc), start, end)
	return &proposal{startAt: startsAt, endAt: endsAt, breakMinutes: req.BreakMinutes, comment: req.Comment}, nil
}

func (p *proposal) sameAs(att *model.Attendance) bool {
	return att.EffectiveStartAt != nil && att.EffectiveEndAt != nil &&
		p.startAt.Equal(*att.EffectiveStartAt) &&
		p.endAt.Equal(*att.EffectiveEndAt) &&
		p.breakMinutes == att.EffectiveBreakMinutes
}

func (p *proposal) applyTo(req *model.ModificationRequest, att *model.Attendance) {
	req.RequestedStartAt = p.startAt
	req.RequestedEndAt = p.endAt
	req.RequestedBreakMinutes = p.breakMinutes
	req.WorkerComment = p.comment
	req.OriginalAmount = att.WageAmount
	req.RequestedAmount = wage.ComputeSpan(p.startAt, p.endAt, p.breakMinutes, att.HourlyRate, att.TransportationFee)
}

// ────────────────────── Submit ──────────────────────

func (s *modificationService) Submit(ctx context.Context, actor ActorContext, attendanceID uint64, req *dto.SubmitModificationRequest) (*dto.ModificationRequestResponse, error) {
	if err := requireWorker(actor); err != nil {
		return nil, err
	}

	var result *model.ModificationRequest
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		att, err := s.lockAttendance(ctx, tx, attendanceID)
		if err != nil {
			return err
		}
		if att.WorkerID != actor.ID {
			return pkgerrors.ErrForbidden
		}
		if !att.IsCheckedOut() {
			return pkgerrors.ErrNotCheckedOut
		}

		p, err := s.parseProposal(att, req)
		if err != nil {
			return err
		}
		if p.sameAs(att) {
			return pkgerrors.ErrNoChange
		}
		if err := s.ensureNoOpen(ctx, tx, att.ID); err != nil {
			return err
		}

		latest, err := tx.Modification.FindLatest(ctx, att.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if latest != nil && latest.Status == model.ModificationRejected {
			result = latest
			return s.resubmit(ctx, tx, latest, att, p)
		}

		result = &model.ModificationRequest{
			AttendanceID: att.ID,
			WorkerID:     att.WorkerID,
			FacilityID:   att.FacilityID,
			Status:       model.ModificationPending,
			Revision:     1,
		}
		p.applyTo(result, att)
		if err := tx.Modification.Create(ctx, result); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return pkgerrors.ErrRequestAlreadyOpen
			}
			return err
		}
		return nil
	})
	if err != nil {
		s.logFailure("提交修改申请失败", actor, attendanceID, err)
		return nil, err
	}

	s.logger.Info("修改申请已提交", append(actor.AuditFields(),
		zap.Uint64("request_id", result.ID),
		zap.String("status", string(result.Status)),
		zap.Int64("wage_delta", result.WageDelta()))...)
	return toModificationResponse(result), nil
}

// ────────────────────── Resubmit ──────────────────────

func (s *modificationService) Resubmit(ctx context.Context, actor ActorContext, id uint64, req *dto.SubmitModificationRequest) (*dto.ModificationRequestResponse, error) {
	if err := requireWorker(actor); err != nil {
		return nil, err
	}

	var result *model.ModificationRequest
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		mr, err := s.lockRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if mr.WorkerID != actor.ID {
			return pkgerrors.ErrForbidden
		}
		if mr.Status != model.ModificationRejected {
			return pkgerrors.ErrIllegalTransition.WithMessage("只有被驳回的申请可以再次提交")
		}

		att, err := s.lockAttendance(ctx, tx, mr.AttendanceID)
		if err != nil {
			return err
		}
		p, err := s.parseProposal(att, req)
		if err != nil {
			return err
		}
		if p.sameAs(att) {
			return pkgerrors.ErrNoChange
		}
		if err := s.ensureNoOpen(ctx, tx, att.ID); err != nil {
			return err
		}

		result = mr
		return s.resubmit(ctx, tx, mr, att, p)
	})
	if err != nil {
		s.logFailure("再次提交修改申请失败", actor, id, err)
		return nil, err
	}

	s.logger.Info("修改申请已再次提交", append(actor.AuditFields(),
		zap.Uint64("request_id", result.ID),
		zap.Int("revision", result.Revision))...)
	return toModificationResponse(result), nil
}

func (s *modificationService) resubmit(ctx context.Context, tx *repository.Repository, mr *model.ModificationRequest, att *model.Attendance, p *proposal) error {
	p.applyTo(mr, att)
	mr.Status = model.ModificationResubmitted
	mr.Revision++
	mr.ReviewerComment = ""
	mr.ReviewedBy = nil
	mr.ReviewedAt = nil
	if err := tx.Modification.Update(ctx, mr, model.ModificationRejected); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return pkgerrors.ErrRequestAlreadyOpen
		}
		return err
	}
	return nil
}

// ────────────────────── Decide ──────────────────────

func (s *modificationService) Decide(ctx context.Context, actor ActorContext, id uint64, req *dto.DecideModificationRequest) (*dto.ModificationRequestResponse, error) {
	if err := requireFacility(actor); err != nil {
		return nil, err
	}
	approve := req.Decision == "approve"
	if !approve && req.Decision != "reject" {
		return nil, pkgerrors.ErrInvalidInput.WithMessage("decision 只能是 approve 或 reject")
	}
	comment := strings.TrimSpace(req.Comment)
	if !approve && comment == "" {
		return nil, pkgerrors.ErrCommentRequired
	}

	var result *model.ModificationRequest
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		mr, err := s.lockRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if !actor.IsFacilityOf(mr.FacilityID) {
			return pkgerrors.ErrForbidden
		}
		if !mr.Status.IsOpen() {
			return pkgerrors.ErrIllegalTransition.WithMessage("该申请已处理")
		}

		outcome := model.ModificationRejected
		if approve {
			outcome = model.ModificationApproved
			att, err := s.lockAttendance(ctx, tx, mr.AttendanceID)
			if err != nil {
				return err
			}
			start, end := mr.RequestedStartAt, mr.RequestedEndAt
			att.EffectiveStartAt = &start
			att.EffectiveEndAt = &end
			att.EffectiveBreakMinutes = mr.RequestedBreakMinutes
			att.WageAmount = mr.RequestedAmount
			att.ModificationCount++
			if err := tx.Attendance.UpdateEffective(ctx, att); err != nil {
				return err
			}
		}

		from := mr.Status
		now := s.now()
		mr.Status = outcome
		mr.ReviewerComment = comment
		mr.ReviewedBy = &actor.ID
		mr.ReviewedAt = &now
		if err := tx.Modification.Update(ctx, mr, from); err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				return pkgerrors.ErrIllegalTransition.WithMessage("该申请已被其他操作处理")
			}
			return err
		}

		rev := &model.ModificationRequestRevision{
			RequestID:             mr.ID,
			Revision:              mr.Revision,
			RequestedStartAt:      mr.RequestedStartAt,
			RequestedEndAt:        mr.RequestedEndAt,
			RequestedBreakMinutes: mr.RequestedBreakMinutes,
			WorkerComment:         mr.WorkerComment,
			OriginalAmount:        mr.OriginalAmount,
			RequestedAmount:       mr.RequestedAmount,
			Outcome:               outcome,
			ReviewerComment:       comment,
			ReviewedBy:            actor.ID,
		}
		if err := tx.Modification.CreateRevision(ctx, rev); err != nil {
			return err
		}
		result = mr
		return nil
	})
	if err != nil {
		s.logFailure("审批修改申请失败", actor, id, err)
		return nil, err
	}

	s.logger.Info("修改申请已审批", append(actor.AuditFields(),
		zap.Uint64("request_id", result.ID),
		zap.String("status", string(result.Status)),
		zap.Int64("wage_delta", result.WageDelta()))...)

	// 带上完整审批历史返回
	if full, err := s.repo.Modification.GetByID(ctx, result.ID); err == nil {
		result = full
	}

	event := EventModificationRejected
	if approve {
		event = EventModificationApproved
	}
	s.events.Dispatch(event, map[string]interface{}{
		"request_id":       result.ID,
		"attendance_id":    result.AttendanceID,
		"worker_id":        result.WorkerID,
		"facility_id":      result.FacilityID,
		"original_amount":  result.OriginalAmount,
		"requested_amount": result.RequestedAmount,
		"wage_delta":       result.WageDelta(),
	})
	return toModificationResponse(result), nil
}

// ────────────────────── 查询 ──────────────────────

func (s *modificationService) GetByID(ctx context.Context, actor ActorContext, id uint64) (*dto.ModificationRequestResponse, error) {
	mr, err := s.repo.Modification.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrRequestNotFound
		}
		s.logger.Error("查询修改申请失败", zap.Uint64("id", id), zap.Error(err))
		return nil, err
	}
	if !(actor.IsWorker() && mr.WorkerID == actor.ID) && !actor.IsFacilityOf(mr.FacilityID) {
		return nil, pkgerrors.ErrForbidden
	}
	return toModificationResponse(mr), nil
}

func (s *modificationService) List(ctx context.Context, actor ActorContext, req *dto.ModificationListRequest) ([]dto.ModificationRequestResponse, int64, error) {
	var filter repository.ModificationFilter
	switch {
	case actor.Kind == ActorFacility && actor.FacilityID != 0:
		filter.FacilityID = actor.FacilityID
	case actor.IsWorker():
		filter.WorkerID = actor.ID
	default:
		return nil, 0, pkgerrors.ErrForbidden
	}
	if req.Status != "" {
		filter.Statuses = []model.ModificationStatus{model.ModificationStatus(req.Status)}
	}

	reqs, total, err := s.repo.Modification.List(ctx, filter, repository.Page{
		Offset: req.GetOffset(),
		Limit:  req.GetPageSize(),
	})
	if err != nil {
		s.logger.Error("列出修改申请失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ModificationRequestResponse, 0, len(reqs))
	for i := range reqs {
		result = append(result, *toModificationResponse(&reqs[i]))
	}
	return result, total, nil
}

// ── 内部辅助方法 ──

func (s *modificationService) lockAttendance(ctx context.Context, tx *repository.Repository, id uint64) (*model.Attendance, error) {
	att, err := tx.Attendance.GetForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrAttendanceNotFound
		}
		return nil, err
	}
	return att, nil
}

func (s *modificationService) lockRequest(ctx context.Context, tx *repository.Repository, id uint64) (*model.ModificationRequest, error) {
	mr, err := tx.Modification.GetForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrRequestNotFound
		}
		return nil, err
	}
	return mr, nil
}

func (s *modificationService) ensureNoOpen(ctx context.Context, tx *repository.Repository, attendanceID uint64) error {
	_, err := tx.Modification.FindOpen(ctx, attendanceID)
	if err == nil {
		return pkgerrors.ErrRequestAlreadyOpen
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func (s *modificationService) logFailure(msg string, actor ActorContext, id uint64, err error) {
	if pkgerrors.KindOf(err) == pkgerrors.KindInternal {
		s.logger.Error(msg, append(actor.AuditFields(), zap.Uint64("id", id), zap.Error(err))...)
	}
}
