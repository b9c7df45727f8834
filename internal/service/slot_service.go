package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"share-worker/backend/internal/dto"
	"share-worker/backend/internal/model"
	"share-worker/backend/internal/repository"
	"share-worker/backend/internal/wage"
	pkgerrors "share-worker/backend/pkg/errors"
	"share-worker/backend/pkg/jwt"
)

// SlotService 招聘信息与槽位业务接口
type SlotService interface {
	PublishJob(ctx context.Context, actor ActorContext, req *dto.PublishJobRequest) (*dto.PublishJobResponse, error)
	GetJob(ctx context.Context, actor ActorContext, id uint64) (*dto.JobResponse, error)
	GetSlot(ctx context.Context, actor ActorContext, id uint64) (*dto.WorkSlotResponse, error)
	ListSlots(ctx context.Context, actor ActorContext, req *dto.SlotListRequest) ([]dto.WorkSlotResponse, int64, error)
	RetireSlot(ctx context.Context, actor ActorContext, id uint64) (*dto.WorkSlotResponse, error)
	RotateEmergencyCode(ctx context.Context, actor ActorContext, id uint64) (*dto.SlotEmergencyCode, error)
	IssueScanToken(ctx context.Context, actor ActorContext, id uint64, req *dto.ScanTokenRequest) (*dto.ScanTokenResponse, error)
	// RetireEnded 定时任务：结束时间早于 now 的槽位停止招募
	RetireEnded(ctx context.Context, now time.Time) (int64, error)
}

type slotService struct {
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewSlotService 创建 SlotService 实例；loc 为勤务日期所在时区
func NewSlotService(repo *repository.Repository, jwtMgr *jwt.Manager, loc *time.Location, logger *zap.Logger) SlotService {
	if loc == nil {
		loc = time.UTC
	}
	return &slotService{repo: repo, jwtMgr: jwtMgr, loc: loc, logger: logger, now: time.Now}
}

// ────────────────────── PublishJob ──────────────────────

func (s *slotService) PublishJob(ctx context.Context, actor ActorContext, req *dto.PublishJobRequest) (*dto.PublishJobResponse, error) {
	if err := requireFacility(actor); err != nil {
		return nil, err
	}

	facility, err := s.repo.Facility.GetByID(ctx, actor.FacilityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrFacilityNotFound
		}
		s.logger.Error("查询设施失败", zap.Uint64("facility_id", actor.FacilityID), zap.Error(err))
		return nil, err
	}
	if !facility.IsActive {
		return nil, pkgerrors.ErrForbidden.WithMessage("设施已停用")
	}

	start, err := wage.ParseClock(req.StartTime)
	if err != nil {
		return nil, pkgerrors.ErrInvalidInput.WithMessage(err.Error())
	}
	end, err := wage.ParseClock(req.EndTime)
	if err != nil {
		return nil, pkgerrors.ErrInvalidInput.WithMessage(err.Error())
	}
	if start == end {
		return nil, pkgerrors.ErrInvalidInput.WithMessage("开始时间与结束时间不能相同")
	}
	if req.BreakMinutes >= wage.ElapsedMinutes(start, end) {
		return nil, pkgerrors.ErrInvalidInput.WithMessage("休息时间必须短于工作时长")
	}

	now := s.now()
	visibleFrom := now
	if req.VisibleFrom != nil {
		visibleFrom = *req.VisibleFrom
	}
	if req.VisibleUntil != nil && !req.VisibleUntil.After(visibleFrom) {
		return nil, pkgerrors.ErrInvalidInput.WithMessage("公开结束时间必须晚于公开开始时间")
	}

	requiresApproval := true
	if req.RequiresApproval != nil {
		requiresApproval = *req.RequiresApproval
	}

	job := &model.Job{
		FacilityID:        facility.ID,
		Title:             req.Title,
		Description:       req.Description,
		StartTime:         datatypes.Time(start.Duration()),
		EndTime:           datatypes.Time(end.Duration()),
		BreakMinutes:      req.BreakMinutes,
		HourlyRate:        req.HourlyRate,
		TransportationFee: req.TransportationFee,
		RequiresApproval:  requiresApproval,
	}

	seen := make(map[string]struct{}, len(req.WorkDates))
	slots := make([]model.WorkSlot, 0, len(req.WorkDates))
	codes := make([]dto.SlotEmergencyCode, 0, len(req.WorkDates))
	for _, raw := range req.WorkDates {
		if _, dup := seen[raw]; dup {
			return nil, pkgerrors.ErrInvalidInput.WithMessage("勤务日期重复: " + raw)
		}
		seen[raw] = struct{}{}

		day, err := time.ParseInLocation("2006-01-02", raw, s.loc)
		if err != nil {
			return nil, pkgerrors.ErrInvalidInput.WithMessage("勤务日期格式应为 YYYY-MM-DD")
		}
		startsAt, endsAt := anchorWindow(day, start, end)
		if !startsAt.After(now) {
			return nil, pkgerrors.ErrInvalidInput.WithMessage("不能发布已开始的槽位: " + raw)
		}

		code, hash, err := GenerateEmergencyCode()
		if err != nil {
			s.logger.Error("生成紧急码失败", zap.Error(err))
			return nil, err
		}
		codes = append(codes, dto.SlotEmergencyCode{WorkDate: raw, Code: code})

		slots = append(slots, model.WorkSlot{
			FacilityID:        facility.ID,
			WorkDate:          datatypes.Date(day),
			StartTime:         job.StartTime,
			EndTime:           job.EndTime,
			StartsAt:          startsAt,
			EndsAt:            endsAt,
			BreakMinutes:      job.BreakMinutes,
			HourlyRate:        job.HourlyRate,
			TransportationFee: job.TransportationFee,
			RequiresApproval:  job.RequiresApproval,
			RecruitmentCount:  req.RecruitmentCount,
			Deadline:          startsAt.Add(-time.Duration(req.DeadlineBeforeStart) * time.Minute),
			VisibleFrom:       visibleFrom,
			VisibleUntil:      req.VisibleUntil,
			EmergencyCodeHash: hash,
		})
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Job.Create(ctx, job); err != nil {
			return err
		}
		for i := range slots {
			slots[i].JobID = job.ID
		}
		return tx.WorkSlot.BatchCreate(ctx, slots)
	})
	if err != nil {
		s.logger.Error("发布招聘信息失败", append(actor.AuditFields(), zap.Error(err))...)
		return nil, err
	}

	for i := range slots {
		codes[i].WorkSlotID = slots[i].ID
	}
	job.Slots = slots

	s.logger.Info("招聘信息已发布",
		append(actor.AuditFields(), zap.Uint64("job_id", job.ID), zap.Int("slots", len(slots)))...)

	return &dto.PublishJobResponse{Job: *toJobResponse(job), EmergencyCodes: codes}, nil
}

// anchorWindow 将时刻锚定到勤务日期，结束不晚于开始时顺延到次日
func anchorWindow(day time.Time, start, end wage.Clock) (time.Time, time.Time) {
	y, m, d := day.Date()
	startsAt := time.Date(y, m, d, int(start)/60, int(start)%60, 0, 0, day.Location())
	endsAt := time.Date(y, m, d, int(end)/60, int(end)%60, 0, 0, day.Location())
	if !endsAt.After(startsAt) {
		endsAt = endsAt.AddDate(0, 0, 1)
	}
	return startsAt, endsAt
}

// ────────────────────── GetJob ──────────────────────

func (s *slotService) GetJob(ctx context.Context, actor ActorContext, id uint64) (*dto.JobResponse, error) {
	job, err := s.repo.Job.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrJobNotFound
		}
		s.logger.Error("查询招聘信息失败", zap.Uint64("id", id), zap.Error(err))
		return nil, err
	}

	// 工作者只能看到公开中的槽位
	if !actor.IsFacilityOf(job.FacilityID) {
		now := s.now()
		visible := job.Slots[:0]
		for _, slot := range job.Slots {
			if !slot.IsRetired() && slot.VisibleAt(now) {
				visible = append(visible, slot)
			}
		}
		job.Slots = visible
	}
	return toJobResponse(job), nil
}

// ────────────────────── GetSlot / ListSlots ──────────────────────

func (s *slotService) GetSlot(ctx context.Context, actor ActorContext, id uint64) (*dto.WorkSlotResponse, error) {
	slot, err := s.getSlot(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsFacilityOf(slot.FacilityID) && (slot.IsRetired() || !slot.VisibleAt(s.now())) {
		return nil, pkgerrors.ErrSlotNotFound
	}
	return toWorkSlotResponse(slot), nil
}

func (s *slotService) ListSlots(ctx context.Context, actor ActorContext, req *dto.SlotListRequest) ([]dto.WorkSlotResponse, int64, error) {
	filter := repository.WorkSlotFilter{FacilityID: req.FacilityID, JobID: req.JobID}
	if actor.Kind == ActorFacility && (req.FacilityID == 0 || req.FacilityID == actor.FacilityID) {
		filter.FacilityID = actor.FacilityID
	} else {
		now := s.now()
		filter.VisibleAt = &now
	}
	if req.From != "" {
		from, err := time.ParseInLocation("2006-01-02", req.From, s.loc)
		if err != nil {
			return nil, 0, pkgerrors.ErrInvalidInput.WithMessage("from 格式应为 YYYY-MM-DD")
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := time.ParseInLocation("2006-01-02", req.To, s.loc)
		if err != nil {
			return nil, 0, pkgerrors.ErrInvalidInput.WithMessage("to 格式应为 YYYY-MM-DD")
		}
		to = to.AddDate(0, 0, 1)
		filter.To = &to
	}

	slots, total, err := s.repo.WorkSlot.List(ctx, filter, repository.Page{
		Offset: req.GetOffset(),
		Limit:  req.GetPageSize(),
	})
	if err != nil {
		s.logger.Error("列出槽位失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.WorkSlotResponse, 0, len(slots))
	for i := range slots {
		result = append(result, *toWorkSlotResponse(&slots[i]))
	}
	return result, total, nil
}

// ────────────────────── RetireSlot ──────────────────────

func (s *slotService) RetireSlot(ctx context.Context, actor ActorContext, id uint64) (*dto.WorkSlotResponse, error) {
	slot, err := s.getOwnedSlot(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if slot.IsRetired() {
		return toWorkSlotResponse(slot), nil
	}

	now := s.now()
	if err := s.repo.WorkSlot.Retire(ctx, id, now); err != nil {
		s.logger.Error("停止招募失败", zap.Uint64("slot_id", id), zap.Error(err))
		return nil, err
	}
	slot.RetiredAt = &now

	s.logger.Info("槽位已停止招募", append(actor.AuditFields(), zap.Uint64("slot_id", id))...)
	return toWorkSlotResponse(slot), nil
}

// ────────────────────── RotateEmergencyCode ──────────────────────

func (s *slotService) RotateEmergencyCode(ctx context.Context, actor ActorContext, id uint64) (*dto.SlotEmergencyCode, error) {
	slot, err := s.getOwnedSlot(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	code, hash, err := GenerateEmergencyCode()
	if err != nil {
		s.logger.Error("生成紧急码失败", zap.Error(err))
		return nil, err
	}
	if err := s.repo.WorkSlot.UpdateEmergencyCode(ctx, slot.ID, hash); err != nil {
		s.logger.Error("更新紧急码失败", zap.Uint64("slot_id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("紧急码已轮换", append(actor.AuditFields(), zap.Uint64("slot_id", id))...)
	return &dto.SlotEmergencyCode{WorkSlotID: slot.ID, WorkDate: fmtDate(slot.WorkDate), Code: code}, nil
}

// ────────────────────── IssueScanToken ──────────────────────

func (s *slotService) IssueScanToken(ctx context.Context, actor ActorContext, id uint64, req *dto.ScanTokenRequest) (*dto.ScanTokenResponse, error) {
	if req.Purpose != model.PurposeCheckIn && req.Purpose != model.PurposeCheckOut {
		return nil, pkgerrors.ErrInvalidInput.WithMessage("purpose 只能是 check_in 或 check_out")
	}
	slot, err := s.getOwnedSlot(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	token, _, expiresAt, err := s.jwtMgr.GenerateScanToken(slot.ID, slot.FacilityID, req.Purpose, s.now())
	if err != nil {
		s.logger.Error("签发打卡凭证失败", zap.Uint64("slot_id", id), zap.Error(err))
		return nil, err
	}
	return &dto.ScanTokenResponse{Token: token, Purpose: req.Purpose, ExpiresAt: fmtTime(expiresAt)}, nil
}

// ────────────────────── RetireEnded ──────────────────────

func (s *slotService) RetireEnded(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.WorkSlot.RetireEndedBefore(ctx, now)
	if err != nil {
		s.logger.Error("批量停止招募失败", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		s.logger.Info("已结束槽位停止招募", zap.Int64("count", n))
	}
	return n, nil
}

// ── 内部辅助方法 ──

func (s *slotService) getSlot(ctx context.Context, id uint64) (*model.WorkSlot, error) {
	slot, err := s.repo.WorkSlot.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrSlotNotFound
		}
		s.logger.Error("查询槽位失败", zap.Uint64("id", id), zap.Error(err))
		return nil, err
	}
	return slot, nil
}

func (s *slotService) getOwnedSlot(ctx context.Context, actor ActorContext, id uint64) (*model.WorkSlot, error) {
	if err := requireFacility(actor); err != nil {
		return nil, err
	}
	slot, err := s.getSlot(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsFacilityOf(slot.FacilityID) {
		return nil, pkgerrors.ErrForbidden
	}
	return slot, nil
}
