package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"share-worker/backend/internal/dto"
	"share-worker/backend/internal/model"
	"share-worker/backend/internal/repository"
	pkgerrors "share-worker/backend/pkg/errors"
)

// CancelReasonExpired 槽位开始时仍未审批的报名被自动驳回
const CancelReasonExpired = "expired"

// ApplicationService 报名状态机业务接口
type ApplicationService interface {
	Apply(ctx context.Context, actor ActorContext, slotID uint64) (*dto.ApplicationResponse, error)
	Decide(ctx context.Context, actor ActorContext, id uint64, req *dto.DecideApplicationRequest) (*dto.ApplicationResponse, error)
	Cancel(ctx context.Context, actor ActorContext, id uint64, req *dto.CancelApplicationRequest) (*dto.ApplicationResponse, error)
	Review(ctx context.Context, actor ActorContext, id uint64, req *dto.ReviewRequest) (*dto.ApplicationResponse, error)
	GetByID(ctx context.Context, actor ActorContext, id uint64) (*dto.ApplicationResponse, error)
	ListMine(ctx context.Context, actor ActorContext, req *dto.ApplicationListRequest) ([]dto.ApplicationResponse, int64, error)
	ListBySlot(ctx context.Context, actor ActorContext, slotID uint64, req *dto.ApplicationListRequest) ([]dto.ApplicationResponse, int64, error)
	// ExpireStale 定时任务：驳回槽位已开始仍为 APPLIED 的报名
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}

type applicationService struct {
	repo   *repository.Repository
	slots  *SlotStore
	events *EventDispatcher
	logger *zap.Logger
	now    func() time.Time
}

// NewApplicationService 创建 ApplicationService 实例
func NewApplicationService(repo *repository.Repository, slots *SlotStore, events *EventDispatcher, logger *zap.Logger) ApplicationService {
	return &applicationService{repo: repo, slots: slots, events: events, logger: logger, now: time.Now}
}

// transition 按迁移表推进状态，非法迁移返回 ErrIllegalTransition
func transition(ctx context.Context, tx *repository.Repository, app *model.Application, next model.ApplicationStatus) error {
	if !app.Status.CanTransitionTo(next) {
		return pkgerrors.ErrIllegalTransition.WithMessage(
			"不能从 " + string(app.Status) + " 变更为 " + string(next))
	}
	from := app.Status
	app.Status = next
	if err := tx.Application.UpdateStatus(ctx, app, from); err != nil {
		app.Status = from
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return pkgerrors.ErrIllegalTransition.WithMessage("报名状态已被其他操作修改，请刷新后重试")
		}
		return err
	}
	return nil
}

// ────────────────────── Apply ──────────────────────

func (s *applicationService) Apply(ctx context.Context, actor ActorContext, slotID uint64) (*dto.ApplicationResponse, error) {
	if err := requireWorker(actor); err != nil {
		return nil, err
	}

	now := s.now()
	var app *model.Application
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		slot, err := s.slots.ReserveApplication(ctx, tx, slotID, now)
		if err != nil {
			return err
		}

		if _, err := tx.Application.FindLive(ctx, actor.ID, slotID); err == nil {
			return pkgerrors.ErrApplicationExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		app = &model.Application{
			WorkerID:   actor.ID,
			WorkSlotID: slotID,
			Status:     model.ApplicationApplied,
		}
		if err := tx.Application.Create(ctx, app); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return pkgerrors.ErrApplicationExists
			}
			return err
		}

		if !slot.RequiresApproval {
			if slot, err = s.slots.ReserveMatch(ctx, tx, slotID); err != nil {
				return err
			}
			app.MatchedAt = &now
			app.DecidedAt = &now
			if err := transition(ctx, tx, app, model.ApplicationMatched); err != nil {
				return err
			}
		}
		app.WorkSlot = slot
		return nil
	})
	if err != nil {
		if pkgerrors.KindOf(err) == pkgerrors.KindInternal {
			s.logger.Error("报名失败", append(actor.AuditFields(), zap.Uint64("slot_id", slotID), zap.Error(err))...)
		}
		return nil, err
	}

	s.logger.Info("报名成功", append(actor.AuditFields(),
		zap.Uint64("application_id", app.ID),
		zap.Uint64("slot_id", slotID),
		zap.String("status", string(app.Status)))...)

	resp := toApplicationResponse(app)
	resp.Outcome = dto.OutcomeApplied
	if app.Status == model.ApplicationMatched {
		resp.Outcome = dto.OutcomeMatched
		s.events.Dispatch(EventApplicationMatched, applicationPayload(app))
	}
	return resp, nil
}

// ────────────────────── Decide ──────────────────────

func (s *applicationService) Decide(ctx context.Context, actor ActorContext, id uint64, req *dto.DecideApplicationRequest) (*dto.ApplicationResponse, error) {
	if err := requireFacility(actor); err != nil {
		return nil, err
	}
	approve := req.Decision == "approve"
	if !approve && req.Decision != "reject" {
		return nil, pkgerrors.ErrInvalidInput.WithMessage("decision 只能是 approve 或 reject")
	}

	now := s.now()
	var app *model.Application
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		app, err = s.lockOwnedByFacility(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if app.Status != model.ApplicationApplied {
			return pkgerrors.ErrIllegalTransition.WithMessage("只能审批待处理的报名")
		}

		app.DecidedBy = &actor.ID
		app.DecidedAt = &now
		if approve {
			if _, err := s.slots.ReserveMatch(ctx, tx, app.WorkSlotID); err != nil {
				return err
			}
			app.MatchedAt = &now
			return transition(ctx, tx, app, model.ApplicationMatched)
		}

		app.CancelReason = req.Reason
		if err := transition(ctx, tx, app, model.ApplicationRejected); err != nil {
			return err
		}
		return s.slots.Release(ctx, tx, app.WorkSlotID, false)
	})
	if err != nil {
		if pkgerrors.KindOf(err) == pkgerrors.KindInternal {
			s.logger.Error("审批报名失败", append(actor.AuditFields(), zap.Uint64("application_id", id), zap.Error(err))...)
		}
		return nil, err
	}

	s.logger.Info("报名已审批", append(actor.AuditFields(),
		zap.Uint64("application_id", id),
		zap.String("status", string(app.Status)))...)

	resp := toApplicationResponse(app)
	if approve {
		resp.Outcome = dto.OutcomeMatched
		s.events.Dispatch(EventApplicationMatched, applicationPayload(app))
	} else {
		resp.Outcome = dto.OutcomeRejected
		s.events.Dispatch(EventApplicationRejected, applicationPayload(app))
	}
	return resp, nil
}

// ────────────────────── Cancel ──────────────────────

func (s *applicationService) Cancel(ctx context.Context, actor ActorContext, id uint64, req *dto.CancelApplicationRequest) (*dto.ApplicationResponse, error) {
	var next model.ApplicationStatus
	var cancelledBy string
	switch {
	case actor.IsWorker():
		next, cancelledBy = model.ApplicationCancelledByWorker, model.ActorWorker
	case actor.Kind == ActorFacility:
		next, cancelledBy = model.ApplicationCancelledByFacility, model.ActorFacility
	default:
		return nil, pkgerrors.ErrForbidden
	}

	now := s.now()
	var app *model.Application
	alreadyCancelled := false
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		if actor.IsWorker() {
			app, err = s.lockOwnedByWorker(ctx, tx, actor, id)
		} else {
			app, err = s.lockOwnedByFacility(ctx, tx, actor, id)
		}
		if err != nil {
			return err
		}

		if app.Status.IsCancelled() {
			alreadyCancelled = true
			return nil
		}

		wasMatched := app.Status.HoldsMatch()
		app.CancelledBy = cancelledBy
		app.CancelReason = req.Reason
		app.CancelledAt = &now
		if err := transition(ctx, tx, app, next); err != nil {
			return err
		}
		return s.slots.Release(ctx, tx, app.WorkSlotID, wasMatched)
	})
	if err != nil {
		if pkgerrors.KindOf(err) == pkgerrors.KindInternal {
			s.logger.Error("取消报名失败", append(actor.AuditFields(), zap.Uint64("application_id", id), zap.Error(err))...)
		}
		return nil, err
	}

	resp := toApplicationResponse(app)
	if alreadyCancelled {
		resp.Outcome = dto.OutcomeAlreadyCancelled
		return resp, nil
	}

	s.logger.Info("报名已取消", append(actor.AuditFields(),
		zap.Uint64("application_id", id),
		zap.String("status", string(app.Status)))...)
	resp.Outcome = dto.OutcomeCancelled
	s.events.Dispatch(EventApplicationCancelled, applicationPayload(app))
	return resp, nil
}

// ────────────────────── Review ──────────────────────

func (s *applicationService) Review(ctx context.Context, actor ActorContext, id uint64, req *dto.ReviewRequest) (*dto.ApplicationResponse, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, pkgerrors.ErrInvalidInput.WithMessage("评分范围为 1–5")
	}

	var app *model.Application
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		switch {
		case actor.IsWorker():
			app, err = s.lockOwnedByWorker(ctx, tx, actor, id)
		case actor.Kind == ActorFacility:
			app, err = s.lockOwnedByFacility(ctx, tx, actor, id)
		default:
			return pkgerrors.ErrForbidden
		}
		if err != nil {
			return err
		}
		if app.Status != model.ApplicationCompleted && app.Status != model.ApplicationCompletedRated {
			return pkgerrors.ErrIllegalTransition.WithMessage("勤务完成后才能评价")
		}

		rating := req.Rating
		if actor.IsWorker() {
			if app.WorkerReviewed {
				return pkgerrors.ErrAlreadyReviewed
			}
			app.WorkerReviewed = true
			app.RatingByWorker = &rating
			app.WorkerComment = req.Comment
		} else {
			if app.FacilityReviewed {
				return pkgerrors.ErrAlreadyReviewed
			}
			app.FacilityReviewed = true
			app.RatingByFacility = &rating
			app.FacilityComment = req.Comment
		}

		if app.WorkerReviewed && app.FacilityReviewed && app.Status.CanTransitionTo(model.ApplicationCompletedRated) {
			app.Status = model.ApplicationCompletedRated
		}
		return tx.Application.UpdateReview(ctx, app)
	})
	if err != nil {
		if pkgerrors.KindOf(err) == pkgerrors.KindInternal {
			s.logger.Error("评价失败", append(actor.AuditFields(), zap.Uint64("application_id", id), zap.Error(err))...)
		}
		return nil, err
	}

	s.logger.Info("评价已提交", append(actor.AuditFields(),
		zap.Uint64("application_id", id),
		zap.String("status", string(app.Status)))...)
	return toApplicationResponse(app), nil
}

// ────────────────────── 查询 ──────────────────────

func (s *applicationService) GetByID(ctx context.Context, actor ActorContext, id uint64) (*dto.ApplicationResponse, error) {
	app, err := s.repo.Application.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrApplicationNotFound
		}
		s.logger.Error("查询报名失败", zap.Uint64("id", id), zap.Error(err))
		return nil, err
	}

	switch {
	case actor.IsWorker() && app.WorkerID == actor.ID:
	case app.WorkSlot != nil && actor.IsFacilityOf(app.WorkSlot.FacilityID):
	default:
		return nil, pkgerrors.ErrForbidden
	}
	return toApplicationResponse(app), nil
}

func (s *applicationService) ListMine(ctx context.Context, actor ActorContext, req *dto.ApplicationListRequest) ([]dto.ApplicationResponse, int64, error) {
	if err := requireWorker(actor); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, repository.ApplicationFilter{WorkerID: actor.ID}, req)
}

func (s *applicationService) ListBySlot(ctx context.Context, actor ActorContext, slotID uint64, req *dto.ApplicationListRequest) ([]dto.ApplicationResponse, int64, error) {
	if err := requireFacility(actor); err != nil {
		return nil, 0, err
	}
	slot, err := s.repo.WorkSlot.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, pkgerrors.ErrSlotNotFound
		}
		return nil, 0, err
	}
	if !actor.IsFacilityOf(slot.FacilityID) {
		return nil, 0, pkgerrors.ErrForbidden
	}
	return s.list(ctx, repository.ApplicationFilter{WorkSlotID: slotID}, req)
}

func (s *applicationService) list(ctx context.Context, filter repository.ApplicationFilter, req *dto.ApplicationListRequest) ([]dto.ApplicationResponse, int64, error) {
	if req.Status != "" {
		filter.Statuses = []model.ApplicationStatus{model.ApplicationStatus(req.Status)}
	}
	apps, total, err := s.repo.Application.List(ctx, filter, repository.Page{
		Offset: req.GetOffset(),
		Limit:  req.GetPageSize(),
	})
	if err != nil {
		s.logger.Error("列出报名失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ApplicationResponse, 0, len(apps))
	for i := range apps {
		result = append(result, *toApplicationResponse(&apps[i]))
	}
	return result, total, nil
}

// ────────────────────── ExpireStale ──────────────────────

func (s *applicationService) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	stale, err := s.repo.Application.ListStaleApplied(ctx, now, 200)
	if err != nil {
		s.logger.Error("查询过期报名失败", zap.Error(err))
		return 0, err
	}

	actor := SystemActor()
	expired := 0
	for _, candidate := range stale {
		var app *model.Application
		err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			var err error
			app, err = tx.Application.GetForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if app.Status != model.ApplicationApplied {
				app = nil
				return nil
			}
			app.CancelReason = CancelReasonExpired
			app.DecidedAt = &now
			if err := transition(ctx, tx, app, model.ApplicationRejected); err != nil {
				return err
			}
			return s.slots.Release(ctx, tx, app.WorkSlotID, false)
		})
		if err != nil {
			s.logger.Warn("驳回过期报名失败", zap.Uint64("application_id", candidate.ID), zap.Error(err))
			continue
		}
		if app == nil {
			continue
		}
		expired++
		s.logger.Info("过期报名已驳回", append(actor.AuditFields(), zap.Uint64("application_id", app.ID))...)
		s.events.Dispatch(EventApplicationRejected, applicationPayload(app))
	}
	return expired, nil
}

// ── 内部辅助方法 ──

func (s *applicationService) lockApplication(ctx context.Context, tx *repository.Repository, id uint64) (*model.Application, error) {
	app, err := tx.Application.GetForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrApplicationNotFound
		}
		return nil, err
	}
	return app, nil
}

func (s *applicationService) lockOwnedByWorker(ctx context.Context, tx *repository.Repository, actor ActorContext, id uint64) (*model.Application, error) {
	app, err := s.lockApplication(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if app.WorkerID != actor.ID {
		return nil, pkgerrors.ErrForbidden
	}
	return app, nil
}

func (s *applicationService) lockOwnedByFacility(ctx context.Context, tx *repository.Repository, actor ActorContext, id uint64) (*model.Application, error) {
	app, err := s.lockApplication(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	slot, err := tx.WorkSlot.GetByID(ctx, app.WorkSlotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrSlotNotFound
		}
		return nil, err
	}
	if !actor.IsFacilityOf(slot.FacilityID) {
		return nil, pkgerrors.ErrForbidden
	}
	return app, nil
}

func applicationPayload(app *model.Application) map[string]interface{} {
	payload := map[string]interface{}{
		"application_id": app.ID,
		"worker_id":      app.WorkerID,
		"work_slot_id":   app.WorkSlotID,
		"status":         string(app.Status),
	}
	if app.CancelledBy != "" {
		payload["cancelled_by"] = app.CancelledBy
	}
	if app.CancelReason != "" {
		payload["reason"] = app.CancelReason
	}
	return payload
}
