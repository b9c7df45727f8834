package service

import (
	"go.uber.org/zap"

	pkgerrors "share-worker/backend/pkg/errors"
)

// ActorKind 调用方类型
type ActorKind string

const (
	ActorWorker   ActorKind = "worker"
	ActorFacility ActorKind = "facility"
	ActorSystem   ActorKind = "system" // 定时任务
)

// ActorContext 每次业务调用的操作者，由中间件根据访问令牌构造
type ActorContext struct {
	Kind        ActorKind
	ID          uint64
	FacilityID  uint64 // facility 所属设施
	Delegated   bool   // 代理登录
	DelegatorID uint64
}

// SystemActor 定时任务使用的系统身份
func SystemActor() ActorContext {
	return ActorContext{Kind: ActorSystem}
}

// IsWorker 是否为工作者
func (a ActorContext) IsWorker() bool { return a.Kind == ActorWorker && a.ID != 0 }

// IsFacilityOf 是否为指定设施的工作人员
func (a ActorContext) IsFacilityOf(facilityID uint64) bool {
	return a.Kind == ActorFacility && a.FacilityID != 0 && a.FacilityID == facilityID
}

// AuditFields 审计日志字段
func (a ActorContext) AuditFields() []zap.Field {
	fields := []zap.Field{
		zap.String("actor_kind", string(a.Kind)),
		zap.Uint64("actor_id", a.ID),
	}
	if a.FacilityID != 0 {
		fields = append(fields, zap.Uint64("actor_facility_id", a.FacilityID))
	}
	if a.Delegated {
		fields = append(fields, zap.Bool("delegated", true), zap.Uint64("delegator_id", a.DelegatorID))
	}
	return fields
}

func requireWorker(actor ActorContext) error {
	if !actor.IsWorker() {
		return pkgerrors.ErrForbidden
	}
	return nil
}

func requireFacility(actor ActorContext) error {
	if actor.Kind != ActorFacility || actor.FacilityID == 0 {
		return pkgerrors.ErrForbidden
	}
	return nil
}
