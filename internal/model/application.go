package model

import "time"

// ApplicationStatus 报名状态
type ApplicationStatus string

const (
	ApplicationApplied             ApplicationStatus = "APPLIED"
	ApplicationMatched             ApplicationStatus = "MATCHED"
	ApplicationRejected            ApplicationStatus = "REJECTED"
	ApplicationCheckedIn           ApplicationStatus = "CHECKED_IN"
	ApplicationCheckedOut          ApplicationStatus = "CHECKED_OUT"
	ApplicationCompleted           ApplicationStatus = "COMPLETED"
	ApplicationCompletedRated      ApplicationStatus = "COMPLETED_RATED"
	ApplicationCancelledByWorker   ApplicationStatus = "CANCELLED_BY_WORKER"
	ApplicationCancelledByFacility ApplicationStatus = "CANCELLED_BY_FACILITY"
)

// applicationTransitions 状态迁移表，报名状态的唯一事实来源
var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationApplied: {
		ApplicationMatched,
		ApplicationRejected,
		ApplicationCancelledByWorker,
		ApplicationCancelledByFacility,
	},
	ApplicationMatched: {
		ApplicationCheckedIn,
		ApplicationCancelledByWorker,
		ApplicationCancelledByFacility,
	},
	ApplicationCheckedIn:  {ApplicationCheckedOut},
	ApplicationCheckedOut: {ApplicationCompleted},
	ApplicationCompleted:  {ApplicationCompletedRated},
}

// CanTransitionTo 判断迁移是否合法
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	for _, allowed := range applicationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal 终态不允许任何迁移
func (s ApplicationStatus) IsTerminal() bool {
	return len(applicationTransitions[s]) == 0
}

// IsCancelled 是否为取消态
func (s ApplicationStatus) IsCancelled() bool {
	return s == ApplicationCancelledByWorker || s == ApplicationCancelledByFacility
}

// HoldsMatch 是否占用槽位的匹配名额
func (s ApplicationStatus) HoldsMatch() bool {
	switch s {
	case ApplicationMatched, ApplicationCheckedIn, ApplicationCheckedOut,
		ApplicationCompleted, ApplicationCompletedRated:
		return true
	}
	return false
}

// IsLive 是否计入 applied_count
func (s ApplicationStatus) IsLive() bool {
	return s != ApplicationRejected && !s.IsCancelled()
}

// 取消方
const (
	ActorWorker   = "worker"
	ActorFacility = "facility"
)

// Application 报名表 — 对应 applications
// 同一 (worker_id, work_slot_id) 至多一条未取消记录（部分唯一索引）
type Application struct {
	BaseModel
	WorkerID         uint64            `gorm:"not null;index"                          json:"worker_id"`
	WorkSlotID       uint64            `gorm:"not null;index"                          json:"work_slot_id"`
	Status           ApplicationStatus `gorm:"type:varchar(30);not null;default:'APPLIED'" json:"status"`
	CancelledBy      string            `gorm:"type:varchar(20);not null;default:''"     json:"cancelled_by,omitempty"` // worker | facility
	CancelReason     string            `gorm:"type:varchar(500)"                       json:"cancel_reason,omitempty"`
	CancelledAt      *time.Time        `json:"cancelled_at,omitempty"`
	DecidedBy        *uint64           `json:"decided_by,omitempty"`
	DecidedAt        *time.Time        `json:"decided_at,omitempty"`
	MatchedAt        *time.Time        `json:"matched_at,omitempty"`
	WorkerReviewed   bool              `gorm:"not null;default:false"                  json:"worker_reviewed"`
	FacilityReviewed bool              `gorm:"not null;default:false"                  json:"facility_reviewed"`
	RatingByWorker   *int              `json:"rating_by_worker,omitempty"`   // 工作者对设施的评分
	RatingByFacility *int              `json:"rating_by_facility,omitempty"` // 设施对工作者的评分
	WorkerComment    string            `gorm:"type:varchar(1000)"                      json:"worker_comment,omitempty"`
	FacilityComment  string            `gorm:"type:varchar(1000)"                      json:"facility_comment,omitempty"`

	// 关联
	WorkSlot *WorkSlot `gorm:"foreignKey:WorkSlotID" json:"work_slot,omitempty"`
}

// TableName 指定表名
func (Application) TableName() string { return "applications" }
