package model

import (
	"time"

	"gorm.io/datatypes"
)

// WorkSlot 工作槽位表 — 对应 work_slots
// 某个 Job 在某一天的一次招募，工资条件与是否需要审批在发布时从 Job 复制。
// applied_count / matched_count 是报名集合的派生计数，
// 只能通过槽位容量操作在报名状态迁移中修改。
type WorkSlot struct {
	BaseModel
	JobID             uint64         `gorm:"not null;index"                json:"job_id"`
	FacilityID        uint64         `gorm:"not null;index"                json:"facility_id"` // 冗余，便于权限校验
	WorkDate          datatypes.Date `gorm:"not null"                      json:"work_date"`
	StartTime         datatypes.Time `gorm:"not null"                      json:"start_time"`
	EndTime           datatypes.Time `gorm:"not null"                      json:"end_time"`
	StartsAt          time.Time      `gorm:"not null;index"                json:"starts_at"`
	EndsAt            time.Time      `gorm:"not null"                      json:"ends_at"` // 跨零点时为次日
	BreakMinutes      int            `gorm:"not null;default:0"            json:"break_minutes"`
	HourlyRate        int64          `gorm:"not null"                      json:"hourly_rate"`
	TransportationFee int64          `gorm:"not null;default:0"            json:"transportation_fee"`
	RequiresApproval  bool           `gorm:"not null"                      json:"requires_approval"`
	RecruitmentCount  int            `gorm:"not null"                      json:"recruitment_count"`
	AppliedCount      int            `gorm:"not null;default:0"            json:"applied_count"`
	MatchedCount      int            `gorm:"not null;default:0"            json:"matched_count"`
	Deadline          time.Time      `gorm:"not null"                      json:"deadline"`
	VisibleFrom       time.Time      `gorm:"not null"                      json:"visible_from"`
	VisibleUntil      *time.Time     `json:"visible_until,omitempty"`
	EmergencyCodeHash string         `gorm:"type:varchar(100);not null"    json:"-"`
	RetiredAt         *time.Time     `gorm:"index"                         json:"retired_at,omitempty"`

	// 关联
	Job *Job `gorm:"foreignKey:JobID" json:"job,omitempty"`
}

// TableName 指定表名
func (WorkSlot) TableName() string { return "work_slots" }

// IsRetired 是否已停止招募（软退役）
func (s *WorkSlot) IsRetired() bool { return s.RetiredAt != nil }

// IsFull 匹配数是否已达招募人数
func (s *WorkSlot) IsFull() bool { return s.MatchedCount >= s.RecruitmentCount }

// VisibleAt 判断 now 是否在公开期内
func (s *WorkSlot) VisibleAt(now time.Time) bool {
	if now.Before(s.VisibleFrom) {
		return false
	}
	if s.VisibleUntil != nil && now.After(*s.VisibleUntil) {
		return false
	}
	return true
}

// RemainingSeats 剩余可匹配名额
func (s *WorkSlot) RemainingSeats() int {
	if n := s.RecruitmentCount - s.MatchedCount; n > 0 {
		return n
	}
	return 0
}
