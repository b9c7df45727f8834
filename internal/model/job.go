package model

import "gorm.io/datatypes"

// Job 招聘信息表 — 对应 jobs
// 工资条件在发布槽位时复制到 WorkSlot，之后修改 Job 不影响已发布槽位
type Job struct {
	BaseModel
	FacilityID        uint64         `gorm:"not null;index"             json:"facility_id"`
	Title             string         `gorm:"type:varchar(200);not null" json:"title"`
	Description       string         `gorm:"type:text"                  json:"description,omitempty"`
	StartTime         datatypes.Time `gorm:"not null"                   json:"start_time"`
	EndTime           datatypes.Time `gorm:"not null"                   json:"end_time"`
	BreakMinutes      int            `gorm:"not null;default:0"         json:"break_minutes"`
	HourlyRate        int64          `gorm:"not null"                   json:"hourly_rate"`
	TransportationFee int64          `gorm:"not null;default:0"         json:"transportation_fee"`
	RequiresApproval  bool           `gorm:"not null"                   json:"requires_approval"` // false 时报名即匹配

	// 关联
	Facility *Facility  `gorm:"foreignKey:FacilityID" json:"facility,omitempty"`
	Slots    []WorkSlot `gorm:"foreignKey:JobID"      json:"slots,omitempty"`
}

// TableName 指定表名
func (Job) TableName() string { return "jobs" }
