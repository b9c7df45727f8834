package model

import "time"

// 打卡方式
const (
	ProofScan          = "scan"
	ProofEmergencyCode = "emergency_code"
)

// 打卡目的
const (
	PurposeCheckIn  = "check_in"
	PurposeCheckOut = "check_out"
)

// Attendance 出勤记录表 — 对应 attendances
// 首次签到成功时创建，每个报名至多一条。Scheduled* 为发布时条件的快照，
// Effective* 与 WageAmount 为实际结算值，只能由签退或修改申请审批写入。
type Attendance struct {
	BaseModel
	ApplicationID         uint64     `gorm:"not null;uniqueIndex"          json:"application_id"`
	WorkSlotID            uint64     `gorm:"not null;index"                json:"work_slot_id"`
	WorkerID              uint64     `gorm:"not null;index"                json:"worker_id"`
	FacilityID            uint64     `gorm:"not null;index"                json:"facility_id"`
	ScheduledStartAt      time.Time  `gorm:"not null"                      json:"scheduled_start_at"`
	ScheduledEndAt        time.Time  `gorm:"not null"                      json:"scheduled_end_at"`
	ScheduledBreakMinutes int        `gorm:"not null;default:0"            json:"scheduled_break_minutes"`
	HourlyRate            int64      `gorm:"not null"                      json:"hourly_rate"`
	TransportationFee     int64      `gorm:"not null;default:0"            json:"transportation_fee"`
	CheckInAt             time.Time  `gorm:"not null"                      json:"check_in_at"`
	CheckInMethod         string     `gorm:"type:varchar(20);not null"     json:"check_in_method"`
	CheckInProofRef       string     `gorm:"type:varchar(64)"              json:"check_in_proof_ref,omitempty"`
	CheckOutAt            *time.Time `json:"check_out_at,omitempty"`
	CheckOutMethod        string     `gorm:"type:varchar(20)"              json:"check_out_method,omitempty"`
	CheckOutProofRef      string     `gorm:"type:varchar(64)"              json:"check_out_proof_ref,omitempty"`
	EffectiveStartAt      *time.Time `json:"effective_start_at,omitempty"`
	EffectiveEndAt        *time.Time `json:"effective_end_at,omitempty"`
	EffectiveBreakMinutes int        `gorm:"not null;default:0"            json:"effective_break_minutes"`
	WageAmount            int64      `gorm:"not null;default:0"            json:"wage_amount"`
	ModificationCount     int        `gorm:"not null;default:0"            json:"modification_count"`
}

// TableName 指定表名
func (Attendance) TableName() string { return "attendances" }

// IsCheckedOut 是否已签退
func (a *Attendance) IsCheckedOut() bool { return a.CheckOutAt != nil }
