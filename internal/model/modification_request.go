package model

import "time"

// ModificationStatus 勤务修改申请状态
type ModificationStatus string

const (
	ModificationPending     ModificationStatus = "PENDING"
	ModificationResubmitted ModificationStatus = "RESUBMITTED"
	ModificationApproved    ModificationStatus = "APPROVED"
	ModificationRejected    ModificationStatus = "REJECTED"
)

// IsOpen 待审批（含再次提交）
func (s ModificationStatus) IsOpen() bool {
	return s == ModificationPending || s == ModificationResubmitted
}

// ModificationRequest 勤务修改申请表 — 对应 modification_requests
// 同一出勤至多一条进行中的申请（部分唯一索引）
type ModificationRequest struct {
	BaseModel
	AttendanceID          uint64             `gorm:"not null;index"                        json:"attendance_id"`
	WorkerID              uint64             `gorm:"not null;index"                        json:"worker_id"`
	FacilityID            uint64             `gorm:"not null;index"                        json:"facility_id"`
	RequestedStartAt      time.Time          `gorm:"not null"                              json:"requested_start_at"`
	RequestedEndAt        time.Time          `gorm:"not null"                              json:"requested_end_at"`
	RequestedBreakMinutes int                `gorm:"not null;default:0"                    json:"requested_break_minutes"`
	WorkerComment         string             `gorm:"type:varchar(1000)"                    json:"worker_comment,omitempty"`
	OriginalAmount        int64              `gorm:"not null"                              json:"original_amount"`
	RequestedAmount       int64              `gorm:"not null"                              json:"requested_amount"`
	Status                ModificationStatus `gorm:"type:varchar(20);not null;index"       json:"status"`
	ReviewerComment       string             `gorm:"type:varchar(1000)"                    json:"reviewer_comment,omitempty"`
	ReviewedBy            *uint64            `json:"reviewed_by,omitempty"`
	ReviewedAt            *time.Time         `json:"reviewed_at,omitempty"`
	Revision              int                `gorm:"not null;default:1"                    json:"revision"`

	// 关联
	Revisions []ModificationRequestRevision `gorm:"foreignKey:RequestID" json:"revisions,omitempty"`
}

// TableName 指定表名
func (ModificationRequest) TableName() string { return "modification_requests" }

// WageDelta 申请金额与原金额之差
func (r *ModificationRequest) WageDelta() int64 { return r.RequestedAmount - r.OriginalAmount }

// ModificationRequestRevision 修改申请审批历史 — 对应 modification_request_revisions
// 只追加不修改
type ModificationRequestRevision struct {
	ID                    uint64             `gorm:"primaryKey;autoIncrement"   json:"id"`
	RequestID             uint64             `gorm:"not null;index"             json:"request_id"`
	Revision              int                `gorm:"not null"                   json:"revision"`
	RequestedStartAt      time.Time          `gorm:"not null"                   json:"requested_start_at"`
	RequestedEndAt        time.Time          `gorm:"not null"                   json:"requested_end_at"`
	RequestedBreakMinutes int                `gorm:"not null"                   json:"requested_break_minutes"`
	WorkerComment         string             `gorm:"type:varchar(1000)"         json:"worker_comment,omitempty"`
	OriginalAmount        int64              `gorm:"not null"                   json:"original_amount"`
	RequestedAmount       int64              `gorm:"not null"                   json:"requested_amount"`
	Outcome               ModificationStatus `gorm:"type:varchar(20);not null"  json:"outcome"`
	ReviewerComment       string             `gorm:"type:varchar(1000)"         json:"reviewer_comment,omitempty"`
	ReviewedBy            uint64             `gorm:"not null"                   json:"reviewed_by"`
	CreatedAt             time.Time          `gorm:"not null"                   json:"created_at"`
}

// TableName 指定表名
func (ModificationRequestRevision) TableName() string { return "modification_request_revisions" }
