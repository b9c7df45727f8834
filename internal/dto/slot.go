package dto

import "time"

// ── 招聘信息与槽位 DTO ──

// PublishJobRequest 发布招聘信息并按日期生成槽位
type PublishJobRequest struct {
	Title               string     `json:"title"                 binding:"required,min=2,max=200"`
	Description         string     `json:"description"           binding:"omitempty,max=5000"`
	StartTime           string     `json:"start_time"            binding:"required,hhmm"` // "09:00"
	EndTime             string     `json:"end_time"              binding:"required,hhmm"` // "17:00"，不晚于开始时视为次日
	BreakMinutes        int        `json:"break_minutes"         binding:"min=0,max=720"`
	HourlyRate          int64      `json:"hourly_rate"           binding:"required,min=1"`
	TransportationFee   int64      `json:"transportation_fee"    binding:"min=0"`
	RequiresApproval    *bool      `json:"requires_approval"` // 缺省为 true
	WorkDates           []string   `json:"work_dates"            binding:"required,min=1,max=62,dive,datetime=2006-01-02"`
	RecruitmentCount    int        `json:"recruitment_count"     binding:"required,min=1,max=100"`
	DeadlineBeforeStart int        `json:"deadline_before_start" binding:"min=0,max=10080"` // 报名截止相对开始时间的提前量（分钟）
	VisibleFrom         *time.Time `json:"visible_from"`                                   // 缺省为发布时刻
	VisibleUntil        *time.Time `json:"visible_until"`
}

// SlotListRequest 槽位列表查询参数
type SlotListRequest struct {
	PaginationRequest
	FacilityID uint64 `form:"facility_id"`
	JobID      uint64 `form:"job_id"`
	From       string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To         string `form:"to"   binding:"omitempty,datetime=2006-01-02"`
}

// ScanTokenRequest 签发打卡二维码
type ScanTokenRequest struct {
	Purpose string `json:"purpose" binding:"required,oneof=check_in check_out"`
}

// JobResponse 招聘信息响应
type JobResponse struct {
	ID                uint64             `json:"id"`
	FacilityID        uint64             `json:"facility_id"`
	Title             string             `json:"title"`
	Description       string             `json:"description,omitempty"`
	StartTime         string             `json:"start_time"`
	EndTime           string             `json:"end_time"`
	BreakMinutes      int                `json:"break_minutes"`
	HourlyRate        int64              `json:"hourly_rate"`
	TransportationFee int64              `json:"transportation_fee"`
	RequiresApproval  bool               `json:"requires_approval"`
	Slots             []WorkSlotResponse `json:"slots,omitempty"`
	CreatedAt         string             `json:"created_at"`
}

// WorkSlotResponse 槽位响应
type WorkSlotResponse struct {
	ID                uint64  `json:"id"`
	JobID             uint64  `json:"job_id"`
	FacilityID        uint64  `json:"facility_id"`
	Title             string  `json:"title,omitempty"`
	WorkDate          string  `json:"work_date"`
	StartTime         string  `json:"start_time"`
	EndTime           string  `json:"end_time"`
	StartsAt          string  `json:"starts_at"`
	EndsAt            string  `json:"ends_at"`
	BreakMinutes      int     `json:"break_minutes"`
	HourlyRate        int64   `json:"hourly_rate"`
	TransportationFee int64   `json:"transportation_fee"`
	EstimatedWage     int64   `json:"estimated_wage"`
	RequiresApproval  bool    `json:"requires_approval"`
	RecruitmentCount  int     `json:"recruitment_count"`
	AppliedCount      int     `json:"applied_count"`
	MatchedCount      int     `json:"matched_count"`
	RemainingSeats    int     `json:"remaining_seats"`
	Deadline          string  `json:"deadline"`
	VisibleFrom       string  `json:"visible_from"`
	VisibleUntil      *string `json:"visible_until,omitempty"`
	Retired           bool    `json:"retired"`
}

// SlotEmergencyCode 槽位紧急码明文，仅在发布与轮换时返回一次
type SlotEmergencyCode struct {
	WorkSlotID uint64 `json:"work_slot_id"`
	WorkDate   string `json:"work_date,omitempty"`
	Code       string `json:"code"`
}

// PublishJobResponse 发布结果
type PublishJobResponse struct {
	Job            JobResponse         `json:"job"`
	EmergencyCodes []SlotEmergencyCode `json:"emergency_codes"`
}

// ScanTokenResponse 打卡二维码内容
type ScanTokenResponse struct {
	Token     string `json:"token"`
	Purpose   string `json:"purpose"`
	ExpiresAt string `json:"expires_at"`
}
