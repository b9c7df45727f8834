package dto

// ── 打卡 DTO ──

// CheckRequest 签到 / 签退凭证：扫码 token 或 4 位紧急码
type CheckRequest struct {
	Method string `json:"method" binding:"required,oneof=scan emergency_code"`
	Token  string `json:"token"  binding:"required_if=Method scan"`
	Code   string `json:"code"   binding:"required_if=Method emergency_code,omitempty,len=4,numeric"`
}

// ClearLockoutRequest 解除紧急码锁定
type ClearLockoutRequest struct {
	Purpose string `form:"purpose" binding:"required,oneof=check_in check_out"`
}

// AttendanceResponse 出勤记录响应
type AttendanceResponse struct {
	ID                    uint64  `json:"id"`
	ApplicationID         uint64  `json:"application_id"`
	WorkSlotID            uint64  `json:"work_slot_id"`
	WorkerID              uint64  `json:"worker_id"`
	FacilityID            uint64  `json:"facility_id"`
	ScheduledStartAt      string  `json:"scheduled_start_at"`
	ScheduledEndAt        string  `json:"scheduled_end_at"`
	ScheduledBreakMinutes int     `json:"scheduled_break_minutes"`
	HourlyRate            int64   `json:"hourly_rate"`
	TransportationFee     int64   `json:"transportation_fee"`
	CheckInAt             string  `json:"check_in_at"`
	CheckInMethod         string  `json:"check_in_method"`
	CheckOutAt            *string `json:"check_out_at,omitempty"`
	CheckOutMethod        string  `json:"check_out_method,omitempty"`
	EffectiveStartAt      *string `json:"effective_start_at,omitempty"`
	EffectiveEndAt        *string `json:"effective_end_at,omitempty"`
	EffectiveBreakMinutes int     `json:"effective_break_minutes"`
	WageAmount            int64   `json:"wage_amount"`
	ModificationCount     int     `json:"modification_count"`
}

// CheckResult 签到 / 签退结果
type CheckResult struct {
	Outcome           string             `json:"outcome"`
	ApplicationStatus string             `json:"application_status"`
	Attendance        AttendanceResponse `json:"attendance"`
}
