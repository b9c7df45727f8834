package dto

// ── 勤务修改申请 DTO ──

// SubmitModificationRequest 修改申请内容，时刻以勤务日期为基准，结束不晚于开始时视为次日
type SubmitModificationRequest struct {
	StartTime    string `json:"start_time"    binding:"required,hhmm"`
	EndTime      string `json:"end_time"      binding:"required,hhmm"`
	BreakMinutes int    `json:"break_minutes" binding:"min=0,max=720"`
	Comment      string `json:"comment"       binding:"omitempty,max=1000"`
}

// DecideModificationRequest 设施审批修改申请，驳回时必须填写 comment
type DecideModificationRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approve reject"`
	Comment  string `json:"comment"  binding:"omitempty,max=1000"`
}

// ModificationListRequest 修改申请列表查询参数
type ModificationListRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=PENDING RESUBMITTED APPROVED REJECTED"`
}

// ModificationRevisionResponse 审批历史
type ModificationRevisionResponse struct {
	Revision              int    `json:"revision"`
	RequestedStartAt      string `json:"requested_start_at"`
	RequestedEndAt        string `json:"requested_end_at"`
	RequestedBreakMinutes int    `json:"requested_break_minutes"`
	WorkerComment         string `json:"worker_comment,omitempty"`
	OriginalAmount        int64  `json:"original_amount"`
	RequestedAmount       int64  `json:"requested_amount"`
	Outcome               string `json:"outcome"`
	ReviewerComment       string `json:"reviewer_comment,omitempty"`
	ReviewedBy            uint64 `json:"reviewed_by"`
	ReviewedAt            string `json:"reviewed_at"`
}

// ModificationRequestResponse 修改申请响应
type ModificationRequestResponse struct {
	ID                    uint64                         `json:"id"`
	AttendanceID          uint64                         `json:"attendance_id"`
	WorkerID              uint64                         `json:"worker_id"`
	FacilityID            uint64                         `json:"facility_id"`
	RequestedStartAt      string                         `json:"requested_start_at"`
	RequestedEndAt        string                         `json:"requested_end_at"`
	RequestedBreakMinutes int                            `json:"requested_break_minutes"`
	WorkerComment         string                         `json:"worker_comment,omitempty"`
	OriginalAmount        int64                          `json:"original_amount"`
	RequestedAmount       int64                          `json:"requested_amount"`
	WageDelta             int64                          `json:"wage_delta"`
	Status                string                         `json:"status"`
	ReviewerComment       string                         `json:"reviewer_comment,omitempty"`
	ReviewedBy            *uint64                        `json:"reviewed_by,omitempty"`
	ReviewedAt            *string                        `json:"reviewed_at,omitempty"`
	Revision              int                            `json:"revision"`
	Revisions             []ModificationRevisionResponse `json:"revisions,omitempty"`
	CreatedAt             string                         `json:"created_at"`
}
