package dto

// ── 报名 DTO ──

// DecideApplicationRequest 设施审批报名
type DecideApplicationRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approve reject"`
	Reason   string `json:"reason"   binding:"omitempty,max=500"`
}

// CancelApplicationRequest 取消报名
type CancelApplicationRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// ReviewRequest 完成后的互评
type ReviewRequest struct {
	Rating  int    `json:"rating"  binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"omitempty,max=1000"`
}

// ApplicationListRequest 报名列表查询参数
type ApplicationListRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=APPLIED MATCHED REJECTED CHECKED_IN CHECKED_OUT COMPLETED COMPLETED_RATED CANCELLED_BY_WORKER CANCELLED_BY_FACILITY"`
}

// ApplicationResponse 报名响应
type ApplicationResponse struct {
	ID               uint64            `json:"id"`
	WorkerID         uint64            `json:"worker_id"`
	WorkSlotID       uint64            `json:"work_slot_id"`
	Status           string            `json:"status"`
	Outcome          string            `json:"outcome,omitempty"`
	CancelledBy      string            `json:"cancelled_by,omitempty"`
	CancelReason     string            `json:"cancel_reason,omitempty"`
	CancelledAt      *string           `json:"cancelled_at,omitempty"`
	DecidedBy        *uint64           `json:"decided_by,omitempty"`
	DecidedAt        *string           `json:"decided_at,omitempty"`
	MatchedAt        *string           `json:"matched_at,omitempty"`
	WorkerReviewed   bool              `json:"worker_reviewed"`
	FacilityReviewed bool              `json:"facility_reviewed"`
	RatingByWorker   *int              `json:"rating_by_worker,omitempty"`
	RatingByFacility *int              `json:"rating_by_facility,omitempty"`
	Slot             *WorkSlotResponse `json:"slot,omitempty"`
	CreatedAt        string            `json:"created_at"`
	UpdatedAt        string            `json:"updated_at"`
}
