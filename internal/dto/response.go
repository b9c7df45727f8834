package dto

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// ── 幂等结果 ──

// 操作结果，重复提交时返回 ALREADY_* 而不是错误
const (
	OutcomeApplied           = "APPLIED"
	OutcomeMatched           = "MATCHED"
	OutcomeRejected          = "REJECTED"
	OutcomeCancelled         = "CANCELLED"
	OutcomeAlreadyCancelled  = "ALREADY_CANCELLED"
	OutcomeCheckedIn         = "CHECKED_IN"
	OutcomeAlreadyCheckedIn  = "ALREADY_CHECKED_IN"
	OutcomeCheckedOut        = "CHECKED_OUT"
	OutcomeAlreadyCheckedOut = "ALREADY_CHECKED_OUT"
)
