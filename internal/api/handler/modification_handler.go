package handler

import (
	"github.com/gin-gonic/gin"

	"share-worker/backend/internal/dto"
	"share-worker/backend/internal/service"
	"share-worker/backend/pkg/response"
)

// ModificationHandler 出勤修改申请 HTTP 处理器
type ModificationHandler struct {
	modSvc service.ModificationService
}

// NewModificationHandler 创建 ModificationHandler
func NewModificationHandler(modSvc service.ModificationService) *ModificationHandler {
	return &ModificationHandler{modSvc: modSvc}
}

// Submit 提交修改申请
// POST /api/v1/attendances/:id/modification-requests
func (h *ModificationHandler) Submit(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.SubmitModificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	mr, err := h.modSvc.Submit(c.Request.Context(), actor, id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, mr)
}

// List 修改申请列表
// GET /api/v1/modification-requests
func (h *ModificationHandler) List(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.ModificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	list, total, err := h.modSvc.List(c.Request.Context(), actor, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetByID 修改申请详情（含历史版本）
// GET /api/v1/modification-requests/:id
func (h *ModificationHandler) GetByID(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	mr, err := h.modSvc.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, mr)
}

// Resubmit 驳回后再次提交
// POST /api/v1/modification-requests/:id/resubmit
func (h *ModificationHandler) Resubmit(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.SubmitModificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	mr, err := h.modSvc.Resubmit(c.Request.Context(), actor, id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, mr)
}

// Decide 审批修改申请
// POST /api/v1/modification-requests/:id/decision
func (h *ModificationHandler) Decide(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.DecideModificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	mr, err := h.modSvc.Decide(c.Request.Context(), actor, id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, mr)
}
