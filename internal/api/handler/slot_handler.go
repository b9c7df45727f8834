package handler

import (
	"github.com/gin-gonic/gin"

	"share-worker/backend/internal/dto"
	"share-worker/backend/internal/service"
	"share-worker/backend/pkg/response"
)

// SlotHandler 招聘与工作槽位 HTTP 处理器
type SlotHandler struct {
	slotSvc service.SlotService
	appSvc  service.ApplicationService
}

// NewSlotHandler 创建 SlotHandler
func NewSlotHandler(slotSvc service.SlotService, appSvc service.ApplicationService) *SlotHandler {
	return &SlotHandler{slotSvc: slotSvc, appSvc: appSvc}
}

// PublishJob 发布招聘信息并生成槽位
// POST /api/v1/jobs
func (h *SlotHandler) PublishJob(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.PublishJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	result, err := h.slotSvc.PublishJob(c.Request.Context(), actor, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, result)
}

// GetJob 获取招聘信息
// GET /api/v1/jobs/:id
func (h *SlotHandler) GetJob(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	job, err := h.slotSvc.GetJob(c.Request.Context(), actor, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, job)
}

// ListSlots 槽位列表
// GET /api/v1/slots
func (h *SlotHandler) ListSlots(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.SlotListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	list, total, err := h.slotSvc.ListSlots(c.Request.Context(), actor, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetSlot 槽位详情
// GET /api/v1/slots/:id
func (h *SlotHandler) GetSlot(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	slot, err := h.slotSvc.GetSlot(c.Request.Context(), actor, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, slot)
}

// RetireSlot 停止招募
// POST /api/v1/slots/:id/retire
func (h *SlotHandler) RetireSlot(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	slot, err := h.slotSvc.RetireSlot(c.Request.Context(), actor, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, slot)
}

// RotateEmergencyCode 重新生成紧急码，明文只在此返回一次
// POST /api/v1/slots/:id/emergency-code
func (h *SlotHandler) RotateEmergencyCode(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	code, err := h.slotSvc.RotateEmergencyCode(c.Request.Context(), actor, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, code)
}

// IssueScanToken 签发打卡二维码凭证
// POST /api/v1/slots/:id/scan-tokens
func (h *SlotHandler) IssueScanToken(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.ScanTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	token, err := h.slotSvc.IssueScanToken(c.Request.Context(), actor, id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, token)
}

// Apply 报名槽位
// POST /api/v1/slots/:id/applications
func (h *SlotHandler) Apply(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	app, err := h.appSvc.Apply(c.Request.Context(), actor, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, app)
}

// ListApplications 槽位的报名列表
// GET /api/v1/slots/:id/applications
func (h *SlotHandler) ListApplications(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.ApplicationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	list, total, err := h.appSvc.ListBySlot(c.Request.Context(), actor, id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}
