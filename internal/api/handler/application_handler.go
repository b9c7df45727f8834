package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"share-worker/backend/internal/dto"
	"share-worker/backend/internal/service"
	"share-worker/backend/pkg/response"
)

// ApplicationHandler 报名与打卡 HTTP 处理器
type ApplicationHandler struct {
	appSvc service.ApplicationService
	attSvc service.AttendanceService
}

// NewApplicationHandler 创建 ApplicationHandler
func NewApplicationHandler(appSvc service.ApplicationService, attSvc service.AttendanceService) *ApplicationHandler {
	return &ApplicationHandler{appSvc: appSvc, attSvc: attSvc}
}

// ListMine 我的报名
// GET /api/v1/applications/me
func (h *ApplicationHandler) ListMine(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.ApplicationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	list, total, err := h.appSvc.ListMine(c.Request.Context(), actor, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetByID 报名详情
// GET /api/v1/applications/:id
func (h *ApplicationHandler) GetByID(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	app, err := h.appSvc.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, app)
}

// Decide 审批报名
// POST /api/v1/applications/:id/decision
func (h *ApplicationHandler) Decide(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.DecideApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	app, err := h.appSvc.Decide(c.Request.Context(), actor, id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, app)
}

// Cancel 取消报名，请求体可省略
// POST /api/v1/applications/:id/cancel
func (h *ApplicationHandler) Cancel(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.CancelApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	app, err := h.appSvc.Cancel(c.Request.Context(), actor, id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, app)
}

// Review 评价
// POST /api/v1/applications/:id/review
func (h *ApplicationHandler) Review(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	app, err := h.appSvc.Review(c.Request.Context(), actor, id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, app)
}

// CheckIn 签到
// POST /api/v1/applications/:id/check-in
func (h *ApplicationHandler) CheckIn(c *gin.Context) {
	h.check(c, h.attSvc.CheckIn)
}

// CheckOut 签退
// POST /api/v1/applications/:id/check-out
func (h *ApplicationHandler) CheckOut(c *gin.Context) {
	h.check(c, h.attSvc.CheckOut)
}

type checkFunc func(ctx context.Context, actor service.ActorContext, applicationID uint64, req *dto.CheckRequest) (*dto.CheckResult, error)

func (h *ApplicationHandler) check(c *gin.Context, fn checkFunc) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	result, err := fn(c.Request.Context(), actor, id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// ClearLockout 解除紧急码锁定
// DELETE /api/v1/applications/:id/emergency-lock?purpose=check_in
func (h *ApplicationHandler) ClearLockout(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.ClearLockoutRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	if err := h.attSvc.ClearLockout(c.Request.Context(), actor, id, req.Purpose); err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, nil)
}
