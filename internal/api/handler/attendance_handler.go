package handler

import (
	"github.com/gin-gonic/gin"

	"share-worker/backend/internal/service"
	"share-worker/backend/pkg/response"
)

// AttendanceHandler 出勤记录 HTTP 处理器
type AttendanceHandler struct {
	attSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attSvc: attSvc}
}

// GetByID 出勤详情
// GET /api/v1/attendances/:id
func (h *AttendanceHandler) GetByID(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	att, err := h.attSvc.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, att)
}
