package handler

import "share-worker/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Slot         *SlotHandler
	Application  *ApplicationHandler
	Attendance   *AttendanceHandler
	Modification *ModificationHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Slot:         NewSlotHandler(svc.Slot, svc.Application),
		Application:  NewApplicationHandler(svc.Application, svc.Attendance),
		Attendance:   NewAttendanceHandler(svc.Attendance),
		Modification: NewModificationHandler(svc.Modification),
	}
}
