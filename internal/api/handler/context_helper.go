package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"share-worker/backend/internal/api/middleware"
	"share-worker/backend/internal/service"
	"share-worker/backend/pkg/response"
)

// MustGetActor 从 Gin 上下文中构造本次调用的操作者。
// 如果 JWT 中间件未正确注入身份信息，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetActor(c *gin.Context) (service.ActorContext, bool) {
	uid, _ := c.Get(middleware.CtxUserID)
	userID, ok := uid.(uint64)
	if !ok || userID == 0 {
		response.Unauthorized(c, 10002, "未认证")
		return service.ActorContext{}, false
	}

	actor := service.ActorContext{ID: userID}
	switch c.GetString(middleware.CtxRole) {
	case middleware.RoleWorker:
		actor.Kind = service.ActorWorker
	case middleware.RoleFacility:
		actor.Kind = service.ActorFacility
		if v, ok := c.Get(middleware.CtxFacilityID); ok {
			actor.FacilityID, _ = v.(uint64)
		}
	default:
		response.Forbidden(c, 10003, "无权限访问")
		return service.ActorContext{}, false
	}

	if v, ok := c.Get(middleware.CtxActingBy); ok {
		if by, _ := v.(uint64); by != 0 {
			actor.Delegated = true
			actor.DelegatorID = by
		}
	}
	return actor, true
}

// parseID 解析路径参数中的数字 ID，非法时写入 400 响应
func parseID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, 13001, "ID 格式无效")
		return 0, false
	}
	return id, true
}
