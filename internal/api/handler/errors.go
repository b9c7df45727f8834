package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "share-worker/backend/pkg/errors"
	"share-worker/backend/pkg/response"
)

// 业务错误码，details 中附带字符串错误码
const (
	codeCapacity   = 20001
	codeState      = 20002
	codeProof      = 20003
	codeLockout    = 20004
	codeConflict   = 20005
	codeNotFound   = 20006
	codeValidation = 20007
	codeForbidden  = 10003
)

// handleServiceError 将业务错误映射为 HTTP 状态与错误码
func handleServiceError(c *gin.Context, err error) {
	var appErr *pkgerrors.AppError
	if !errors.As(err, &appErr) || appErr.Kind == pkgerrors.KindInternal {
		_ = c.Error(err)
		response.InternalError(c)
		return
	}

	status, code := http.StatusInternalServerError, 50000
	switch appErr.Kind {
	case pkgerrors.KindCapacity:
		status, code = http.StatusConflict, codeCapacity
	case pkgerrors.KindState:
		status, code = http.StatusConflict, codeState
	case pkgerrors.KindProof:
		status, code = http.StatusUnprocessableEntity, codeProof
	case pkgerrors.KindLockout:
		status, code = http.StatusLocked, codeLockout
	case pkgerrors.KindConflict:
		status, code = http.StatusConflict, codeConflict
	case pkgerrors.KindNotFound:
		status, code = http.StatusNotFound, codeNotFound
	case pkgerrors.KindValidation:
		status, code = http.StatusBadRequest, codeValidation
	case pkgerrors.KindForbidden:
		status, code = http.StatusForbidden, codeForbidden
	}
	response.ErrorWithDetails(c, status, code, appErr.Message, appErr.Code)
}
