package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrCounterGuard 槽位计数更新会破坏 0 ≤ matched ≤ applied、matched ≤ capacity，未写入任何行
var ErrCounterGuard = errors.New("槽位计数约束不满足")

// Kind 业务错误分类，调用方据此决定重试策略
type Kind string

const (
	KindCapacity   Kind = "capacity"   // 名额已满，客户端换槽位重试
	KindState      Kind = "state"      // 非法状态迁移
	KindProof      Kind = "proof"      // 凭证无效，可在锁定阈值内重试
	KindLockout    Kind = "lockout"    // 会话已锁定，需设施人员解锁
	KindConflict   Kind = "conflict"   // 重复的进行中记录
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindForbidden  Kind = "forbidden"
	KindInternal   Kind = "internal"
)

// AppError 带分类与错误码的业务错误
type AppError struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

// Is 按错误码比较，使 errors.Is(err, ErrSlotFull) 对派生错误同样成立
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New 创建业务错误
func New(kind Kind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

// WithMessage 基于哨兵错误派生一条新消息，错误码不变
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{Kind: e.Kind, Code: e.Code, Message: message}
}

// KindOf 返回错误分类，非 AppError 一律视为内部错误
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// CodeOf 返回错误码，非 AppError 返回 INTERNAL
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "INTERNAL"
}

// ── 槽位 ──

var (
	ErrSlotNotFound     = New(KindNotFound, "SLOT_NOT_FOUND", "工作槽位不存在")
	ErrSlotFull         = New(KindCapacity, "SLOT_FULL", "该槽位名额已满")
	ErrDeadlinePassed   = New(KindState, "DEADLINE_PASSED", "报名已截止")
	ErrSlotRetired      = New(KindState, "SLOT_RETIRED", "该槽位已停止招募")
	ErrSlotNotVisible   = New(KindState, "SLOT_NOT_VISIBLE", "该槽位不在公开期内")
	ErrJobNotFound      = New(KindNotFound, "JOB_NOT_FOUND", "招聘信息不存在")
	ErrFacilityNotFound = New(KindNotFound, "FACILITY_NOT_FOUND", "设施不存在")
)

// ── 报名 ──

var (
	ErrApplicationNotFound = New(KindNotFound, "APPLICATION_NOT_FOUND", "报名记录不存在")
	ErrApplicationExists   = New(KindConflict, "APPLICATION_EXISTS", "已报名该槽位")
	ErrIllegalTransition   = New(KindState, "ILLEGAL_TRANSITION", "当前状态不允许该操作")
	ErrAlreadyReviewed     = New(KindConflict, "ALREADY_REVIEWED", "已评价")
)

// ── 打卡 ──

var (
	ErrNotScheduled        = New(KindState, "NOT_SCHEDULED", "没有可打卡的排班")
	ErrNotCheckedIn        = New(KindState, "NOT_CHECKED_IN", "尚未签到")
	ErrCheckInWindowClosed = New(KindState, "CHECK_IN_WINDOW_CLOSED", "当前不在可签到时间内")
	ErrProofInvalid        = New(KindProof, "PROOF_INVALID", "打卡凭证无效")
	ErrLockedOut           = New(KindLockout, "LOCKED_OUT", "紧急码输入错误次数过多，请联系设施工作人员解锁")
	ErrAttendanceNotFound  = New(KindNotFound, "ATTENDANCE_NOT_FOUND", "出勤记录不存在")
)

// ── 勤务修改申请 ──

var (
	ErrRequestAlreadyOpen = New(KindConflict, "REQUEST_ALREADY_OPEN", "已有处理中的修改申请")
	ErrRequestNotFound    = New(KindNotFound, "REQUEST_NOT_FOUND", "修改申请不存在")
	ErrNoChange           = New(KindValidation, "NO_CHANGE", "申请内容与当前记录一致")
	ErrCommentRequired    = New(KindValidation, "COMMENT_REQUIRED", "驳回时必须填写理由")
	ErrNotCheckedOut      = New(KindState, "NOT_CHECKED_OUT", "尚未签退，无法申请修改")
)

// ── 通用 ──

var (
	ErrInvalidInput = New(KindValidation, "INVALID_INPUT", "参数无效")
	ErrForbidden    = New(KindForbidden, "FORBIDDEN", "无权限执行该操作")
)
