package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"share-worker/backend/internal/dto"
	"share-worker/backend/internal/model"
	pkgerrors "share-worker/backend/pkg/errors"
)

// ── 测试辅助 ──

func codeRequest(code string) *dto.CheckRequest {
	return &dto.CheckRequest{Method: model.ProofEmergencyCode, Code: code}
}

func scanRequest(token string) *dto.CheckRequest {
	return &dto.CheckRequest{Method: model.ProofScan, Token: token}
}

func (e *shiftTestEnv) issueScanToken(t *testing.T, slotID uint64, purpose string) string {
	t.Helper()
	resp, err := e.slotSvc.IssueScanToken(context.Background(), e.facilityActor(), slotID, &dto.ScanTokenRequest{Purpose: purpose})
	if err != nil {
		t.Fatalf("签发打卡凭证失败: %v", err)
	}
	return resp.Token
}

// checkedOut 走完整流程：08:30 紧急码签到，结束 5 分钟后签退
func (e *shiftTestEnv) checkedOut(t *testing.T, slot *model.WorkSlot, workerID uint64) (*model.Application, *dto.AttendanceResponse) {
	t.Helper()
	ctx := context.Background()
	app := e.seedApplication(t, slot, workerID, model.ApplicationMatched)

	if _, err := e.attSvc.CheckIn(ctx, workerActor(workerID), app.ID, codeRequest(testEmergencyCode)); err != nil {
		t.Fatalf("签到失败: %v", err)
	}
	e.now = slot.EndsAt.Add(5 * time.Minute)
	res, err := e.attSvc.CheckOut(ctx, workerActor(workerID), app.ID, codeRequest(testEmergencyCode))
	if err != nil {
		t.Fatalf("签退失败: %v", err)
	}
	return app, &res.Attendance
}

// ── CheckIn ──

func TestCheckIn_EmergencyCode(t *testing.T) {
	env := setupShiftTest(t)
	slot := env.seedSlot(t, 1, true)
	app := env.seedApplication(t, slot, 11, model.ApplicationMatched)

	res, err := env.attSvc.CheckIn(context.Background(), workerActor(11), app.ID, codeRequest(testEmergencyCode))
	if err != nil {
		t.Fatalf("签到失败: %v", err)
	}
	if res.Outcome != dto.OutcomeCheckedIn || res.ApplicationStatus != string(model.ApplicationCheckedIn) {
		t.Errorf("期望 CHECKED_IN，实际 %s/%s", res.Outcome, res.ApplicationStatus)
	}
	if res.Attendance.CheckInMethod != model.ProofEmergencyCode {
		t.Errorf("期望打卡方式 emergency_code，实际 %s", res.Attendance.CheckInMethod)
	}
	if res.Attendance.WageAmount != 0 || res.Attendance.EffectiveStartAt != nil {
		t.Error("签到时不应产生结算值")
	}
}

func TestCheckIn_Idempotent(t *testing.T) {
	env := setupShiftTest(t)
	slot := env.seedSlot(t, 1, true)
	app := env.seedApplication(t, slot, 11, model.ApplicationMatched)
	ctx := context.Background()

	first, err := env.attSvc.CheckIn(ctx, workerActor(11), app.ID, codeRequest(testEmergencyCode))
	if err != nil {
		t.Fatalf("签到失败: %v", err)
	}

	env.now = env.now.Add(10 * time.Minute)
	// 重复签到不再校验凭证
	second, err := env.attSvc.CheckIn(ctx, workerActor(11), app.ID, codeRequest("0000"))
	if err != nil {
		t.Fatalf("重复签到不应报错: %v", err)
	}
	if second.Outcome != dto.OutcomeAlreadyCheckedIn {
		t.Errorf("期望 ALREADY_CHECKED_IN，实际 %s", second.Outcome)
	}
	if second.Attendance.ID != first.Attendance.ID || second.Attendance.CheckInAt != first.Attendance.CheckInAt {
		t.Error("重复签到应返回原出勤记录")
	}
	if n := len(env.store.attendances); n != 1 {
		t.Errorf("期望 1 条出勤记录，实际=%d", n)
	}
}

func TestCheckIn_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		status  model.ApplicationStatus
		shift   func(slot *model.WorkSlot) time.Time
		actor   ActorContext
		wantErr error
	}{
		{
			name:    "未匹配",
			status:  model.ApplicationApplied,
			actor:   workerActor(11),
			wantErr: pkgerrors.ErrNotScheduled,
		},
		{
			name:    "已取消",
			status:  model.ApplicationCancelledByFacility,
			actor:   workerActor(11),
			wantErr: pkgerrors.ErrNotScheduled,
		},
		{
			name:    "开放前",
			status:  model.ApplicationMatched,
			shift:   func(slot *model.WorkSlot) time.Time { return slot.StartsAt.Add(-61 * time.Minute) },
			actor:   workerActor(11),
			wantErr: pkgerrors.ErrCheckInWindowClosed,
		},
		{
			name:    "结束后",
			status:  model.ApplicationMatched,
			shift:   func(slot *model.WorkSlot) time.Time { return slot.EndsAt },
			actor:   workerActor(11),
			wantErr: pkgerrors.ErrCheckInWindowClosed,
		},
		{
			name:    "代理登录",
			status:  model.ApplicationMatched,
			actor:   ActorContext{Kind: ActorWorker, ID: 11, Delegated: true, DelegatorID: 1},
			wantErr: pkgerrors.ErrForbidden,
		},
		{
			name:    "他人报名",
			status:  model.ApplicationMatched,
			actor:   workerActor(12),
			wantErr: pkgerrors.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupShiftTest(t)
			slot := env.seedSlot(t, 1, true)
			app := env.seedApplication(t, slot, 11, tt.status)
			if tt.shift != nil {
				env.now = tt.shift(slot)
			}

			_, err := env.attSvc.CheckIn(context.Background(), tt.actor, app.ID, codeRequest(testEmergencyCode))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("期望 %v，实际: %v", tt.wantErr, err)
			}
			if got := env.applicationStatus(t, app.ID); got != tt.status {
				t.Errorf("状态不应改变，实际 %s", got)
			}
		})
	}
}

// ── 扫码 ──

func TestCheckIn_ScanToken(t *testing.T) {
	env := setupShiftTest(t)
	env.now = time.Now()
	slot := env.seedSlot(t, 2, true)
	app := env.seedApplication(t, slot, 11, model.ApplicationMatched)
	token := env.issueScanToken(t, slot.ID, model.PurposeCheckIn)

	res, err := env.attSvc.CheckIn(context.Background(), workerActor(11), app.ID, scanRequest(token))
	if err != nil {
		t.Fatalf("扫码签到失败: %v", err)
	}
	if res.Attendance.CheckInMethod != model.ProofScan {
		t.Errorf("期望打卡方式 scan，实际 %s", res.Attendance.CheckInMethod)
	}
}

func TestCheckIn_ScanTokenSingleUse(t *testing.T) {
	env := setupShiftTest(t)
	env.now = time.Now()
	slot := env.seedSlot(t, 2, true)
	first := env.seedApplication(t, slot, 11, model.ApplicationMatched)
	second := env.seedApplication(t, slot, 12, model.ApplicationMatched)
	token := env.issueScanToken(t, slot.ID, model.PurposeCheckIn)
	ctx := context.Background()

	if _, err := env.attSvc.CheckIn(ctx, workerActor(11), first.ID, scanRequest(token)); err != nil {
		t.Fatalf("首次扫码失败: %v", err)
	}
	_, err := env.attSvc.CheckIn(ctx, workerActor(12), second.ID, scanRequest(token))
	if !errors.Is(err, pkgerrors.ErrProofInvalid) {
		t.Fatalf("他人复用二维码期望 ErrProofInvalid，实际: %v", err)
	}
	if got := env.applicationStatus(t, second.ID); got != model.ApplicationMatched {
		t.Errorf("状态不应改变，实际 %s", got)
	}
}

func TestCheckIn_ScanTokenReplayBySameApplication(t *testing.T) {
	env := setupShiftTest(t)
	env.now = time.Now()
	slot := env.seedSlot(t, 1, true)
	app := env.seedApplication(t, slot, 11, model.ApplicationMatched)
	token := env.issueScanToken(t, slot.ID, model.PurposeCheckIn)
	ctx := context.Background()

	claims, err := env.jwtMgr.ParseScanToken(token)
	if err != nil {
		t.Fatalf("解析二维码失败: %v", err)
	}
	// 模拟上次请求已占用凭证但事务未提交
	if _, err := env.ledger.Claim(ctx, claims.ID, scanOwner(app.ID), time.Minute); err != nil {
		t.Fatalf("占用凭证失败: %v", err)
	}

	if _, err := env.attSvc.CheckIn(ctx, workerActor(11), app.ID, scanRequest(token)); err != nil {
		t.Fatalf("同一报名重放应成功: %v", err)
	}
}

func TestCheckIn_ScanTokenMismatch(t *testing.T) {
	env := setupShiftTest(t)
	env.now = time.Now()
	slot := env.seedSlot(t, 1, true)
	other := env.seedSlot(t, 1, true)
	app := env.seedApplication(t, slot, 11, model.ApplicationMatched)
	ctx := context.Background()

	tokens := map[string]string{
		"签退用二维码": env.issueScanToken(t, slot.ID, model.PurposeCheckOut),
		"其他槽位":   env.issueScanToken(t, other.ID, model.PurposeCheckIn),
		"伪造":     "not-a-token",
	}
	for name, token := range tokens {
		_, err := env.attSvc.CheckIn(ctx, workerActor(11), app.ID, scanRequest(token))
		if !errors.Is(err, pkgerrors.ErrProofInvalid) {
			t.Errorf("%s: 期望 ErrProofInvalid，实际: %v", name, err)
		}
	}
}

// ── 紧急码锁定 ──

func TestCheckIn_EmergencyCodeLockout(t *testing.T) {
	env := setupShiftTest(t)
	slot := env.seedSlot(t, 1, true)
	app := env.seedApplication(t, slot, 11, model.ApplicationMatched)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := env.attSvc.CheckIn(ctx, workerActor(11), app.ID, codeRequest("0000"))
		if !errors.Is(err, pkgerrors.ErrProofInvalid) {
			t.Fatalf("第 %d 次错误期望 ErrProofInvalid，实际: %v", i, err)
		}
	}

	// 第 6 次正确码也被拒绝
	_, err := env.attSvc.CheckIn(ctx, workerActor(11), app.ID, codeRequest(testEmergencyCode))
	if !errors.Is(err, pkgerrors.ErrLockedOut) {
		t.Fatalf("锁定后期望 ErrLockedOut，实际: %v", err)
	}
	if got := env.applicationStatus(t, app.ID); got != model.ApplicationMatched {
		t.Errorf("锁定期间状态不应改变，实际 %s", got)
	}

	if err := env.attSvc.ClearLockout(ctx, env.facilityActor(), app.ID, model.PurposeCheckIn); err != nil {
		t.Fatalf("解除锁定失败: %v", err)
	}
	if _, err := env.attSvc.CheckIn(ctx, workerActor(11), app.ID, codeRequest(testEmergencyCode)); err != nil {
		t.Fatalf("解除锁定后签到失败: %v", err)
	}
}

func TestCheckIn_SuccessResetsFailures(t *testing.T) {
	env := setupShiftTest(t)
	slot := env.seedSlot(t, 1, true)
	app := env.seedApplication(t, slot, 11, model.ApplicationMatched)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := env.attSvc.CheckIn(ctx, workerActor(11), app.ID, codeRequest("9999")); !errors.Is(err, pkgerrors.ErrProofInvalid) {
			t.Fatalf("期望 ErrProofInvalid，实际: %v", err)
		}
	}
	if _, err := env.attSvc.CheckIn(ctx, workerActor(11), app.ID, codeRequest(testEmergencyCode)); err != nil {
		t.Fatalf("第 5 次输入正确码应成功: %v", err)
	}

	failures, locked, err := env.codes.store.State(ctx, EmergencySession(app.ID, model.PurposeCheckIn))
	if err != nil {
		t.Fatalf("读取失败计数失败: %v", err)
	}
	if failures != 0 || locked {
		t.Errorf("成功后计数应清零，实际 failures=%d locked=%v", failures, locked)
	}
}

func TestCheckIn_LockoutDoesNotAffectCheckOutSession(t *testing.T) {
	env := setupShiftTest(t)
	slot := env.seedSlot(t, 1, true)
	app := env.seedApplication(t, slot, 11, model.ApplicationMatched)
	ctx := context.Background()

	if _, err := env.attSvc.CheckIn(ctx, workerActor(11), app.ID, codeRequest(testEmergencyCode)); err != nil {
		t.Fatalf("签到失败: %v", err)
	}
	for i := 0; i < 5; i++ {
		_, _ = env.attSvc.CheckOut(ctx, workerActor(11), app.ID, codeRequest("0000"))
	}
	_, err := env.attSvc.CheckOut(ctx, workerActor(11), app.ID, codeRequest(testEmergencyCode))
	if !errors.Is(err, pkgerrors.ErrLockedOut) {
		t.Fatalf("签退会话应被锁定，实际: %v", err)
	}
	_, locked, _ := env.codes.store.State(ctx, EmergencySession(app.ID, model.PurposeCheckIn))
	if locked {
		t.Error("签到会话不应受签退失败影响")
	}
}

func TestClearLockout_OtherFacilityForbidden(t *testing.T) {
	env := setupShiftTest(t)
	slot := env.seedSlot(t, 1, true)
	app := env.seedApplication(t, slot, 11, model.ApplicationMatched)

	other := ActorContext{Kind: ActorFacility, ID: 901, FacilityID: env.facilityID + 100}
	err := env.attSvc.ClearLockout(context.Background(), other, app.ID, model.PurposeCheckIn)
	if !errors.Is(err, pkgerrors.ErrForbidden) {
		t.Fatalf("期望 ErrForbidden，实际: %v", err)
	}
}

// ── CheckOut ──

func TestCheckOut_ComputesWageFromScheduledWindow(t *testing.T) {
	env := setupShiftTest(t)
	slot := env.seedSlot(t, 1, true)
	app, att := env.checkedOut(t, slot, 11)

	// 提前签到、延后签退均按预定时段结算：(540 - 60) 分钟 × 1200 / 60 + 500
	if att.WageAmount != 10100 {
		t.Errorf("期望工资 10100，实际=%d", att.WageAmount)
	}
	if att.EffectiveStartAt == nil || *att.EffectiveStartAt != fmtTime(slot.StartsAt) {
		t.Errorf("实际开始时间应为预定开始，实际 %v", att.EffectiveStartAt)
	}
	if att.EffectiveEndAt == nil || *att.EffectiveEndAt != fmtTime(slot.EndsAt) {
		t.Errorf("实际结束时间应为预定结束，实际 %v", att.EffectiveEndAt)
	}
	if got := env.applicationStatus(t, app.ID); got != model.ApplicationCompleted {
		t.Errorf("签退后应为 COMPLETED，实际 %s", got)
	}

	env.events.Wait()
	names := env.publisher.names()
	if len(names) == 0 || names[len(names)-1] != EventAttendanceCompleted {
		t.Errorf("期望发布 %s，实际 %v", EventAttendanceCompleted, names)
	}
}

func TestCheckOut_LateArrivalEarlyLeave(t *testing.T) {
	env := setupShiftTest(t)
	slot := env.seedSlot(t, 1, true)
	app := env.seedApplication(t, slot, 11, model.ApplicationMatched)
	ctx := context.Background()

	env.now = slot.StartsAt.Add(10*time.Minute + 30*time.Second)
	if _, err := env.attSvc.CheckIn(ctx, workerActor(11), app.ID, codeRequest(testEmergencyCode)); err != nil {
		t.Fatalf("签到失败: %v", err)
	}
	env.now = slot.EndsAt.Add(-29*time.Minute - 15*time.Second)
	res, err := env.attSvc.CheckOut(ctx, workerActor(11), app.ID, codeRequest(testEmergencyCode))
	if err != nil {
		t.Fatalf("签退失败: %v", err)
	}

	// 签到向上取整到 +11 分钟，签退向下取整到 -30 分钟：(540 - 41 - 60) × 20 + 500
	if res.Attendance.WageAmount != 9280 {
		t.Errorf("期望工资 9280，实际=%d", res.Attendance.WageAmount)
	}
	if *res.Attendance.EffectiveStartAt != fmtTime(slot.StartsAt.Add(11*time.Minute)) {
		t.Errorf("实际开始时间错误: %s", *res.Attendance.EffectiveStartAt)
	}
}

func TestCheckOut_Idempotent(t *testing.T) {
	env := setupShiftTest(t)
	slot := env.seedSlot(t, 1, true)
	app, att := env.checkedOut(t, slot, 11)

	env.now = env.now.Add(time.Hour)
	res, err := env.attSvc.CheckOut(context.Background(), workerActor(11), app.ID, codeRequest("0000"))
	if err != nil {
		t.Fatalf("重复签退不应报错: %v", err)
	}
	if res.Outcome != dto.OutcomeAlreadyCheckedOut {
		t.Errorf("期望 ALREADY_CHECKED_OUT，实际 %s", res.Outcome)
	}
	if res.Attendance.WageAmount != att.WageAmount || *res.Attendance.CheckOutAt != *att.CheckOutAt {
		t.Error("重复签退不应修改出勤记录")
	}
}

func TestCheckOut_NotCheckedIn(t *testing.T) {
	env := setupShiftTest(t)
	slot := env.seedSlot(t, 1, true)
	app := env.seedApplication(t, slot, 11, model.ApplicationMatched)

	_, err := env.attSvc.CheckOut(context.Background(), workerActor(11), app.ID, codeRequest(testEmergencyCode))
	if !errors.Is(err, pkgerrors.ErrNotCheckedIn) {
		t.Fatalf("期望 ErrNotCheckedIn，实际: %v", err)
	}
}

func TestAttendanceGetByID_Visibility(t *testing.T) {
	env := setupShiftTest(t)
	slot := env.seedSlot(t, 1, true)
	_, att := env.checkedOut(t, slot, 11)
	ctx := context.Background()

	if _, err := env.attSvc.GetByID(ctx, env.facilityActor(), att.ID); err != nil {
		t.Errorf("设施应可查看: %v", err)
	}
	if _, err := env.attSvc.GetByID(ctx, workerActor(12), att.ID); !errors.Is(err, pkgerrors.ErrForbidden) {
		t.Errorf("他人查看期望 ErrForbidden，实际: %v", err)
	}
}
