package model

import "testing"

func TestApplicationStatus_Transitions(t *testing.T) {
	tests := []struct {
		from ApplicationStatus
		to   ApplicationStatus
		want bool
	}{
		{ApplicationApplied, ApplicationMatched, true},
		{ApplicationApplied, ApplicationRejected, true},
		{ApplicationApplied, ApplicationCancelledByWorker, true},
		{ApplicationApplied, ApplicationCheckedIn, false},
		{ApplicationMatched, ApplicationCheckedIn, true},
		{ApplicationMatched, ApplicationCancelledByFacility, true},
		{ApplicationMatched, ApplicationRejected, false},
		{ApplicationCheckedIn, ApplicationCancelledByWorker, false},
		{ApplicationCheckedIn, ApplicationCheckedOut, true},
		{ApplicationCheckedOut, ApplicationCompleted, true},
		{ApplicationCompleted, ApplicationCompletedRated, true},
		{ApplicationRejected, ApplicationMatched, false},
		{ApplicationCancelledByWorker, ApplicationApplied, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s → %s: 期望 %v，实际 %v", tt.from, tt.to, tt.want, got)
		}
	}
}

func TestApplicationStatus_Terminal(t *testing.T) {
	for _, s := range []ApplicationStatus{
		ApplicationRejected, ApplicationCancelledByWorker, ApplicationCancelledByFacility, ApplicationCompletedRated,
	} {
		if !s.IsTerminal() {
			t.Errorf("%s 应为终态", s)
		}
	}
	if ApplicationCompleted.IsTerminal() {
		t.Error("COMPLETED 还可以评价，不是终态")
	}
}

func TestApplicationStatus_Counters(t *testing.T) {
	if ApplicationRejected.IsLive() || ApplicationCancelledByWorker.IsLive() {
		t.Error("驳回与取消不计入 applied_count")
	}
	if !ApplicationCompletedRated.IsLive() || !ApplicationCompletedRated.HoldsMatch() {
		t.Error("完成后仍占用名额")
	}
	if ApplicationApplied.HoldsMatch() {
		t.Error("APPLIED 不占用匹配名额")
	}
}

func TestWorkSlot_Capacity(t *testing.T) {
	slot := &WorkSlot{RecruitmentCount: 2, MatchedCount: 1}
	if slot.IsFull() || slot.RemainingSeats() != 1 {
		t.Errorf("期望未满且剩余 1，实际 full=%v remaining=%d", slot.IsFull(), slot.RemainingSeats())
	}
	slot.MatchedCount = 2
	if !slot.IsFull() || slot.RemainingSeats() != 0 {
		t.Error("期望已满")
	}
}
