package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_IsByCode(t *testing.T) {
	derived := ErrProofInvalid.WithMessage("紧急码错误，剩余 3 次")
	if !errors.Is(derived, ErrProofInvalid) {
		t.Error("派生错误应与哨兵错误匹配")
	}
	if errors.Is(derived, ErrLockedOut) {
		t.Error("不同错误码不应匹配")
	}

	wrapped := fmt.Errorf("check-in: %w", ErrSlotFull)
	if !errors.Is(wrapped, ErrSlotFull) {
		t.Error("包装后仍应匹配")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{ErrSlotFull, KindCapacity},
		{ErrIllegalTransition, KindState},
		{ErrProofInvalid, KindProof},
		{ErrLockedOut, KindLockout},
		{ErrRequestAlreadyOpen, KindConflict},
		{fmt.Errorf("wrap: %w", ErrForbidden), KindForbidden},
		{errors.New("db down"), KindInternal},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %s，期望 %s", tt.err, got, tt.want)
		}
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(ErrDeadlinePassed); got != "DEADLINE_PASSED" {
		t.Errorf("期望 DEADLINE_PASSED，实际=%s", got)
	}
	if got := CodeOf(errors.New("x")); got != "INTERNAL" {
		t.Errorf("期望 INTERNAL，实际=%s", got)
	}
}
