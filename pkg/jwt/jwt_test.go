package jwt

import (
	"errors"
	"testing"
	"time"

	"share-worker/backend/config"
)

func newTestManager() *Manager {
	return NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		Issuer:         "share-worker",
		AccessTokenTTL: 15 * time.Minute,
		ScanTokenTTL:   2 * time.Minute,
	})
}

func TestGenerateAndParseAccessToken(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateAccessToken(42, "facility", 7, 0)
	if err != nil {
		t.Fatalf("GenerateAccessToken 失败: %v", err)
	}

	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken 失败: %v", err)
	}

	if claims.UserID != 42 {
		t.Errorf("期望 UserID=42，实际=%d", claims.UserID)
	}
	if claims.Role != "facility" {
		t.Errorf("期望 Role=facility，实际=%s", claims.Role)
	}
	if claims.FacilityID != 7 {
		t.Errorf("期望 FacilityID=7，实际=%d", claims.FacilityID)
	}
	if claims.ActingBy != 0 {
		t.Errorf("期望 ActingBy=0，实际=%d", claims.ActingBy)
	}
	if claims.ID == "" {
		t.Error("JTI 不应为空")
	}
}

func TestParseToken_DelegatedSession(t *testing.T) {
	m := newTestManager()

	token, _ := m.GenerateAccessToken(42, "worker", 0, 1)
	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken 失败: %v", err)
	}
	if claims.ActingBy != 1 {
		t.Errorf("期望 ActingBy=1，实际=%d", claims.ActingBy)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	m := newTestManager()
	other := NewManager(&config.AuthConfig{
		JWTSecret:      "another-secret-key-for-testing-xx",
		AccessTokenTTL: time.Minute,
	})

	token, _ := other.GenerateAccessToken(1, "worker", 0, 0)
	if _, err := m.ParseToken(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("期望 ErrTokenInvalid，实际: %v", err)
	}
}

func TestParseToken_Expired(t *testing.T) {
	m := NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL: -time.Minute,
	})

	token, _ := m.GenerateAccessToken(1, "worker", 0, 0)
	if _, err := m.ParseToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("期望 ErrTokenExpired，实际: %v", err)
	}
}

func TestScanToken_RoundTrip(t *testing.T) {
	m := newTestManager()
	now := time.Now()

	token, jti, exp, err := m.GenerateScanToken(100, 7, "check_in", now)
	if err != nil {
		t.Fatalf("GenerateScanToken 失败: %v", err)
	}
	if !exp.After(now) {
		t.Error("过期时间应晚于签发时间")
	}

	claims, err := m.ParseScanToken(token)
	if err != nil {
		t.Fatalf("ParseScanToken 失败: %v", err)
	}
	if claims.WorkSlotID != 100 || claims.FacilityID != 7 {
		t.Errorf("声明不匹配: %+v", claims)
	}
	if claims.Purpose != "check_in" {
		t.Errorf("期望 Purpose=check_in，实际=%s", claims.Purpose)
	}
	if claims.ID != jti {
		t.Errorf("jti 不一致: %s != %s", claims.ID, jti)
	}
}

func TestScanToken_NotAcceptedAsAccessToken(t *testing.T) {
	m := newTestManager()

	token, _, _, _ := m.GenerateScanToken(100, 7, "check_in", time.Now())
	if _, err := m.ParseToken(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("扫码凭证不应作为访问令牌使用，实际: %v", err)
	}

	access, _ := m.GenerateAccessToken(1, "worker", 0, 0)
	if _, err := m.ParseScanToken(access); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("访问令牌不应作为扫码凭证使用，实际: %v", err)
	}
}

func TestScanToken_Expired(t *testing.T) {
	m := newTestManager()

	token, _, _, _ := m.GenerateScanToken(100, 7, "check_in", time.Now().Add(-10*time.Minute))
	if _, err := m.ParseScanToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("期望 ErrTokenExpired，实际: %v", err)
	}
}
