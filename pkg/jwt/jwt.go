package jwt

import (
	"errors"
	"strconv"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"share-worker/backend/config"
)

var (
	ErrTokenExpired = errors.New("token 已过期")
	ErrTokenInvalid = errors.New("token 无效")
)

// Token 类型
const (
	TokenTypeAccess = "access"
	TokenTypeScan   = "scan"
)

// Claims 访问令牌声明（由认证服务签发）
type Claims struct {
	UserID     uint64 `json:"user_id"`
	Role       string `json:"role"`                  // worker | facility | admin
	FacilityID uint64 `json:"facility_id,omitempty"` // facility 角色所属设施
	ActingBy   uint64 `json:"acting_by,omitempty"`   // 代理登录时的操作者（管理员）ID
	TokenType  string `json:"token_type"`
	jwtv5.RegisteredClaims
}

// ScanClaims 设施端展示的打卡二维码声明
type ScanClaims struct {
	WorkSlotID uint64 `json:"work_slot_id"`
	FacilityID uint64 `json:"facility_id"`
	Purpose    string `json:"purpose"` // check_in | check_out
	TokenType  string `json:"token_type"`
	jwtv5.RegisteredClaims
}

// Manager JWT 管理器
type Manager struct {
	secret         []byte
	issuer         string
	accessTokenTTL time.Duration
	scanTokenTTL   time.Duration
}

// NewManager 创建 JWT 管理器
func NewManager(cfg *config.AuthConfig) *Manager {
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "share-worker"
	}
	return &Manager{
		secret:         []byte(cfg.JWTSecret),
		issuer:         issuer,
		accessTokenTTL: cfg.AccessTokenTTL,
		scanTokenTTL:   cfg.ScanTokenTTL,
	}
}

// ScanTokenTTL 返回扫码凭证有效期
func (m *Manager) ScanTokenTTL() time.Duration { return m.scanTokenTTL }

// GenerateAccessToken 生成 Access Token
// 正式环境由认证服务签发，此处用于联调与测试
func (m *Manager) GenerateAccessToken(userID uint64, role string, facilityID, actingBy uint64) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:     userID,
		Role:       role,
		FacilityID: facilityID,
		ActingBy:   actingBy,
		TokenType:  TokenTypeAccess,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(m.accessTokenTTL)),
			Issuer:    m.issuer,
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken 解析并验证 Access Token
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := m.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// GenerateScanToken 生成一次性打卡凭证，返回 token、jti 与过期时间
func (m *Manager) GenerateScanToken(workSlotID, facilityID uint64, purpose string, now time.Time) (string, string, time.Time, error) {
	jti := uuid.New().String()
	expiresAt := now.Add(m.scanTokenTTL)
	claims := ScanClaims{
		WorkSlotID: workSlotID,
		FacilityID: facilityID,
		Purpose:    purpose,
		TokenType:  TokenTypeScan,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(expiresAt),
			Issuer:    m.issuer,
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return signed, jti, expiresAt, nil
}

// ParseScanToken 解析并验证打卡凭证
func (m *Manager) ParseScanToken(tokenString string) (*ScanClaims, error) {
	claims := &ScanClaims{}
	if err := m.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeScan || claims.ID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (m *Manager) parse(tokenString string, claims jwtv5.Claims) error {
	token, err := jwtv5.ParseWithClaims(tokenString, claims, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	}, jwtv5.WithIssuer(m.issuer))

	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}
