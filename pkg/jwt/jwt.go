package jwt

import (
	"errors"
	"sync"
	"time"

	"saaskit/pkg/config"
	apperrors "saaskit/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeRefresh 刷新令牌的类型标记，访问令牌不携带type声明
const TokenTypeRefresh = "refresh"

// Claims JWT声明
type Claims struct {
	UserID    uint     `json:"user_id"`
	TenantID  uint     `json:"tenant_id"` // 用户所属租户
	Roles     []string `json:"roles,omitempty"`
	TokenType string   `json:"type,omitempty"` // 刷新令牌为 "refresh"
	jwt.RegisteredClaims
}

// JWTManager JWT管理器
type JWTManager struct {
	secretKey       string
	tokenDuration   time.Duration
	refreshDuration time.Duration
}

// NewJWTManager 创建JWT管理器
func NewJWTManager(secretKey string, tokenDuration, refreshDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:       secretKey,
		tokenDuration:   tokenDuration,
		refreshDuration: refreshDuration,
	}
}

// GenerateAccessToken 生成访问令牌
// 声明只签名不加密，不得携带任何机密数据
func (manager *JWTManager) GenerateAccessToken(email string, userID, tenantID uint, roles []string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		TenantID: tenantID,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(manager.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(manager.secretKey))
}

// GenerateRefreshToken 生成刷新令牌（7天有效期，带type标记，不可当作访问令牌使用）
func (manager *JWTManager) GenerateRefreshToken(email string, userID, tenantID uint) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		TenantID:  tenantID,
		TokenType: TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(manager.refreshDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(manager.secretKey))
}

// VerifyToken 验证JWT令牌
// 过期返回 ErrTokenExpired；签名错误和结构错误统一返回 ErrTokenInvalid
func (manager *JWTManager) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// 验证签名方法
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("意外的签名方法")
			}
			return []byte(manager.secretKey), nil
		},
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, apperrors.ErrTokenInvalid
	}

	return claims, nil
}

// VerifyAccessToken 验证访问令牌，拒绝刷新令牌冒用
func (manager *JWTManager) VerifyAccessToken(tokenString string) (*Claims, error) {
	claims, err := manager.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType == TokenTypeRefresh {
		return nil, apperrors.ErrTokenInvalid
	}
	return claims, nil
}

// IsExpired 判断令牌是否已过期
func (manager *JWTManager) IsExpired(tokenString string) bool {
	_, err := manager.VerifyToken(tokenString)
	return errors.Is(err, apperrors.ErrTokenExpired)
}

// GetTokenDuration 获取访问令牌有效期
func (manager *JWTManager) GetTokenDuration() time.Duration {
	return manager.tokenDuration
}

// GetRefreshDuration 获取刷新令牌有效期
func (manager *JWTManager) GetRefreshDuration() time.Duration {
	return manager.refreshDuration
}

// 单例实现
var (
	defaultManager *JWTManager
	once           sync.Once
)

// GetJWTManager 获取全局JWT管理器实例
func GetJWTManager() *JWTManager {
	once.Do(func() {
		cfg := config.GetConfig()
		tokenDuration, err := time.ParseDuration(cfg.JWT.TokenDuration)
		if err != nil {
			tokenDuration = 30 * time.Minute
		}
		refreshDuration, err := time.ParseDuration(cfg.JWT.RefreshDuration)
		if err != nil {
			refreshDuration = 7 * 24 * time.Hour
		}
		defaultManager = NewJWTManager(cfg.JWT.SecretKey, tokenDuration, refreshDuration)
	})
	return defaultManager
}
