// Package token 提供了用于生成和验证 JSON Web Tokens (JWT) 的功能。
// 用户登录由外部身份系统完成，本服务只验证其签发的 token。
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTManager 负责管理 JWT 的生成和验证。
type JWTManager struct {
	secretKey      []byte        // secretKey 用于签名和验证 token 的密钥
	accessTokenDur time.Duration // accessTokenDur 定义了 access token 的有效期
}

// CustomClaims 定义了 token 中携带的用户与组织信息。
// OrgShortName 是用户所属组织的简称，写操作据此确定 organizationId。
type CustomClaims struct {
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	OrgShortName string `json:"orgShortName"`
	jwt.RegisteredClaims
}

// NewJWTManager 创建一个新的 JWTManager 实例。
func NewJWTManager(secret string, accessTokenExpireHours int) *JWTManager {
	return &JWTManager{
		secretKey:      []byte(secret),
		accessTokenDur: time.Hour * time.Duration(accessTokenExpireHours),
	}
}

// GenerateToken 根据给定的用户信息生成一个新的 access token，主要供本地调试和测试使用。
func (m *JWTManager) GenerateToken(userID, username, role, orgShortName string) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		UserID:       userID,
		Username:     username,
		Role:         role,
		OrgShortName: orgShortName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTokenDur)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// VerifyToken 验证给定的 token 字符串。
// 如果 token 无效（例如，签名不匹配或已过期），则返回错误。
func (m *JWTManager) VerifyToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 检查签名方法是否为 HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
