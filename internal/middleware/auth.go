// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"valuation-form-go/pkg/log"
	"valuation-form-go/pkg/token"
)

// 写入 gin.Context 的键。
const (
	ContextKeyClaims       = "claims"
	ContextKeyOrganization = "organization"
)

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// 它会从请求头中提取 token，验证其有效性，并将 claims 存入 Gin 的上下文中。
func AuthMiddleware(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "请求未包含授权头", "data": nil})
			return
		}

		// Token 以 "Bearer <token>" 的形式提供
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的授权头格式", "data": nil})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil {
			log.Warnf("[Auth] token 验证失败: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效或已过期的 token", "data": nil})
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// ClaimsFrom 取出 AuthMiddleware 写入的 claims。
func ClaimsFrom(c *gin.Context) (*token.CustomClaims, bool) {
	v, ok := c.Get(ContextKeyClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*token.CustomClaims)
	return claims, ok
}
