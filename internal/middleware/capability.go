package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"valuation-form-go/internal/repository"
	"valuation-form-go/pkg/log"
)

// RequireCapability 检查当前用户的角色是否拥有指定能力。
// 此中间件必须在 AuthMiddleware 之后使用；角色没有权限记录时按没有能力处理。
func RequireCapability(permRepo repository.PermissionRepository, capability string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "无法获取用户信息", "data": nil})
			return
		}

		perm, err := permRepo.GetByRole(c.Request.Context(), claims.Role)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("[RequireCapability] 查询角色 %s 的权限失败: %v", claims.Role, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "服务暂时不可用，请稍后重试", "data": nil})
			return
		}
		if perm == nil || !perm.Allows(capability) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "message": "权限不足", "data": nil})
			return
		}
		c.Next()
	}
}
