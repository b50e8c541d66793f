package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"valuation-form-go/internal/model"
	"valuation-form-go/internal/repository"
	"valuation-form-go/pkg/log"
)

// OrganizationContext 根据 token 中的组织简称查出组织并写入上下文。
// 此中间件必须在 AuthMiddleware 之后使用。
//
// required=false 用于只读路由：组织不存在、已停用或目录查询出错时都不写入组织，请求继续处理，
// 由需要组织的分支自行拒绝。聚合读取因此不受组织目录可用性影响。
// required=true 时，组织不存在或已停用返回 403。
func OrganizationContext(orgRepo repository.OrganizationRepository, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "无法获取用户信息", "data": nil})
			return
		}

		org, err := orgRepo.GetByShortName(c.Request.Context(), claims.OrgShortName)
		switch {
		case err == nil && org.IsActive:
			c.Set(ContextKeyOrganization, org)
			c.Next()
			return
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			log.Errorf("[OrganizationContext] 查询组织 %s 失败: %v", claims.OrgShortName, err)
			if !required {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "服务暂时不可用，请稍后重试", "data": nil})
			return
		}

		if !required {
			c.Next()
			return
		}
		log.Warnf("[OrganizationContext] 用户 %s 的组织 %q 不存在或已停用", claims.Username, claims.OrgShortName)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "message": "当前用户没有可用的组织", "data": nil})
	}
}

// OrganizationFrom 取出 OrganizationContext 写入的组织。
func OrganizationFrom(c *gin.Context) (*model.Organization, bool) {
	v, ok := c.Get(ContextKeyOrganization)
	if !ok {
		return nil, false
	}
	org, ok := v.(*model.Organization)
	return org, ok
}
