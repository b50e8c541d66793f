package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"valuation-form-go/internal/middleware"
	"valuation-form-go/internal/model"
	"valuation-form-go/internal/repository"
	"valuation-form-go/pkg/token"
)

// Routes 汇总注册路由所需的依赖。
type Routes struct {
	JWTManager      *token.JWTManager
	Organizations   repository.OrganizationRepository
	Permissions     repository.PermissionRepository
	Templates       *TemplateHandler
	CustomTemplates *CustomTemplateHandler
	LegacyDefaults  *LegacyDefaultHandler
	Admin           *AdminHandler
}

// Register 在 r 上注册 /api/v1 下的全部路由。
func (rt Routes) Register(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(rt.JWTManager))

	// 聚合读取不依赖组织；套用自定义模板或旧版默认值时才需要
	templates := apiV1.Group("/templates")
	templates.Use(middleware.OrganizationContext(rt.Organizations, false))
	{
		templates.GET("/:bankCode/:templateCode", rt.Templates.GetAggregatedTemplate)
		templates.GET("/:bankCode/:templateCode/customizable-fields", rt.Templates.GetCustomizableFields)
	}

	view := middleware.RequireCapability(rt.Permissions, model.CapabilityViewCustomTemplates)
	manage := middleware.RequireCapability(rt.Permissions, model.CapabilityManageCustomTemplates)

	customTemplates := apiV1.Group("/custom-templates")
	customTemplates.Use(middleware.OrganizationContext(rt.Organizations, true))
	{
		customTemplates.GET("", view, rt.CustomTemplates.List)
		customTemplates.GET("/search", view, rt.CustomTemplates.Search)
		customTemplates.GET("/:id", view, rt.CustomTemplates.Get)
		customTemplates.POST("", manage, rt.CustomTemplates.Create)
		customTemplates.PUT("/:id", manage, rt.CustomTemplates.Update)
		customTemplates.DELETE("/:id", manage, rt.CustomTemplates.Delete)
		customTemplates.POST("/:id/clone", manage, rt.CustomTemplates.Clone)
	}

	legacy := apiV1.Group("/legacy-defaults")
	legacy.Use(middleware.OrganizationContext(rt.Organizations, true))
	{
		legacy.GET("/:bankCode/:propertyType", view, rt.LegacyDefaults.Get)
		legacy.POST("/:bankCode/:propertyType/migrate", manage, rt.LegacyDefaults.Migrate)
	}

	if rt.Admin != nil {
		admin := apiV1.Group("/admin")
		admin.Use(middleware.RequireCapability(rt.Permissions, model.CapabilityImportCatalog))
		{
			admin.POST("/catalog/import", rt.Admin.ImportCatalog)
			admin.POST("/catalog/cache/invalidate", rt.Admin.InvalidateCatalogCache)
			admin.GET("/organizations", rt.Admin.ListOrganizations)
		}
	}
}
