package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"valuation-form-go/internal/service"
	"valuation-form-go/pkg/events"
)

// LegacyDefaultHandler 提供旧版逐字段默认值的只读查询与迁移。
type LegacyDefaultHandler struct {
	legacyService service.LegacyDefaultService
	activity      ActivityPublisher
}

// NewLegacyDefaultHandler 创建一个新的 LegacyDefaultHandler 实例。
func NewLegacyDefaultHandler(legacyService service.LegacyDefaultService, activity ActivityPublisher) *LegacyDefaultHandler {
	return &LegacyDefaultHandler{
		legacyService: legacyService,
		activity:      activity,
	}
}

// MigrateLegacyDefaultsRequest 定义了迁移请求体，templateName 可省略。
type MigrateLegacyDefaultsRequest struct {
	TemplateName string `json:"templateName"`
}

// Get 返回本组织在指定作用域下的旧版默认值记录。
func (h *LegacyDefaultHandler) Get(c *gin.Context) {
	org, found := requireOrganization(c)
	if !found {
		return
	}
	record, err := h.legacyService.Get(c.Request.Context(), org.ID, c.Param("bankCode"), c.Param("propertyType"))
	if err != nil {
		writeServiceError(c, "GetLegacyDefaults", err)
		return
	}
	ok(c, record)
}

// Migrate 把旧版默认值转换为一个新的自定义模板。
func (h *LegacyDefaultHandler) Migrate(c *gin.Context) {
	org, found := requireOrganization(c)
	if !found {
		return
	}
	var req MigrateLegacyDefaultsRequest
	// 请求体可以为空
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求负载")
			return
		}
	}

	actor := currentActor(c)
	tpl, err := h.legacyService.Migrate(c.Request.Context(), org.ID, actor, c.Param("bankCode"), c.Param("propertyType"), req.TemplateName)
	if err != nil {
		writeServiceError(c, "MigrateLegacyDefaults", err)
		return
	}
	publishActivity(h.activity, templateActivity(events.ActionLegacyDefaultsMigrated, org, actor, tpl))
	c.JSON(http.StatusCreated, gin.H{"code": http.StatusCreated, "message": "success", "data": tpl})
}
