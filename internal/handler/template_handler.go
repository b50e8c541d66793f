package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"valuation-form-go/internal/service"
)

// TemplateHandler 负责表单模板聚合与可定制字段查询。
type TemplateHandler struct {
	templateService service.TemplateService
	legacyService   service.LegacyDefaultService
}

// NewTemplateHandler 创建一个新的 TemplateHandler 实例。
func NewTemplateHandler(templateService service.TemplateService, legacyService service.LegacyDefaultService) *TemplateHandler {
	return &TemplateHandler{
		templateService: templateService,
		legacyService:   legacyService,
	}
}

// GetAggregatedTemplate 返回聚合后的表单结构。
// templateCode 可以是房产类型，也可以是组合模板代码（如 land-property）。
// 带 customTemplateId 时套用该自定义模板；带 legacy=true 时叠加旧版默认值。两者都需要组织上下文。
func (h *TemplateHandler) GetAggregatedTemplate(c *gin.Context) {
	bankCode := c.Param("bankCode")
	templateCode := c.Param("templateCode")
	customTemplateID := c.Query("customTemplateId")
	legacy, _ := strconv.ParseBool(c.Query("legacy"))

	if customTemplateID == "" && !legacy {
		aggregated, err := h.templateService.GetAggregatedTemplate(c.Request.Context(), bankCode, templateCode)
		if err != nil {
			writeServiceError(c, "GetAggregatedTemplate", err)
			return
		}
		ok(c, aggregated)
		return
	}

	org, found := requireOrganization(c)
	if !found {
		return
	}

	if customTemplateID != "" {
		aggregated, err := h.templateService.ApplyCustomTemplate(c.Request.Context(), org.ID, bankCode, templateCode, customTemplateID)
		if err != nil {
			writeServiceError(c, "ApplyCustomTemplate", err)
			return
		}
		ok(c, aggregated)
		return
	}

	aggregated, applied, err := h.legacyService.Apply(c.Request.Context(), org.ID, bankCode, templateCode)
	if err != nil {
		writeServiceError(c, "ApplyLegacyDefaults", err)
		return
	}
	c.Header("X-Legacy-Defaults-Applied", strconv.Itoa(applied))
	ok(c, aggregated)
}

// GetCustomizableFields 返回可由组织覆盖默认值的字段，供创建自定义模板的界面使用。
func (h *TemplateHandler) GetCustomizableFields(c *gin.Context) {
	fields, err := h.templateService.GetCustomizableFields(c.Request.Context(), c.Param("bankCode"), c.Param("templateCode"))
	if err != nil {
		writeServiceError(c, "GetCustomizableFields", err)
		return
	}
	ok(c, fields)
}
