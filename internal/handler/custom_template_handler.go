package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"valuation-form-go/internal/service"
	"valuation-form-go/pkg/events"
	"valuation-form-go/pkg/log"
)

// CustomTemplateHandler 负责组织自定义模板的增删改查。
// 路由挂在 OrganizationContext(required=true) 之后，所有操作都限定在当前用户所属组织内。
type CustomTemplateHandler struct {
	customService service.CustomTemplateService
	activity      ActivityPublisher
}

// NewCustomTemplateHandler 创建一个新的 CustomTemplateHandler 实例，activity 可以为 nil。
func NewCustomTemplateHandler(customService service.CustomTemplateService, activity ActivityPublisher) *CustomTemplateHandler {
	return &CustomTemplateHandler{
		customService: customService,
		activity:      activity,
	}
}

// CreateCustomTemplateRequest 定义了创建自定义模板 API 的请求体结构。
type CreateCustomTemplateRequest struct {
	BankCode     string         `json:"bankCode" binding:"required"`
	PropertyType string         `json:"propertyType" binding:"required"`
	TemplateName string         `json:"templateName" binding:"required"`
	Description  string         `json:"description"`
	FieldValues  map[string]any `json:"fieldValues"`
}

// UpdateCustomTemplateRequest 定义了更新自定义模板 API 的请求体结构，未出现的字段保持不变。
type UpdateCustomTemplateRequest struct {
	TemplateName *string        `json:"templateName"`
	Description  *string        `json:"description"`
	FieldValues  map[string]any `json:"fieldValues"`
}

// CloneCustomTemplateRequest 定义了复制自定义模板 API 的请求体结构。
type CloneCustomTemplateRequest struct {
	TemplateName string  `json:"templateName" binding:"required"`
	Description  *string `json:"description"`
}

// List 处理列出本组织自定义模板的请求，可按 bankCode / propertyType 过滤。
func (h *CustomTemplateHandler) List(c *gin.Context) {
	org, found := requireOrganization(c)
	if !found {
		return
	}
	items, err := h.customService.List(c.Request.Context(), org.ID, c.Query("bankCode"), c.Query("propertyType"))
	if err != nil {
		writeServiceError(c, "ListCustomTemplates", err)
		return
	}
	ok(c, items)
}

// Search 处理按名称和描述检索自定义模板的请求。
func (h *CustomTemplateHandler) Search(c *gin.Context) {
	org, found := requireOrganization(c)
	if !found {
		return
	}
	items, err := h.customService.Search(c.Request.Context(), org.ID, c.Query("q"), c.Query("bankCode"), c.Query("propertyType"))
	if err != nil {
		writeServiceError(c, "SearchCustomTemplates", err)
		return
	}
	ok(c, items)
}

// Get 处理读取单个自定义模板的请求。
func (h *CustomTemplateHandler) Get(c *gin.Context) {
	org, found := requireOrganization(c)
	if !found {
		return
	}
	tpl, err := h.customService.Get(c.Request.Context(), org.ID, c.Param("id"))
	if err != nil {
		writeServiceError(c, "GetCustomTemplate", err)
		return
	}
	ok(c, tpl)
}

// Create 处理创建自定义模板的请求。
func (h *CustomTemplateHandler) Create(c *gin.Context) {
	org, found := requireOrganization(c)
	if !found {
		return
	}
	var req CreateCustomTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("CreateCustomTemplate: Invalid request payload, error: %v", err)
		fail(c, http.StatusBadRequest, "无效的请求负载")
		return
	}

	actor := currentActor(c)
	tpl, err := h.customService.Create(c.Request.Context(), org.ID, actor, service.CreateCustomTemplateInput{
		BankCode:     req.BankCode,
		PropertyType: req.PropertyType,
		TemplateName: req.TemplateName,
		Description:  req.Description,
		FieldValues:  req.FieldValues,
	})
	if err != nil {
		writeServiceError(c, "CreateCustomTemplate", err)
		return
	}
	publishActivity(h.activity, templateActivity(events.ActionCustomTemplateCreated, org, actor, tpl))
	c.JSON(http.StatusCreated, gin.H{"code": http.StatusCreated, "message": "success", "data": tpl})
}

// Update 处理更新自定义模板的请求。
func (h *CustomTemplateHandler) Update(c *gin.Context) {
	org, found := requireOrganization(c)
	if !found {
		return
	}
	var req UpdateCustomTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("UpdateCustomTemplate: Invalid request payload, error: %v", err)
		fail(c, http.StatusBadRequest, "无效的请求负载")
		return
	}

	tpl, err := h.customService.Update(c.Request.Context(), org.ID, c.Param("id"), service.UpdateCustomTemplateInput{
		TemplateName: req.TemplateName,
		Description:  req.Description,
		FieldValues:  req.FieldValues,
	})
	if err != nil {
		writeServiceError(c, "UpdateCustomTemplate", err)
		return
	}
	publishActivity(h.activity, templateActivity(events.ActionCustomTemplateUpdated, org, currentActor(c), tpl))
	ok(c, tpl)
}

// Delete 处理软删除自定义模板的请求。记录不存在或已删除时返回 404。
func (h *CustomTemplateHandler) Delete(c *gin.Context) {
	org, found := requireOrganization(c)
	if !found {
		return
	}
	id := c.Param("id")
	deleted, err := h.customService.Delete(c.Request.Context(), org.ID, id)
	if err != nil {
		writeServiceError(c, "DeleteCustomTemplate", err)
		return
	}
	if !deleted {
		fail(c, http.StatusNotFound, "自定义模板不存在")
		return
	}

	actor := currentActor(c)
	publishActivity(h.activity, events.ActivityEvent{
		Action:         events.ActionCustomTemplateDeleted,
		OrganizationID: org.ID,
		ActorID:        actor.ID,
		ActorName:      actor.Name,
		ResourceID:     id,
	})
	ok(c, gin.H{"id": id, "deleted": true})
}

// Clone 处理复制自定义模板的请求，复制结果与直接创建受同一上限约束。
func (h *CustomTemplateHandler) Clone(c *gin.Context) {
	org, found := requireOrganization(c)
	if !found {
		return
	}
	var req CloneCustomTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("CloneCustomTemplate: Invalid request payload, error: %v", err)
		fail(c, http.StatusBadRequest, "无效的请求负载")
		return
	}

	actor := currentActor(c)
	tpl, err := h.customService.Clone(c.Request.Context(), org.ID, actor, c.Param("id"), service.CloneCustomTemplateInput{
		TemplateName: req.TemplateName,
		Description:  req.Description,
	})
	if err != nil {
		writeServiceError(c, "CloneCustomTemplate", err)
		return
	}
	event := templateActivity(events.ActionCustomTemplateCloned, org, actor, tpl)
	event.Details["sourceId"] = c.Param("id")
	publishActivity(h.activity, event)
	c.JSON(http.StatusCreated, gin.H{"code": http.StatusCreated, "message": "success", "data": tpl})
}
