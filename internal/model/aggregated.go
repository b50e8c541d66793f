package model

import "time"

// TemplateInfo 描述结构模板的身份信息。
type TemplateInfo struct {
	TemplateID   string `json:"templateId"`
	TemplateName string `json:"templateName"`
	Version      string `json:"version"`
	BankCode     string `json:"bankCode"`
	BankName     string `json:"bankName"`
	PropertyType string `json:"propertyType"`
}

// DocumentTypeSummary 是聚合结果中附带的已解析文档类型。
type DocumentTypeSummary struct {
	DocumentID   string `json:"documentId"`
	DocumentName string `json:"documentName"`
	FieldType    string `json:"fieldType"`
	SortOrder    int    `json:"sortOrder"`
	IsRequired   bool   `json:"isRequired"`
}

// AppliedCustomTemplate 记录渲染时套用了哪一个自定义模板。
type AppliedCustomTemplate struct {
	ID              string   `json:"id"`
	TemplateName    string   `json:"templateName"`
	Version         int      `json:"version"`
	AppliedFieldIDs []string `json:"appliedFieldIds"`
	IgnoredFieldIDs []string `json:"ignoredFieldIds"`
}

// AggregatedTemplate 是某个 (银行, 房产类型) 合并后的可渲染表单结构。
// 每次请求重新计算，不单独持久化。
type AggregatedTemplate struct {
	TemplateInfo
	CommonFields          []Field                `json:"commonFields"`
	BankSpecificTabs      []Tab                  `json:"bankSpecificTabs"`
	DocumentTypes         []DocumentTypeSummary  `json:"documentTypes"`
	AggregatedAt          time.Time              `json:"aggregatedAt"`
	AppliedCustomTemplate *AppliedCustomTemplate `json:"appliedCustomTemplate,omitempty"`
}

// CustomizableFields 是经过自定义过滤器后的可覆盖字段集合。
type CustomizableFields struct {
	TemplateInfo     TemplateInfo `json:"templateInfo"`
	CommonFields     []Field      `json:"commonFields"`
	BankSpecificTabs []Tab        `json:"bankSpecificTabs"`
}
