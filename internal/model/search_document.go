package model

// CustomTemplateDocument 定义了存储在 Elasticsearch 中的自定义模板文档结构。
type CustomTemplateDocument struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	BankCode       string `json:"bank_code"`
	PropertyType   string `json:"property_type"`
	TemplateName   string `json:"template_name"`
	Description    string `json:"description"`
	CreatedByName  string `json:"created_by_name"`
}

// NewCustomTemplateDocument 由数据库记录构造索引文档。
func NewCustomTemplateDocument(t *CustomTemplate) CustomTemplateDocument {
	return CustomTemplateDocument{
		ID:             t.ID,
		OrganizationID: t.OrganizationID,
		BankCode:       t.BankCode,
		PropertyType:   t.PropertyType,
		TemplateName:   t.TemplateName,
		Description:    t.Description,
		CreatedByName:  t.CreatedByName,
	}
}
