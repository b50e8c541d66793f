package model

import (
	"time"

	"gorm.io/datatypes"
)

// CustomTemplate 对应于 'custom_templates' 表，是组织保存的一组字段默认值覆盖。
// 作用域为 (OrganizationID, BankCode, PropertyType)；IsActive=false 表示已软删除。
type CustomTemplate struct {
	ID             string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrganizationID string            `gorm:"type:varchar(64);not null;index:idx_custom_template_scope,priority:1" json:"organizationId"`
	BankCode       string            `gorm:"type:varchar(32);not null;index:idx_custom_template_scope,priority:2" json:"bankCode"`
	PropertyType   string            `gorm:"type:varchar(64);not null;index:idx_custom_template_scope,priority:3" json:"propertyType"`
	TemplateName   string            `gorm:"type:varchar(255);not null" json:"templateName"`
	Description    string            `gorm:"type:text" json:"description"`
	FieldValues    datatypes.JSONMap `gorm:"type:json" json:"fieldValues"`
	CreatedBy      string            `gorm:"type:varchar(64)" json:"createdBy"`
	CreatedByName  string            `gorm:"type:varchar(255)" json:"createdByName"`
	Version        int               `gorm:"not null;default:1" json:"version"`
	IsActive       bool              `gorm:"not null;default:true;index:idx_custom_template_scope,priority:4" json:"isActive"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (CustomTemplate) TableName() string {
	return "custom_templates"
}

// CustomTemplateScope 是每个作用域一行的锁记录。
// 创建自定义模板时在事务内先锁住这一行，再做数量检查和插入，保证并发创建不会突破上限。
type CustomTemplateScope struct {
	OrganizationID string    `gorm:"type:varchar(64);primaryKey" json:"organizationId"`
	BankCode       string    `gorm:"type:varchar(32);primaryKey" json:"bankCode"`
	PropertyType   string    `gorm:"type:varchar(64);primaryKey" json:"propertyType"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (CustomTemplateScope) TableName() string {
	return "custom_template_scopes"
}

// CustomTemplateListItem 是列表接口返回的精简结构。
type CustomTemplateListItem struct {
	ID            string    `json:"id"`
	TemplateName  string    `json:"templateName"`
	Description   string    `json:"description"`
	BankCode      string    `json:"bankCode"`
	PropertyType  string    `json:"propertyType"`
	FieldCount    int       `json:"fieldCount"`
	Version       int       `json:"version"`
	CreatedBy     string    `json:"createdBy"`
	CreatedByName string    `json:"createdByName"`
	CreatedAt     LocalTime `json:"createdAt"`
	UpdatedAt     LocalTime `json:"updatedAt"`
}

// ToListItem 将完整记录转换为列表项。
func (t CustomTemplate) ToListItem() CustomTemplateListItem {
	return CustomTemplateListItem{
		ID:            t.ID,
		TemplateName:  t.TemplateName,
		Description:   t.Description,
		BankCode:      t.BankCode,
		PropertyType:  t.PropertyType,
		FieldCount:    len(t.FieldValues),
		Version:       t.Version,
		CreatedBy:     t.CreatedBy,
		CreatedByName: t.CreatedByName,
		CreatedAt:     LocalTime(t.CreatedAt),
		UpdatedAt:     LocalTime(t.UpdatedAt),
	}
}
