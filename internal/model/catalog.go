package model

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"gorm.io/datatypes"
)

// CommonFieldsCatalogName 是全局共享通用字段目录的记录名。
const CommonFieldsCatalogName = "common_form_fields"

// BankWildcard 是文档类型适用银行标签中的通配符，BankWildcardAll 是历史数据中的等价写法。
const (
	BankWildcard    = "*"
	BankWildcardAll = "ALL"
)

// Bank 对应于数据库中的 'banks' 表。
type Bank struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	BankCode  string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"bankCode"`
	BankName  string    `gorm:"type:varchar(255);not null" json:"bankName"`
	IsActive  bool      `gorm:"not null" json:"isActive"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Bank) TableName() string {
	return "banks"
}

// StructuralTemplate 保存某个 (银行, 房产类型) 的结构模板：Tab → Section → Field。
// Tabs 以原始 JSON 保存，聚合时逐个元素解码，单个元素损坏不会影响整个模板。
type StructuralTemplate struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CollectionName string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"collectionName"`
	BankCode       string         `gorm:"type:varchar(32);not null;index" json:"bankCode"`
	PropertyType   string         `gorm:"type:varchar(64);not null" json:"propertyType"`
	TemplateID     string         `gorm:"type:varchar(64)" json:"templateId"`
	TemplateName   string         `gorm:"type:varchar(255)" json:"templateName"`
	Version        string         `gorm:"type:varchar(32)" json:"version"`
	Tabs           datatypes.JSON `gorm:"type:json" json:"tabs"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (StructuralTemplate) TableName() string {
	return "structural_templates"
}

// TemplateCollectionName 根据银行代码和房产类型确定性地生成结构模板的集合名。
func TemplateCollectionName(bankCode, propertyType string) string {
	return strings.ToLower(strings.TrimSpace(bankCode)) + "_" + strings.ToLower(strings.TrimSpace(propertyType)) + "_property_details"
}

// CommonFieldsCatalog 是所有银行共享的通用字段目录（单条记录）。
type CommonFieldsCatalog struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Fields    datatypes.JSON `gorm:"type:json" json:"fields"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (CommonFieldsCatalog) TableName() string {
	return "common_fields_catalog"
}

// DocumentType 对应于 'document_types' 表，带有适用银行与房产类型标签。
type DocumentType struct {
	ID                      uint                        `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID              string                      `gorm:"type:varchar(64);uniqueIndex;not null" json:"documentId"`
	DocumentName            string                      `gorm:"type:varchar(255);not null" json:"documentName"`
	FieldType               string                      `gorm:"type:varchar(32)" json:"fieldType"`
	Placeholder             string                      `gorm:"type:varchar(255)" json:"placeholder"`
	IsRequired              bool                        `gorm:"not null;default:false" json:"isRequired"`
	SortOrder               int                         `gorm:"not null;default:0" json:"sortOrder"`
	GridSize                int                         `gorm:"not null;default:0" json:"gridSize"`
	ApplicableBanks         datatypes.JSONSlice[string] `gorm:"type:json" json:"applicableBanks"`
	ApplicablePropertyTypes datatypes.JSONSlice[string] `gorm:"type:json" json:"applicablePropertyTypes"`
	IsCustomizable          bool                        `gorm:"not null;default:false" json:"isCustomizable"`
	IsActive                bool                        `gorm:"not null" json:"isActive"`
	Description             string                      `gorm:"type:text" json:"description"`
	UpdatedAt               time.Time                   `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (DocumentType) TableName() string {
	return "document_types"
}

// AppliesTo 判断文档类型是否适用于给定的银行与房产类型。
// 银行标签须与银行代码完全相等或为通配符（"*"、"ALL"），不做大小写折叠，
// 导入时银行标签已统一为大写；房产类型标签需与原值、全大写或首字母大写三种写法之一完全相等，
// 上游数据大小写不一致，这一兼容行为必须保持不变。
func (d DocumentType) AppliesTo(bankCode, propertyType string) bool {
	return d.appliesToBank(bankCode) && d.appliesToPropertyType(propertyType)
}

func (d DocumentType) appliesToBank(bankCode string) bool {
	for _, tag := range d.ApplicableBanks {
		tag = strings.TrimSpace(tag)
		if tag == BankWildcard || tag == BankWildcardAll || tag == bankCode {
			return true
		}
	}
	return false
}

func (d DocumentType) appliesToPropertyType(propertyType string) bool {
	variants := PropertyTypeVariants(propertyType)
	for _, tag := range d.ApplicablePropertyTypes {
		for _, v := range variants {
			if tag == v {
				return true
			}
		}
	}
	return false
}

// PropertyTypeVariants 返回房产类型的三种写法：原值、全大写、首字母大写。
func PropertyTypeVariants(propertyType string) []string {
	return []string{propertyType, strings.ToUpper(propertyType), titleCase(propertyType)}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
