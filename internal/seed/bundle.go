// Package seed 负责把目录包（银行、结构模板、通用字段、文档类型、旧版默认值、组织与角色权限）导入存储。
// 目录包可以是 YAML 或 JSON 文件，来自本地目录或 MinIO 前缀。
package seed

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"valuation-form-go/internal/model"
)

// BankEntry 是目录包中的银行条目，未写 isActive 时视为启用。
type BankEntry struct {
	BankCode string `json:"bankCode"`
	BankName string `json:"bankName"`
	IsActive *bool  `json:"isActive"`
}

// TemplateEntry 是一个 (银行, 房产类型) 的结构模板。Tabs 原样保存，聚合时再解码。
type TemplateEntry struct {
	BankCode     string          `json:"bankCode"`
	PropertyType string          `json:"propertyType"`
	TemplateID   string          `json:"templateId"`
	TemplateName string          `json:"templateName"`
	Version      string          `json:"version"`
	Tabs         json.RawMessage `json:"tabs"`
}

// DocumentTypeEntry 是文档类型条目。
type DocumentTypeEntry struct {
	DocumentID              string   `json:"documentId"`
	DocumentName            string   `json:"documentName"`
	FieldType               string   `json:"fieldType"`
	Placeholder             string   `json:"placeholder"`
	IsRequired              bool     `json:"isRequired"`
	SortOrder               int      `json:"sortOrder"`
	GridSize                int      `json:"gridSize"`
	ApplicableBanks         []string `json:"applicableBanks"`
	ApplicablePropertyTypes []string `json:"applicablePropertyTypes"`
	IsCustomizable          bool     `json:"isCustomizable"`
	IsActive                *bool    `json:"isActive"`
	Description             string   `json:"description"`
}

// LegacyDefaultEntry 是某组织在一个作用域下的旧版逐字段默认值。
type LegacyDefaultEntry struct {
	OrganizationID string                     `json:"organizationId"`
	BankCode       string                     `json:"bankCode"`
	PropertyType   string                     `json:"propertyType"`
	Defaults       []model.CustomFieldDefault `json:"defaults"`
}

// OrganizationEntry 是组织目录条目。
type OrganizationEntry struct {
	ID        string `json:"id"`
	ShortName string `json:"shortName"`
	Name      string `json:"name"`
	IsActive  *bool  `json:"isActive"`
}

// RolePermissionEntry 是角色的能力标识。
type RolePermissionEntry struct {
	Role         string          `json:"role"`
	Capabilities map[string]bool `json:"capabilities"`
}

// Bundle 是一个目录包文件的内容，各部分都可以缺省。
type Bundle struct {
	Banks           []BankEntry           `json:"banks"`
	CommonFields    json.RawMessage       `json:"commonFields"`
	DocumentTypes   []DocumentTypeEntry   `json:"documentTypes"`
	Templates       []TemplateEntry       `json:"templates"`
	LegacyDefaults  []LegacyDefaultEntry  `json:"legacyDefaults"`
	Organizations   []OrganizationEntry   `json:"organizations"`
	RolePermissions []RolePermissionEntry `json:"rolePermissions"`
}

// IsBundleFile 判断文件名是否为可识别的目录包格式。
func IsBundleFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// ParseBundle 按扩展名解析目录包。YAML 先转成通用结构再走 JSON 解码，两种格式共用同一套字段名。
func ParseBundle(name string, data []byte) (*Bundle, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml bundle %s: %w", name, err)
		}
		if doc == nil {
			return &Bundle{}, nil
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("convert yaml bundle %s: %w", name, err)
		}
		data = converted
	case ".json":
	default:
		return nil, fmt.Errorf("unsupported bundle format: %s", name)
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse bundle %s: %w", name, err)
	}
	return &b, nil
}

func activeOrDefault(v *bool) bool {
	return v == nil || *v
}
