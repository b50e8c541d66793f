// Package model 定义了表单树结构、目录数据以及与数据库表对应的 Go 结构体。
package model

import "strings"

// 常见的字段类型。目录中可能出现其他取值（例如 table_detail），统一按字符串处理。
const (
	FieldTypeText     = "text"
	FieldTypeNumber   = "number"
	FieldTypeSelect   = "select"
	FieldTypeDate     = "date"
	FieldTypeGroup    = "group"
	FieldTypeTable    = "table"
	FieldTypeTextarea = "textarea"
)

// 栅格布局常量（12 列栅格）。
const (
	GridSizeDefault = 3
	GridSizeFull    = 12
	GridSizeMin     = 1
	GridSizeMax     = 12
)

// FieldOption 是下拉/单选等字段的一个规范化选项。
type FieldOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// TableColumn 是表格类字段的一列。
type TableColumn struct {
	ColumnID     string        `json:"columnId"`
	DisplayName  string        `json:"displayName"`
	FieldType    string        `json:"fieldType"`
	IsRequired   bool          `json:"isRequired"`
	GridSize     int           `json:"gridSize"`
	SortOrder    int           `json:"sortOrder"`
	DefaultValue any           `json:"defaultValue"`
	Options      []FieldOption `json:"options"`
}

// Field 是表单中的一个元素：原子字段，或者带有 SubFields 的 group 字段。
type Field struct {
	FieldID        string           `json:"fieldId"`
	TechnicalName  string           `json:"technicalName"`
	DisplayName    string           `json:"displayName"`
	FieldType      string           `json:"fieldType"`
	IsRequired     bool             `json:"isRequired"`
	IsActive       bool             `json:"isActive"`
	IsReadonly     bool             `json:"isReadonly"`
	IsCustomizable bool             `json:"isCustomizable"`
	SortOrder      int              `json:"sortOrder"`
	GridSize       int              `json:"gridSize"`
	Placeholder    string           `json:"placeholder,omitempty"`
	DefaultValue   any              `json:"defaultValue"`
	Options        []FieldOption    `json:"options"`
	SubFields      []Field          `json:"subFields,omitempty"`
	TableConfig    map[string]any   `json:"tableConfig,omitempty"`
	Columns        []TableColumn    `json:"columns,omitempty"`
	Rows           []map[string]any `json:"rows,omitempty"`
	// DocumentID 仅在字段由文档类型目录合成时存在。
	DocumentID string `json:"documentId,omitempty"`
}

// IsGroup 判断字段是否为 group 类型。
func (f Field) IsGroup() bool {
	return strings.EqualFold(strings.TrimSpace(f.FieldType), FieldTypeGroup)
}

// IsTableType 判断字段类型是否包含 "table"（大小写不敏感的子串匹配）。
func IsTableType(fieldType string) bool {
	return strings.Contains(strings.ToLower(fieldType), FieldTypeTable)
}

// Section 是 Tab 下一个有序的字段分组，可由文档类型目录派生字段。
type Section struct {
	SectionID             string   `json:"sectionId"`
	SectionName           string   `json:"sectionName"`
	Description           string   `json:"description,omitempty"`
	SortOrder             int      `json:"sortOrder"`
	UseDocumentCollection bool     `json:"useDocumentCollection"`
	OriginalFields        []string `json:"originalFields,omitempty"`
	Fields                []Field  `json:"fields"`
}

// DerivesFromDocuments 判断该分组的字段是否应由文档类型目录派生。
func (s Section) DerivesFromDocuments() bool {
	return s.UseDocumentCollection && len(s.OriginalFields) > 0
}

// Tab 是表单的顶层容器，包含直接字段或有序分组。
type Tab struct {
	TabID     string    `json:"tabId"`
	TabName   string    `json:"tabName"`
	SortOrder int       `json:"sortOrder"`
	Fields    []Field   `json:"fields"`
	Sections  []Section `json:"sections"`
}
