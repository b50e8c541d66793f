package formtree

import "valuation-form-go/internal/model"

// BuildCommonFields 解码通用字段目录，标记编号字段只读，并补齐布局默认值。
func BuildCommonFields(raw []byte) []model.Field {
	fields := DecodeFields(raw, model.CommonFieldsCatalogName)
	return ApplyLayout(MarkReferenceFieldsReadonly(fields))
}

// BuildTabs 解码结构模板的 Tab 树，解析文档集合分组，并补齐布局默认值。
// docTypes 必须已经按 (银行, 房产类型) 过滤。
func BuildTabs(raw []byte, docTypes []model.DocumentType) []model.Tab {
	tabs := DecodeTabs(raw)
	return ApplyTabLayout(ResolveDocumentSections(tabs, docTypes))
}
