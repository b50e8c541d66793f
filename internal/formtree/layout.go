package formtree

import (
	"sort"
	"strings"

	"valuation-form-go/internal/model"
)

// ReferenceTechnicalName 是系统生成的报告编号字段的技术名。
const ReferenceTechnicalName = "report_reference_number"

// ApplyLayout 返回排好序并补齐栅格默认值的字段树副本：
// 兄弟节点按 SortOrder 升序（相同时保持目录原顺序）；未显式设置 gridSize 的字段，
// table 类型取 12，group 的子字段取 12，其余取 3。
func ApplyLayout(fields []model.Field) []model.Field {
	return layoutFields(fields, false)
}

// ApplyTabLayout 对 Tab、Section 以及其中的字段做同样的排序和栅格处理。
func ApplyTabLayout(tabs []model.Tab) []model.Tab {
	out := make([]model.Tab, len(tabs))
	copy(out, tabs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })

	for i := range out {
		out[i].Fields = layoutFields(out[i].Fields, false)

		sections := make([]model.Section, len(out[i].Sections))
		copy(sections, out[i].Sections)
		sort.SliceStable(sections, func(a, b int) bool { return sections[a].SortOrder < sections[b].SortOrder })
		for j := range sections {
			sections[j].Fields = layoutFields(sections[j].Fields, false)
		}
		out[i].Sections = sections
	}
	return out
}

func layoutFields(fields []model.Field, inGroup bool) []model.Field {
	out := make([]model.Field, len(fields))
	copy(out, fields)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })

	for i := range out {
		f := &out[i]
		if f.GridSize == 0 {
			f.GridSize = defaultGridSize(f.FieldType, inGroup)
		}
		if len(f.SubFields) > 0 {
			f.SubFields = layoutFields(f.SubFields, true)
		}
		if len(f.Columns) > 0 {
			f.Columns = layoutColumns(f.Columns)
		}
	}
	return out
}

func layoutColumns(columns []model.TableColumn) []model.TableColumn {
	out := make([]model.TableColumn, len(columns))
	copy(out, columns)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	for i := range out {
		if out[i].GridSize == 0 {
			out[i].GridSize = defaultGridSize(out[i].FieldType, false)
		}
	}
	return out
}

func defaultGridSize(fieldType string, inGroup bool) int {
	if inGroup || model.IsTableType(fieldType) {
		return model.GridSizeFull
	}
	return model.GridSizeDefault
}

// MarkReferenceFieldsReadonly 把报告编号类字段标记为只读，不论目录中原来的 isReadonly 取值。
// 命中条件：technicalName 为 report_reference_number，或 displayName / fieldId 中包含 "reference"。
func MarkReferenceFieldsReadonly(fields []model.Field) []model.Field {
	out := make([]model.Field, len(fields))
	copy(out, fields)
	for i := range out {
		if IsReferenceField(out[i]) {
			out[i].IsReadonly = true
		}
		if len(out[i].SubFields) > 0 {
			out[i].SubFields = MarkReferenceFieldsReadonly(out[i].SubFields)
		}
	}
	return out
}

// IsReferenceField 判断字段是否为系统生成的编号字段。
func IsReferenceField(f model.Field) bool {
	if strings.EqualFold(f.TechnicalName, ReferenceTechnicalName) {
		return true
	}
	return strings.Contains(strings.ToLower(f.DisplayName), "reference") ||
		strings.Contains(strings.ToLower(f.FieldID), "reference")
}
