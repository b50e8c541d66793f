package formtree

import "valuation-form-go/internal/model"

// FilterForCustomTemplate 返回可由组织覆盖默认值的字段子树。
//
// 仅保留 IsCustomizable=true 的字段，并强制设为 IsActive=true、IsReadonly=false；
// group 字段递归过滤其子字段，过滤后为空的 group 整体丢弃。
// 模板创建界面的可覆盖字段查询与渲染时套用自定义模板都调用这一个函数。
func FilterForCustomTemplate(fields []model.Field) []model.Field {
	out := make([]model.Field, 0, len(fields))
	for _, f := range fields {
		if !f.IsCustomizable {
			continue
		}
		f.IsActive = true
		f.IsReadonly = false
		if f.IsGroup() {
			f.SubFields = FilterForCustomTemplate(f.SubFields)
			if len(f.SubFields) == 0 {
				continue
			}
		}
		out = append(out, f)
	}
	return out
}

// FilterTabsForCustomTemplate 对每个 Tab 的直接字段和各个 Section 应用 FilterForCustomTemplate。
// 过滤后为空的 Section 被丢弃；既没有字段也没有 Section 的 Tab 被丢弃。
func FilterTabsForCustomTemplate(tabs []model.Tab) []model.Tab {
	out := make([]model.Tab, 0, len(tabs))
	for _, tab := range tabs {
		tab.Fields = FilterForCustomTemplate(tab.Fields)

		sections := make([]model.Section, 0, len(tab.Sections))
		for _, section := range tab.Sections {
			section.Fields = FilterForCustomTemplate(section.Fields)
			if len(section.Fields) == 0 {
				continue
			}
			sections = append(sections, section)
		}
		tab.Sections = sections

		if len(tab.Fields) == 0 && len(tab.Sections) == 0 {
			continue
		}
		out = append(out, tab)
	}
	return out
}

// CustomizableFieldIDs 收集过滤后字段树中所有可承载值的字段 id（group 本身不承载值）。
func CustomizableFieldIDs(common []model.Field, tabs []model.Tab) map[string]struct{} {
	ids := make(map[string]struct{})
	collectLeafIDs(FilterForCustomTemplate(common), ids)
	for _, tab := range FilterTabsForCustomTemplate(tabs) {
		collectLeafIDs(tab.Fields, ids)
		for _, section := range tab.Sections {
			collectLeafIDs(section.Fields, ids)
		}
	}
	return ids
}

func collectLeafIDs(fields []model.Field, ids map[string]struct{}) {
	for _, f := range fields {
		if f.IsGroup() {
			collectLeafIDs(f.SubFields, ids)
			continue
		}
		ids[f.FieldID] = struct{}{}
	}
}
