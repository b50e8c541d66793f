package formtree

import (
	"sort"

	"valuation-form-go/internal/model"
)

// ApplyValues 把覆盖值写入字段的 DefaultValue，只写入 allowed 中出现的字段 id。
// 写入目标限于过滤器会保留的叶子字段：字段自身及其所有上级 group 都必须可定制，
// 其他树中同 id 的不可定制字段保持原值。
// common 与 tabs 会被原地修改，调用方应传入本次请求新构建的树。
// 返回按字母序排列的已写入 id 与被忽略的 id。
func ApplyValues(common []model.Field, tabs []model.Tab, values map[string]any, allowed map[string]struct{}) (applied, ignored []string) {
	eligible := make(map[string]any, len(values))
	for id, v := range values {
		if _, ok := allowed[id]; ok {
			eligible[id] = v
			continue
		}
		ignored = append(ignored, id)
	}

	hit := make(map[string]struct{}, len(eligible))
	set := func(f *model.Field) {
		if v, ok := eligible[f.FieldID]; ok {
			f.DefaultValue = v
			hit[f.FieldID] = struct{}{}
		}
	}
	walkCustomizableFields(common, set)
	for i := range tabs {
		walkCustomizableFields(tabs[i].Fields, set)
		for j := range tabs[i].Sections {
			walkCustomizableFields(tabs[i].Sections[j].Fields, set)
		}
	}

	applied = make([]string, 0, len(hit))
	for id := range hit {
		applied = append(applied, id)
	}
	// 允许但在当前树中找不到的字段同样视为被忽略
	for id := range eligible {
		if _, ok := hit[id]; !ok {
			ignored = append(ignored, id)
		}
	}
	sort.Strings(applied)
	sort.Strings(ignored)
	if ignored == nil {
		ignored = []string{}
	}
	return applied, ignored
}

// ApplyLegacyDefaults 把旧版逐字段默认值叠加到字段树上，返回写入的条目数。
// 条目按 FieldID 匹配；SectionID 非空时还要求字段位于该 Section 中，DocumentID 非空时要求字段由该文档类型合成。
// 同一字段有多条条目时按 UpdatedAt 依次写入，最后更新的生效。
// 旧版数据不区分可定制标记，这里也不做过滤。
func ApplyLegacyDefaults(common []model.Field, tabs []model.Tab, defaults []model.CustomFieldDefault) int {
	if len(defaults) == 0 {
		return 0
	}
	defaults = append([]model.CustomFieldDefault(nil), defaults...)
	sort.SliceStable(defaults, func(i, j int) bool { return defaults[i].UpdatedAt.Before(defaults[j].UpdatedAt) })
	count := 0
	set := func(f *model.Field, sectionID string) {
		for _, d := range defaults {
			if d.FieldID != f.FieldID {
				continue
			}
			if d.SectionID != "" && d.SectionID != sectionID {
				continue
			}
			if d.DocumentID != "" && d.DocumentID != f.DocumentID {
				continue
			}
			f.DefaultValue = d.Value
			count++
		}
	}
	walkFields(common, "", set)
	for i := range tabs {
		walkFields(tabs[i].Fields, "", set)
		for j := range tabs[i].Sections {
			walkFields(tabs[i].Sections[j].Fields, tabs[i].Sections[j].SectionID, set)
		}
	}
	return count
}

func walkFields(fields []model.Field, sectionID string, fn func(f *model.Field, sectionID string)) {
	for i := range fields {
		if fields[i].IsGroup() {
			walkFields(fields[i].SubFields, sectionID, fn)
			continue
		}
		fn(&fields[i], sectionID)
	}
}

// walkCustomizableFields 只访问 FilterForCustomTemplate 会保留的叶子字段。
func walkCustomizableFields(fields []model.Field, fn func(f *model.Field)) {
	for i := range fields {
		if !fields[i].IsCustomizable {
			continue
		}
		if fields[i].IsGroup() {
			walkCustomizableFields(fields[i].SubFields, fn)
			continue
		}
		fn(&fields[i])
	}
}
