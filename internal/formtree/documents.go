package formtree

import (
	"sort"
	"strings"

	"valuation-form-go/internal/model"
)

// SortDocumentTypes 返回按 SortOrder 稳定排序后的文档类型副本。
func SortDocumentTypes(docTypes []model.DocumentType) []model.DocumentType {
	out := make([]model.DocumentType, len(docTypes))
	copy(out, docTypes)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

// DocumentField 将一个文档类型合成为表单字段，未指定字段类型时使用 textarea。
func DocumentField(dt model.DocumentType) model.Field {
	fieldType := strings.TrimSpace(dt.FieldType)
	if fieldType == "" {
		fieldType = model.FieldTypeTextarea
	}
	gridSize := dt.GridSize
	if gridSize < model.GridSizeMin || gridSize > model.GridSizeMax {
		gridSize = 0
	}
	return model.Field{
		FieldID:        dt.DocumentID,
		TechnicalName:  dt.DocumentID,
		DisplayName:    dt.DocumentName,
		FieldType:      fieldType,
		IsRequired:     dt.IsRequired,
		IsActive:       true,
		IsCustomizable: dt.IsCustomizable,
		SortOrder:      dt.SortOrder,
		GridSize:       gridSize,
		Placeholder:    dt.Placeholder,
		DocumentID:     dt.DocumentID,
	}
}

// ResolveDocumentSections 对使用文档集合的分组，用匹配的文档类型合成字段替换其静态字段列表。
// docTypes 应当已经按 (银行, 房产类型) 过滤；合成字段按文档类型自身的 SortOrder 排列。
func ResolveDocumentSections(tabs []model.Tab, docTypes []model.DocumentType) []model.Tab {
	sorted := SortDocumentTypes(docTypes)
	out := make([]model.Tab, len(tabs))
	copy(out, tabs)
	for i := range out {
		sections := make([]model.Section, len(out[i].Sections))
		copy(sections, out[i].Sections)
		for j := range sections {
			if !sections[j].DerivesFromDocuments() {
				continue
			}
			sections[j].Fields = documentFields(sections[j].OriginalFields, sorted)
		}
		out[i].Sections = sections
	}
	return out
}

func documentFields(documentIDs []string, sorted []model.DocumentType) []model.Field {
	wanted := make(map[string]struct{}, len(documentIDs))
	for _, id := range documentIDs {
		wanted[id] = struct{}{}
	}
	fields := make([]model.Field, 0, len(documentIDs))
	for _, dt := range sorted {
		if _, ok := wanted[dt.DocumentID]; ok {
			fields = append(fields, DocumentField(dt))
		}
	}
	return fields
}

// DocumentTypeSummaries 生成聚合结果中附带的文档类型列表。
func DocumentTypeSummaries(docTypes []model.DocumentType) []model.DocumentTypeSummary {
	sorted := SortDocumentTypes(docTypes)
	out := make([]model.DocumentTypeSummary, 0, len(sorted))
	for _, dt := range sorted {
		f := DocumentField(dt)
		out = append(out, model.DocumentTypeSummary{
			DocumentID:   dt.DocumentID,
			DocumentName: dt.DocumentName,
			FieldType:    f.FieldType,
			SortOrder:    dt.SortOrder,
			IsRequired:   dt.IsRequired,
		})
	}
	return out
}
