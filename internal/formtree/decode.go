package formtree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"valuation-form-go/internal/model"
	"valuation-form-go/pkg/log"
)

var errMalformed = errors.New("malformed catalog element")

type rawField struct {
	FieldID        string          `json:"fieldId"`
	TechnicalName  string          `json:"technicalName"`
	DisplayName    string          `json:"displayName"`
	FieldType      string          `json:"fieldType"`
	IsRequired     bool            `json:"isRequired"`
	IsActive       *bool           `json:"isActive"`
	IsReadonly     bool            `json:"isReadonly"`
	IsCustomizable bool            `json:"isCustomizable"`
	SortOrder      any             `json:"sortOrder"`
	GridSize       any             `json:"gridSize"`
	Placeholder    string          `json:"placeholder"`
	DefaultValue   any             `json:"defaultValue"`
	Options        any             `json:"options"`
	SubFields      json.RawMessage `json:"subFields"`
	TableConfig    any             `json:"tableConfig"`
	Columns        json.RawMessage `json:"columns"`
	Rows           json.RawMessage `json:"rows"`
}

type rawSection struct {
	SectionID             string          `json:"sectionId"`
	SectionName           string          `json:"sectionName"`
	Description           string          `json:"description"`
	SortOrder             any             `json:"sortOrder"`
	UseDocumentCollection bool            `json:"useDocumentCollection"`
	OriginalFields        any             `json:"originalFields"`
	Fields                json.RawMessage `json:"fields"`
}

type rawTab struct {
	TabID     string          `json:"tabId"`
	TabName   string          `json:"tabName"`
	SortOrder any             `json:"sortOrder"`
	Fields    json.RawMessage `json:"fields"`
	Sections  json.RawMessage `json:"sections"`
}

// DecodeFields 解码一个字段数组。损坏的单个字段会被记录并跳过，不影响其余字段。
// path 仅用于日志定位，例如 "common_form_fields"。
func DecodeFields(raw []byte, path string) []model.Field {
	return decodeFieldList(raw, path)
}

// DecodeTabs 解码结构模板中的 Tab 数组，逐个元素容错。
func DecodeTabs(raw []byte) []model.Tab {
	elems := decodeList(raw, "tabs")
	tabs := make([]model.Tab, 0, len(elems))
	for i, elem := range elems {
		path := fmt.Sprintf("tabs[%d]", i)
		tab, err := decodeTab(elem, path)
		if err != nil {
			warnSkipped(path, err)
			continue
		}
		tabs = append(tabs, tab)
	}
	return tabs
}

func decodeTab(raw json.RawMessage, path string) (model.Tab, error) {
	var rt rawTab
	if err := json.Unmarshal(raw, &rt); err != nil {
		return model.Tab{}, err
	}
	tab := model.Tab{
		TabID:   strings.TrimSpace(rt.TabID),
		TabName: strings.TrimSpace(rt.TabName),
	}
	if tab.TabID == "" {
		tab.TabID = tab.TabName
	}
	if tab.TabID == "" {
		return model.Tab{}, fmt.Errorf("%w: tab without tabId", errMalformed)
	}
	tab.SortOrder, _ = ToIntValue(rt.SortOrder)
	tab.Fields = decodeFieldList(rt.Fields, path+".fields")

	sections := decodeList(rt.Sections, path+".sections")
	tab.Sections = make([]model.Section, 0, len(sections))
	for i, elem := range sections {
		sectionPath := fmt.Sprintf("%s.sections[%d]", path, i)
		section, err := decodeSection(elem, sectionPath)
		if err != nil {
			warnSkipped(sectionPath, err)
			continue
		}
		tab.Sections = append(tab.Sections, section)
	}
	return tab, nil
}

func decodeSection(raw json.RawMessage, path string) (model.Section, error) {
	var rs rawSection
	if err := json.Unmarshal(raw, &rs); err != nil {
		return model.Section{}, err
	}
	section := model.Section{
		SectionID:             strings.TrimSpace(rs.SectionID),
		SectionName:           strings.TrimSpace(rs.SectionName),
		Description:           rs.Description,
		UseDocumentCollection: rs.UseDocumentCollection,
		OriginalFields:        decodeStringList(rs.OriginalFields),
	}
	if section.SectionID == "" {
		section.SectionID = section.SectionName
	}
	if section.SectionID == "" {
		return model.Section{}, fmt.Errorf("%w: section without sectionId", errMalformed)
	}
	section.SortOrder, _ = ToIntValue(rs.SortOrder)
	section.Fields = decodeFieldList(rs.Fields, path+".fields")
	return section, nil
}

func decodeFieldList(raw json.RawMessage, path string) []model.Field {
	elems := decodeList(raw, path)
	fields := make([]model.Field, 0, len(elems))
	for i, elem := range elems {
		fieldPath := fmt.Sprintf("%s[%d]", path, i)
		field, err := decodeField(elem, fieldPath)
		if err != nil {
			warnSkipped(fieldPath, err)
			continue
		}
		// group 字段的子字段全部损坏时，整个 group 也不输出
		if field.IsGroup() && len(field.SubFields) == 0 {
			warnSkipped(fieldPath, fmt.Errorf("%w: group %q has no sub-fields", errMalformed, field.FieldID))
			continue
		}
		fields = append(fields, field)
	}
	return fields
}

func decodeField(raw json.RawMessage, path string) (model.Field, error) {
	var rf rawField
	if err := json.Unmarshal(raw, &rf); err != nil {
		return model.Field{}, err
	}

	field := model.Field{
		FieldID:        strings.TrimSpace(rf.FieldID),
		TechnicalName:  strings.TrimSpace(rf.TechnicalName),
		DisplayName:    strings.TrimSpace(rf.DisplayName),
		FieldType:      strings.TrimSpace(rf.FieldType),
		IsRequired:     rf.IsRequired,
		IsActive:       rf.IsActive == nil || *rf.IsActive,
		IsReadonly:     rf.IsReadonly,
		IsCustomizable: rf.IsCustomizable,
		GridSize:       explicitGridSize(rf.GridSize),
		Placeholder:    rf.Placeholder,
		DefaultValue:   rf.DefaultValue,
		Options:        NormalizeOptions(rf.Options),
		TableConfig:    NormalizeTableConfig(rf.TableConfig),
	}
	if field.FieldID == "" {
		field.FieldID = field.TechnicalName
	}
	if field.FieldID == "" {
		return model.Field{}, fmt.Errorf("%w: field without fieldId or technicalName", errMalformed)
	}
	if field.FieldType == "" {
		field.FieldType = model.FieldTypeText
	}
	field.SortOrder, _ = ToIntValue(rf.SortOrder)

	if field.IsGroup() {
		field.SubFields = decodeFieldList(rf.SubFields, path+".subFields")
	}
	if model.IsTableType(field.FieldType) {
		field.Columns = decodeColumns(rf.Columns, path+".columns")
		field.Rows = decodeRows(rf.Rows, field.Columns, path+".rows")
	}
	return field, nil
}

func decodeColumns(raw json.RawMessage, path string) []model.TableColumn {
	elems := decodeList(raw, path)
	if len(elems) == 0 {
		return nil
	}
	columns := make([]model.TableColumn, 0, len(elems))
	for i, elem := range elems {
		columnPath := fmt.Sprintf("%s[%d]", path, i)
		column, err := decodeColumn(elem)
		if err != nil {
			warnSkipped(columnPath, err)
			continue
		}
		columns = append(columns, column)
	}
	return columns
}

// decodeColumn 接受列对象、仅有表头的字符串，或 [id, label] 形式的平行数组。
func decodeColumn(raw json.RawMessage) (model.TableColumn, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return model.TableColumn{}, err
	}
	switch c := v.(type) {
	case string:
		name := strings.TrimSpace(c)
		if name == "" {
			return model.TableColumn{}, fmt.Errorf("%w: blank column header", errMalformed)
		}
		return model.TableColumn{ColumnID: name, DisplayName: name, FieldType: model.FieldTypeText}, nil
	case []any:
		opt, ok := optionFromParallel(c)
		if !ok {
			return model.TableColumn{}, fmt.Errorf("%w: column array without id/label", errMalformed)
		}
		return model.TableColumn{ColumnID: opt.Value, DisplayName: opt.Label, FieldType: model.FieldTypeText}, nil
	case map[string]any:
		column := model.TableColumn{
			ColumnID:     firstNonBlank(c, "columnId", "id", "key", "technicalName", "value"),
			DisplayName:  firstNonBlank(c, "displayName", "header", "label", "name"),
			FieldType:    firstNonBlank(c, "fieldType", "type"),
			GridSize:     explicitGridSize(c["gridSize"]),
			DefaultValue: NormalizeTableCell(c["defaultValue"]),
			Options:      NormalizeOptions(c["options"]),
		}
		if column.ColumnID == "" {
			column.ColumnID = column.DisplayName
		}
		if column.DisplayName == "" {
			column.DisplayName = column.ColumnID
		}
		if column.ColumnID == "" {
			return model.TableColumn{}, fmt.Errorf("%w: column without id or header", errMalformed)
		}
		if column.FieldType == "" {
			column.FieldType = model.FieldTypeText
		}
		column.IsRequired, _ = c["isRequired"].(bool)
		column.SortOrder, _ = ToIntValue(c["sortOrder"])
		return column, nil
	default:
		return model.TableColumn{}, fmt.Errorf("%w: unsupported column shape %T", errMalformed, v)
	}
}

func decodeRows(raw json.RawMessage, columns []model.TableColumn, path string) []map[string]any {
	elems := decodeList(raw, path)
	if len(elems) == 0 {
		return nil
	}
	rows := make([]map[string]any, 0, len(elems))
	for i, elem := range elems {
		row, err := decodeRow(elem, columns)
		if err != nil {
			warnSkipped(fmt.Sprintf("%s[%d]", path, i), err)
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// decodeRow 接受 columnId → 单元格的对象，或者按列顺序排列的单元格数组。
func decodeRow(raw json.RawMessage, columns []model.TableColumn) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	switch r := v.(type) {
	case map[string]any:
		row := make(map[string]any, len(r))
		for key, cell := range r {
			row[key] = NormalizeTableCell(cell)
		}
		return row, nil
	case []any:
		if len(columns) == 0 {
			return nil, fmt.Errorf("%w: positional row without columns", errMalformed)
		}
		row := make(map[string]any, len(columns))
		for i, cell := range r {
			if i >= len(columns) {
				break
			}
			row[columns[i].ColumnID] = NormalizeTableCell(cell)
		}
		return row, nil
	default:
		return nil, fmt.Errorf("%w: unsupported row shape %T", errMalformed, v)
	}
}

// decodeList 把一个 JSON 数组拆成独立的元素，非数组输入被视为空列表并记录日志。
func decodeList(raw []byte, path string) []json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		warnSkipped(path, err)
		return nil
	}
	return elems
}

func decodeStringList(raw any) []string {
	list, ok := raw.([]any)
	if !ok {
		if s := ScalarString(raw); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s := ScalarString(FirstScalar(item)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstNonBlank(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := ScalarString(FirstScalar(obj[key])); s != "" {
			return s
		}
	}
	return ""
}

func warnSkipped(path string, err error) {
	log.Warnw("[FormTree] 跳过无法解析的目录元素", "path", path, "error", err)
}
