// Package formtree 实现表单树的纯计算逻辑：旧格式选项/单元格规范化、目录元素解码、
// 布局默认值、文档集合分组的字段合成，以及自定义模板过滤器。
// 本包不做任何 I/O，所有函数都可以在任意 goroutine 中并发调用。
package formtree

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"valuation-form-go/internal/model"
)

// NormalizeOptions 将多种历史编码的选项列表规范化为有序的 {value,label} 列表。
//
// 支持的输入：单个字符串、{value,label} 对象、字符串数组，以及多层嵌套的数组（例如 [[value],[label]]）。
// 无法同时得到非空 value 与 label 的条目会被静默丢弃。结果为空时返回 nil 而不是空切片，
// 以便渲染端区分"未配置选项"和"配置了但全部无效"。
func NormalizeOptions(raw any) []model.FieldOption {
	var out []model.FieldOption
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		if len(v) == 0 {
			return nil
		}
		if len(v) == 2 && allArrays(v) {
			// 整个列表就是 [[value],[label]] 这种平行结构；
			// 更多个数组时每个数组各自是一个选项，如 [["a"],["b"],["c"]]
			if opt, ok := optionFromParallel(v); ok {
				out = append(out, opt)
			}
			break
		}
		for _, entry := range v {
			if opt, ok := optionFromEntry(entry); ok {
				out = append(out, opt)
			}
		}
	case []string:
		for _, s := range v {
			if opt, ok := optionFromEntry(s); ok {
				out = append(out, opt)
			}
		}
	case []model.FieldOption:
		for _, o := range v {
			if opt, ok := optionFromPair(o.Value, o.Label); ok {
				out = append(out, opt)
			}
		}
	default:
		if opt, ok := optionFromEntry(v); ok {
			out = append(out, opt)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func optionFromEntry(entry any) (model.FieldOption, bool) {
	switch e := entry.(type) {
	case map[string]any:
		return optionFromPair(FirstScalar(e["value"]), FirstScalar(e["label"]))
	case []any:
		return optionFromParallel(e)
	default:
		s := ScalarString(e)
		return optionFromPair(s, s)
	}
}

// optionFromParallel 处理平行数组：第一个元素提取 value，第二个元素提取 label；
// 只有一个元素时 value 与 label 相同。
func optionFromParallel(list []any) (model.FieldOption, bool) {
	if len(list) == 0 {
		return model.FieldOption{}, false
	}
	value := FirstScalar(list[0])
	label := value
	if len(list) > 1 {
		label = FirstScalar(list[1])
	}
	return optionFromPair(value, label)
}

func optionFromPair(value, label any) (model.FieldOption, bool) {
	v := ScalarString(value)
	l := ScalarString(label)
	if v == "" || l == "" {
		return model.FieldOption{}, false
	}
	return model.FieldOption{Value: v, Label: l}, true
}

func allArrays(list []any) bool {
	for _, item := range list {
		if _, ok := item.([]any); !ok {
			return false
		}
	}
	return true
}

// FirstScalar 沿着嵌套数组不断取第一个元素，直到得到一个标量。
// 对象若带有 value 键则继续提取其 value。空数组或无法提取时返回 nil。
func FirstScalar(raw any) any {
	for depth := 0; depth < 32; depth++ {
		switch v := raw.(type) {
		case []any:
			if len(v) == 0 {
				return nil
			}
			raw = v[0]
		case map[string]any:
			inner, ok := v["value"]
			if !ok {
				return nil
			}
			raw = inner
		default:
			return v
		}
	}
	return nil
}

// ScalarString 将标量转换为去除首尾空白的字符串；非标量返回空串。
func ScalarString(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// NormalizeTableCell 将表格单元格规范化为标量；嵌套数组取第一个元素，{value,label} 取 value。
func NormalizeTableCell(raw any) any {
	v := FirstScalar(raw)
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return v
}

// NormalizeTableConfig 对表格配置做更深层的递归提取：数组变为规范化值的数组（剪掉空的嵌套结果），
// 对象变为规范化值的映射。结果为空时返回 nil。
func NormalizeTableConfig(raw any) map[string]any {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	out, _ := normalizeConfigValue(obj).(map[string]any)
	if len(out) == 0 {
		return nil
	}
	return out
}

func normalizeConfigValue(raw any) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			n := normalizeConfigValue(item)
			if isEmptyValue(n) {
				continue
			}
			out = append(out, n)
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			n := normalizeConfigValue(item)
			if isEmptyValue(n) {
				continue
			}
			out[key] = n
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case string:
		return strings.TrimSpace(v)
	default:
		return v
	}
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// ToIntValue 宽松地把 JSON 数字或数字字符串转换为 int。
func ToIntValue(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
	case float32:
		if float64(v) == math.Trunc(float64(v)) {
			return int(v), true
		}
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), true
		}
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		n, err := strconv.Atoi(trimmed)
		if err == nil {
			return n, true
		}
	}
	return 0, false
}

// explicitGridSize 返回目录中显式配置且合法 (1..12) 的栅格宽度；否则返回 0 表示未设置。
func explicitGridSize(raw any) int {
	n, ok := ToIntValue(raw)
	if !ok || n < model.GridSizeMin || n > model.GridSizeMax {
		return 0
	}
	return n
}
