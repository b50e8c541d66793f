// Package service 包含了应用的业务逻辑层。
package service

import (
	"errors"
	"strings"
)

// 业务错误分类。具体原因通过 fmt.Errorf("%w: ...") 附加，调用方用 errors.Is 判断类别。
// 存储层的技术错误不做包装，原样返回。
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrLimitExceeded   = errors.New("custom template limit exceeded")
)

// NormalizeBankCode 统一银行代码的写法（去空白、全大写）。
func NormalizeBankCode(bankCode string) string {
	return strings.ToUpper(strings.TrimSpace(bankCode))
}

// NormalizeScope 统一自定义模板作用域键：银行代码全大写，房产类型全小写。
// 写入和过滤都经过这里，大小写不同的写法不会被拆成两个作用域。
func NormalizeScope(bankCode, propertyType string) (string, string) {
	return NormalizeBankCode(bankCode), strings.ToLower(strings.TrimSpace(propertyType))
}
