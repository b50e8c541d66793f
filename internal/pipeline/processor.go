// Package pipeline 定义了目录变更事件的处理流程。
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"valuation-form-go/internal/repository"
	"valuation-form-go/pkg/events"
	"valuation-form-go/pkg/log"
)

// Processor 根据目录变更事件让缓存中对应的条目失效。
type Processor struct {
	cache repository.CatalogCache
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(cache repository.CatalogCache) *Processor {
	return &Processor{cache: cache}
}

// Process 处理一条目录变更事件。
// 银行代码统一转为大写后再失效，与读取路径上的写法一致；未知种类的事件只记录日志，不重试。
func (p *Processor) Process(ctx context.Context, event events.CatalogChangeEvent) error {
	bankCode := strings.ToUpper(strings.TrimSpace(event.BankCode))
	propertyType := strings.TrimSpace(event.PropertyType)
	log.Infof("[Processor] 收到目录事件 id=%s kind=%s bank=%s propertyType=%s", event.EventID, event.Kind, bankCode, propertyType)

	var err error
	switch event.Kind {
	case events.CatalogKindBank:
		if bankCode == "" {
			return p.skip(event, "bank_code 为空")
		}
		err = p.cache.InvalidateBank(ctx, bankCode)
	case events.CatalogKindTemplate:
		if bankCode == "" || propertyType == "" {
			return p.skip(event, "bank_code 或 property_type 为空")
		}
		err = p.cache.InvalidateTemplate(ctx, bankCode, propertyType)
	case events.CatalogKindCommonFields:
		err = p.cache.InvalidateCommonFields(ctx)
	case events.CatalogKindDocumentTypes:
		err = p.cache.InvalidateDocumentTypes(ctx)
	case events.CatalogKindAll:
		err = p.cache.InvalidateAll(ctx)
	default:
		return p.skip(event, "未知的事件种类")
	}
	if err != nil {
		return fmt.Errorf("invalidate catalog cache for %s event: %w", event.Kind, err)
	}
	return nil
}

func (p *Processor) skip(event events.CatalogChangeEvent, reason string) error {
	log.Warnf("[Processor] 忽略目录事件 id=%s kind=%s: %s", event.EventID, event.Kind, reason)
	return nil
}
