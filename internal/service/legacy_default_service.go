package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"valuation-form-go/internal/formtree"
	"valuation-form-go/internal/model"
	"valuation-form-go/internal/repository"
	"valuation-form-go/pkg/log"
)

var legacyLog = log.For("LegacyDefaultService")

// LegacyDefaultService 提供旧版逐字段默认值的只读访问、叠加渲染和向自定义模板的迁移。
type LegacyDefaultService interface {
	Get(ctx context.Context, organizationID, bankCode, propertyType string) (*model.LegacyFieldDefault, error)
	// Apply 聚合表单后叠加旧版默认值，返回写入的条目数；没有旧版记录时原样返回聚合结果。
	Apply(ctx context.Context, organizationID, bankCode, templateCode string) (*model.AggregatedTemplate, int, error)
	// Migrate 把旧版记录转换为一个新的自定义模板，受正常的上限约束。
	Migrate(ctx context.Context, organizationID string, actor Actor, bankCode, propertyType, templateName string) (*model.CustomTemplate, error)
}

type legacyDefaultService struct {
	repo          repository.LegacyDefaultRepository
	templates     TemplateService
	customService CustomTemplateService
}

// NewLegacyDefaultService 创建一个新的 LegacyDefaultService 实例。
func NewLegacyDefaultService(repo repository.LegacyDefaultRepository, templates TemplateService, customService CustomTemplateService) LegacyDefaultService {
	return &legacyDefaultService{
		repo:          repo,
		templates:     templates,
		customService: customService,
	}
}

// Get 读取组织在某个作用域下的旧版默认值。
func (s *legacyDefaultService) Get(ctx context.Context, organizationID, bankCode, propertyType string) (*model.LegacyFieldDefault, error) {
	bankCode, propertyType = NormalizeScope(bankCode, propertyType)
	record, err := s.repo.Get(ctx, organizationID, bankCode, propertyType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: legacy defaults for %s/%s", ErrNotFound, bankCode, propertyType)
		}
		return nil, err
	}
	return record, nil
}

// Apply 叠加旧版默认值。
func (s *legacyDefaultService) Apply(ctx context.Context, organizationID, bankCode, templateCode string) (*model.AggregatedTemplate, int, error) {
	aggregated, err := s.templates.GetAggregatedTemplate(ctx, bankCode, templateCode)
	if err != nil {
		return nil, 0, err
	}
	record, err := s.Get(ctx, organizationID, aggregated.BankCode, aggregated.PropertyType)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return aggregated, 0, nil
		}
		return nil, 0, err
	}
	applied := formtree.ApplyLegacyDefaults(aggregated.CommonFields, aggregated.BankSpecificTabs, record.Defaults)
	return aggregated, applied, nil
}

// Migrate 按 fieldId 展平旧版条目（同一字段以最后更新的为准），然后走正常的创建流程。
func (s *legacyDefaultService) Migrate(ctx context.Context, organizationID string, actor Actor, bankCode, propertyType, templateName string) (*model.CustomTemplate, error) {
	record, err := s.Get(ctx, organizationID, bankCode, propertyType)
	if err != nil {
		return nil, err
	}

	entries := make([]model.CustomFieldDefault, len(record.Defaults))
	copy(entries, record.Defaults)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].UpdatedAt.Before(entries[j].UpdatedAt) })
	values := make(map[string]any, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.FieldID) == "" {
			continue
		}
		values[e.FieldID] = e.Value
	}

	if strings.TrimSpace(templateName) == "" {
		templateName = fmt.Sprintf("旧版默认值 %s/%s", record.BankCode, record.PropertyType)
	}
	tpl, err := s.customService.Create(ctx, organizationID, actor, CreateCustomTemplateInput{
		BankCode:     record.BankCode,
		PropertyType: record.PropertyType,
		TemplateName: templateName,
		Description:  "migrated from legacy field defaults",
		FieldValues:  values,
	})
	if err != nil {
		return nil, err
	}
	legacyLog.Infof("组织 %s 的旧版默认值已迁移为自定义模板 %s，共 %d 个字段", organizationID, tpl.ID, len(values))
	return tpl, nil
}
