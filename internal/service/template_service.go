package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"valuation-form-go/internal/formtree"
	"valuation-form-go/internal/model"
	"valuation-form-go/internal/repository"
	"valuation-form-go/pkg/log"
)

var templateLog = log.For("TemplateService")

// 组合模板代码中可识别的房产类型。
const (
	PropertyTypeLand      = "land"
	PropertyTypeApartment = "apartment"
)

// ResolvePropertyType 从房产类型或组合模板代码（例如 "land-property"）中提取房产类型。
// 无法识别的代码属于客户端错误，返回 ErrInvalidArgument。
func ResolvePropertyType(code string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(code))
	switch {
	case strings.Contains(lower, PropertyTypeLand):
		return PropertyTypeLand, nil
	case strings.Contains(lower, PropertyTypeApartment):
		return PropertyTypeApartment, nil
	default:
		return "", fmt.Errorf("%w: unrecognized template code %q", ErrInvalidArgument, code)
	}
}

// TemplateService 接口定义了表单模板聚合与定制字段查询相关的业务操作。
type TemplateService interface {
	// AggregateTemplate 合并结构模板、通用字段目录和文档类型目录，生成可渲染的表单结构。
	AggregateTemplate(ctx context.Context, bankCode, propertyType string) (*model.AggregatedTemplate, error)
	// GetAggregatedTemplate 先从组合模板代码中解析房产类型，再调用 AggregateTemplate。
	GetAggregatedTemplate(ctx context.Context, bankCode, templateCode string) (*model.AggregatedTemplate, error)
	// GetCustomizableFields 返回经过自定义过滤器后可由组织覆盖的字段。
	GetCustomizableFields(ctx context.Context, bankCode, templateCode string) (*model.CustomizableFields, error)
	// ApplyCustomTemplate 聚合表单后把组织自定义模板中的值写入对应字段的默认值。
	ApplyCustomTemplate(ctx context.Context, organizationID, bankCode, templateCode, customTemplateID string) (*model.AggregatedTemplate, error)
}

type templateService struct {
	catalogRepo repository.CatalogRepository
	customRepo  repository.CustomTemplateRepository
	now         func() time.Time
}

// NewTemplateService 创建一个新的 TemplateService 实例。
func NewTemplateService(catalogRepo repository.CatalogRepository, customRepo repository.CustomTemplateRepository) TemplateService {
	return &templateService{
		catalogRepo: catalogRepo,
		customRepo:  customRepo,
		now:         time.Now,
	}
}

// AggregateTemplate 按以下步骤生成聚合模板：
// 1. 查找银行；2. 加载结构模板；3. 加载并规范化通用字段；4. 过滤文档类型；
// 5. 解析文档集合分组；6. 应用布局默认值；7. 标记编号字段只读；8. 组装结果。
func (s *templateService) AggregateTemplate(ctx context.Context, bankCode, propertyType string) (*model.AggregatedTemplate, error) {
	bankCode = NormalizeBankCode(bankCode)
	propertyType = strings.TrimSpace(propertyType)
	if bankCode == "" || propertyType == "" {
		return nil, fmt.Errorf("%w: bankCode and propertyType are required", ErrInvalidArgument)
	}

	// 1. 银行
	bank, err := s.catalogRepo.GetBank(ctx, bankCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: bank %s", ErrNotFound, bankCode)
		}
		return nil, err
	}

	// 2. 结构模板
	structural, err := s.catalogRepo.GetStructuralTemplate(ctx, bankCode, propertyType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: template %s", ErrNotFound, model.TemplateCollectionName(bankCode, propertyType))
		}
		return nil, err
	}

	// 3. 通用字段目录缺失时按空列表处理
	var commonRaw []byte
	common, err := s.catalogRepo.GetCommonFields(ctx)
	switch {
	case err == nil:
		commonRaw = common.Fields
	case errors.Is(err, gorm.ErrRecordNotFound):
		templateLog.Warnf("通用字段目录 %s 不存在，按空列表处理", model.CommonFieldsCatalogName)
	default:
		return nil, err
	}

	// 4. 文档类型
	docTypes, err := s.catalogRepo.GetDocumentTypes(ctx, bankCode, propertyType)
	if err != nil {
		return nil, err
	}

	// 5-7. 纯计算部分
	commonFields := formtree.BuildCommonFields(commonRaw)
	tabs := formtree.BuildTabs(structural.Tabs, docTypes)

	// 8. 组装
	info := model.TemplateInfo{
		TemplateID:   structural.TemplateID,
		TemplateName: structural.TemplateName,
		Version:      structural.Version,
		BankCode:     bank.BankCode,
		BankName:     bank.BankName,
		PropertyType: propertyType,
	}
	if info.TemplateID == "" {
		info.TemplateID = structural.CollectionName
	}
	if info.TemplateName == "" {
		info.TemplateName = fmt.Sprintf("%s %s", bank.BankName, propertyType)
	}

	templateLog.Infow("模板聚合完成",
		"bankCode", bankCode, "propertyType", propertyType,
		"commonFields", len(commonFields), "tabs", len(tabs), "documentTypes", len(docTypes))

	return &model.AggregatedTemplate{
		TemplateInfo:     info,
		CommonFields:     commonFields,
		BankSpecificTabs: tabs,
		DocumentTypes:    formtree.DocumentTypeSummaries(docTypes),
		AggregatedAt:     s.now(),
	}, nil
}

// GetAggregatedTemplate 解析组合模板代码后聚合。
func (s *templateService) GetAggregatedTemplate(ctx context.Context, bankCode, templateCode string) (*model.AggregatedTemplate, error) {
	propertyType, err := ResolvePropertyType(templateCode)
	if err != nil {
		return nil, err
	}
	return s.AggregateTemplate(ctx, bankCode, propertyType)
}

// GetCustomizableFields 对聚合结果应用自定义过滤器。templateCode 与 GetAggregatedTemplate 的解析规则相同。
func (s *templateService) GetCustomizableFields(ctx context.Context, bankCode, templateCode string) (*model.CustomizableFields, error) {
	aggregated, err := s.GetAggregatedTemplate(ctx, bankCode, templateCode)
	if err != nil {
		return nil, err
	}
	return &model.CustomizableFields{
		TemplateInfo:     aggregated.TemplateInfo,
		CommonFields:     formtree.FilterForCustomTemplate(aggregated.CommonFields),
		BankSpecificTabs: formtree.FilterTabsForCustomTemplate(aggregated.BankSpecificTabs),
	}, nil
}

// ApplyCustomTemplate 套用自定义模板。可写入的字段集合与 GetCustomizableFields 使用同一个过滤器计算，
// 模板中超出该集合的键被忽略并在结果中列出。
func (s *templateService) ApplyCustomTemplate(ctx context.Context, organizationID, bankCode, templateCode, customTemplateID string) (*model.AggregatedTemplate, error) {
	aggregated, err := s.GetAggregatedTemplate(ctx, bankCode, templateCode)
	if err != nil {
		return nil, err
	}

	tpl, err := s.customRepo.FindByID(ctx, customTemplateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: custom template %s", ErrNotFound, customTemplateID)
		}
		return nil, err
	}
	if !tpl.IsActive || tpl.OrganizationID != organizationID {
		return nil, fmt.Errorf("%w: custom template %s", ErrNotFound, customTemplateID)
	}
	bank, propertyType := NormalizeScope(aggregated.BankCode, aggregated.PropertyType)
	if tpl.BankCode != bank || tpl.PropertyType != propertyType {
		return nil, fmt.Errorf("%w: custom template %s belongs to %s/%s", ErrInvalidArgument, tpl.ID, tpl.BankCode, tpl.PropertyType)
	}

	allowed := formtree.CustomizableFieldIDs(aggregated.CommonFields, aggregated.BankSpecificTabs)
	applied, ignored := formtree.ApplyValues(aggregated.CommonFields, aggregated.BankSpecificTabs, tpl.FieldValues, allowed)
	if len(ignored) > 0 {
		templateLog.Infof("自定义模板 %s 中有 %d 个字段不可定制，已忽略", tpl.ID, len(ignored))
	}

	aggregated.AppliedCustomTemplate = &model.AppliedCustomTemplate{
		ID:              tpl.ID,
		TemplateName:    tpl.TemplateName,
		Version:         tpl.Version,
		AppliedFieldIDs: applied,
		IgnoredFieldIDs: ignored,
	}
	return aggregated, nil
}
