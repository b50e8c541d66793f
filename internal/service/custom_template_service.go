package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"valuation-form-go/internal/model"
	"valuation-form-go/internal/repository"
	"valuation-form-go/pkg/log"
)

var customLog = log.For("CustomTemplateService")

// DefaultMaxCustomTemplatesPerScope 是每个 (组织, 银行, 房产类型) 作用域允许同时启用的自定义模板数量。
// 实际取值来自配置 template.max_custom_templates_per_scope。
const DefaultMaxCustomTemplatesPerScope = 2

const defaultSearchSize = 20

// Actor 是发起写操作的用户，用于记录 createdBy / createdByName。
type Actor struct {
	ID   string
	Name string
}

// CreateCustomTemplateInput 是创建自定义模板的参数。
type CreateCustomTemplateInput struct {
	BankCode     string         `json:"bankCode"`
	PropertyType string         `json:"propertyType"`
	TemplateName string         `json:"templateName"`
	Description  string         `json:"description"`
	FieldValues  map[string]any `json:"fieldValues"`
}

// UpdateCustomTemplateInput 是更新自定义模板的参数，nil 表示不修改该字段。
type UpdateCustomTemplateInput struct {
	TemplateName *string        `json:"templateName"`
	Description  *string        `json:"description"`
	FieldValues  map[string]any `json:"fieldValues"`
}

// CloneCustomTemplateInput 是复制自定义模板的参数；Description 为 nil 时沿用源模板的描述。
type CloneCustomTemplateInput struct {
	TemplateName string  `json:"templateName"`
	Description  *string `json:"description"`
}

// CustomTemplateIndexer 是自定义模板的全文检索索引，写入失败不影响主流程。
type CustomTemplateIndexer interface {
	IndexCustomTemplate(ctx context.Context, doc model.CustomTemplateDocument) error
	DeleteCustomTemplate(ctx context.Context, id string) error
	SearchCustomTemplates(ctx context.Context, organizationID, query, bankCode, propertyType string, size int) ([]string, error)
}

// CustomTemplateService 接口定义了组织自定义模板的业务操作。所有操作都显式传入组织 ID，
// 访问其他组织的记录与记录不存在的处理方式相同。
type CustomTemplateService interface {
	Create(ctx context.Context, organizationID string, actor Actor, in CreateCustomTemplateInput) (*model.CustomTemplate, error)
	Get(ctx context.Context, organizationID, id string) (*model.CustomTemplate, error)
	Update(ctx context.Context, organizationID, id string, in UpdateCustomTemplateInput) (*model.CustomTemplate, error)
	Delete(ctx context.Context, organizationID, id string) (bool, error)
	List(ctx context.Context, organizationID, bankCode, propertyType string) ([]model.CustomTemplateListItem, error)
	Clone(ctx context.Context, organizationID string, actor Actor, id string, in CloneCustomTemplateInput) (*model.CustomTemplate, error)
	Search(ctx context.Context, organizationID, query, bankCode, propertyType string) ([]model.CustomTemplateListItem, error)
}

type customTemplateService struct {
	repo        repository.CustomTemplateRepository
	indexer     CustomTemplateIndexer
	maxPerScope int
}

// NewCustomTemplateService 创建一个新的 CustomTemplateService 实例。
// indexer 可以为 nil，此时搜索退化为按名称的内存匹配；maxPerScope <= 0 时使用默认上限。
func NewCustomTemplateService(repo repository.CustomTemplateRepository, indexer CustomTemplateIndexer, maxPerScope int) CustomTemplateService {
	if maxPerScope <= 0 {
		maxPerScope = DefaultMaxCustomTemplatesPerScope
	}
	return &customTemplateService{
		repo:        repo,
		indexer:     indexer,
		maxPerScope: maxPerScope,
	}
}

// Create 校验参数后在作用域锁内创建自定义模板。
func (s *customTemplateService) Create(ctx context.Context, organizationID string, actor Actor, in CreateCustomTemplateInput) (*model.CustomTemplate, error) {
	bankCode, propertyType := NormalizeScope(in.BankCode, in.PropertyType)
	name := strings.TrimSpace(in.TemplateName)
	switch {
	case strings.TrimSpace(organizationID) == "":
		return nil, fmt.Errorf("%w: organizationId is required", ErrInvalidArgument)
	case name == "":
		return nil, fmt.Errorf("%w: templateName is required", ErrInvalidArgument)
	case bankCode == "":
		return nil, fmt.Errorf("%w: bankCode is required", ErrInvalidArgument)
	case propertyType == "":
		return nil, fmt.Errorf("%w: propertyType is required", ErrInvalidArgument)
	}

	values := make(datatypes.JSONMap, len(in.FieldValues))
	for k, v := range in.FieldValues {
		values[k] = v
	}
	tpl := &model.CustomTemplate{
		ID:             uuid.New().String(),
		OrganizationID: organizationID,
		BankCode:       bankCode,
		PropertyType:   propertyType,
		TemplateName:   name,
		Description:    in.Description,
		FieldValues:    values,
		CreatedBy:      actor.ID,
		CreatedByName:  actor.Name,
		Version:        1,
		IsActive:       true,
	}
	if err := s.repo.CreateWithinLimit(ctx, tpl, s.maxPerScope); err != nil {
		if errors.Is(err, repository.ErrScopeLimitReached) {
			return nil, s.limitError(organizationID, bankCode, propertyType)
		}
		return nil, err
	}

	customLog.Infof("组织 %s 创建自定义模板 %s (%s/%s)", organizationID, tpl.ID, bankCode, propertyType)
	s.index(ctx, tpl)
	return tpl, nil
}

func (s *customTemplateService) limitError(organizationID, bankCode, propertyType string) error {
	return fmt.Errorf("%w: organization %s already has %d active custom templates for %s/%s",
		ErrLimitExceeded, organizationID, s.maxPerScope, bankCode, propertyType)
}

// Get 返回组织名下启用中的自定义模板。
func (s *customTemplateService) Get(ctx context.Context, organizationID, id string) (*model.CustomTemplate, error) {
	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: custom template %s", ErrNotFound, id)
		}
		return nil, err
	}
	if !tpl.IsActive || tpl.OrganizationID != organizationID {
		return nil, fmt.Errorf("%w: custom template %s", ErrNotFound, id)
	}
	return tpl, nil
}

// Update 只替换传入的字段，version 自增。更新不改变作用域，因此不重新检查上限。
func (s *customTemplateService) Update(ctx context.Context, organizationID, id string, in UpdateCustomTemplateInput) (*model.CustomTemplate, error) {
	if _, err := s.Get(ctx, organizationID, id); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if in.TemplateName != nil {
		name := strings.TrimSpace(*in.TemplateName)
		if name == "" {
			return nil, fmt.Errorf("%w: templateName cannot be blank", ErrInvalidArgument)
		}
		updates["template_name"] = name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.FieldValues != nil {
		values := make(datatypes.JSONMap, len(in.FieldValues))
		for k, v := range in.FieldValues {
			values[k] = v
		}
		updates["field_values"] = values
	}

	tpl, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: custom template %s", ErrNotFound, id)
		}
		return nil, err
	}
	s.index(ctx, tpl)
	return tpl, nil
}

// Delete 软删除自定义模板。记录不存在、已删除或属于其他组织时返回 false。
func (s *customTemplateService) Delete(ctx context.Context, organizationID, id string) (bool, error) {
	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if !tpl.IsActive || tpl.OrganizationID != organizationID {
		return false, nil
	}

	deleted, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted && s.indexer != nil {
		if err := s.indexer.DeleteCustomTemplate(ctx, id); err != nil {
			customLog.Warnf("从索引中删除自定义模板 %s 失败: %v", id, err)
		}
	}
	return deleted, nil
}

// List 列出组织名下启用中的自定义模板，bankCode / propertyType 为空时不过滤。
func (s *customTemplateService) List(ctx context.Context, organizationID, bankCode, propertyType string) ([]model.CustomTemplateListItem, error) {
	bankCode, propertyType = NormalizeScope(bankCode, propertyType)
	templates, err := s.repo.List(ctx, repository.CustomTemplateFilter{
		OrganizationID: organizationID,
		BankCode:       bankCode,
		PropertyType:   propertyType,
	})
	if err != nil {
		return nil, err
	}
	return toListItems(templates), nil
}

// Clone 以源模板的字段值创建新模板。复制与直接创建受同一个上限约束。
func (s *customTemplateService) Clone(ctx context.Context, organizationID string, actor Actor, id string, in CloneCustomTemplateInput) (*model.CustomTemplate, error) {
	source, err := s.Get(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountActive(ctx, organizationID, source.BankCode, source.PropertyType)
	if err != nil {
		return nil, err
	}
	if count >= int64(s.maxPerScope) {
		return nil, s.limitError(organizationID, source.BankCode, source.PropertyType)
	}

	description := source.Description
	if in.Description != nil {
		description = *in.Description
	}
	return s.Create(ctx, organizationID, actor, CreateCustomTemplateInput{
		BankCode:     source.BankCode,
		PropertyType: source.PropertyType,
		TemplateName: in.TemplateName,
		Description:  description,
		FieldValues:  source.FieldValues,
	})
}

// Search 在索引中检索后回到存储重新读取，已删除或不属于该组织的记录不会出现在结果中。
func (s *customTemplateService) Search(ctx context.Context, organizationID, query, bankCode, propertyType string) ([]model.CustomTemplateListItem, error) {
	bankCode, propertyType = NormalizeScope(bankCode, propertyType)
	query = strings.TrimSpace(query)

	if s.indexer == nil {
		return s.searchInStore(ctx, organizationID, query, bankCode, propertyType)
	}

	ids, err := s.indexer.SearchCustomTemplates(ctx, organizationID, query, bankCode, propertyType, defaultSearchSize)
	if err != nil {
		customLog.Warnf("索引检索失败，改用存储检索: %v", err)
		return s.searchInStore(ctx, organizationID, query, bankCode, propertyType)
	}
	templates, err := s.repo.FindActiveByIDs(ctx, organizationID, ids)
	if err != nil {
		return nil, err
	}
	return toListItems(templates), nil
}

func (s *customTemplateService) searchInStore(ctx context.Context, organizationID, query, bankCode, propertyType string) ([]model.CustomTemplateListItem, error) {
	templates, err := s.repo.List(ctx, repository.CustomTemplateFilter{
		OrganizationID: organizationID,
		BankCode:       bankCode,
		PropertyType:   propertyType,
	})
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	matched := make([]model.CustomTemplate, 0, len(templates))
	for _, t := range templates {
		if needle == "" ||
			strings.Contains(strings.ToLower(t.TemplateName), needle) ||
			strings.Contains(strings.ToLower(t.Description), needle) {
			matched = append(matched, t)
		}
	}
	return toListItems(matched), nil
}

func (s *customTemplateService) index(ctx context.Context, tpl *model.CustomTemplate) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexCustomTemplate(ctx, model.NewCustomTemplateDocument(tpl)); err != nil {
		customLog.Warnf("索引自定义模板 %s 失败: %v", tpl.ID, err)
	}
}

func toListItems(templates []model.CustomTemplate) []model.CustomTemplateListItem {
	items := make([]model.CustomTemplateListItem, 0, len(templates))
	for _, t := range templates {
		items = append(items, t.ToListItem())
	}
	return items
}
