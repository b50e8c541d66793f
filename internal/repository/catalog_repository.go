package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"valuation-form-go/internal/model"
)

// CatalogRepository 是只读为主的目录存储：银行、结构模板、通用字段目录和文档类型目录。
// 写方法只供目录导入使用。
type CatalogRepository interface {
	GetBank(ctx context.Context, bankCode string) (*model.Bank, error)
	GetStructuralTemplate(ctx context.Context, bankCode, propertyType string) (*model.StructuralTemplate, error)
	GetCommonFields(ctx context.Context) (*model.CommonFieldsCatalog, error)
	// GetDocumentTypes 返回适用于 (银行, 房产类型) 的启用文档类型，匹配规则见 model.DocumentType.AppliesTo。
	GetDocumentTypes(ctx context.Context, bankCode, propertyType string) ([]model.DocumentType, error)

	UpsertBank(ctx context.Context, bank *model.Bank) error
	UpsertStructuralTemplate(ctx context.Context, tpl *model.StructuralTemplate) error
	UpsertCommonFields(ctx context.Context, catalog *model.CommonFieldsCatalog) error
	UpsertDocumentType(ctx context.Context, dt *model.DocumentType) error
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository 创建一个基于 GORM 的 CatalogRepository 实例。
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

// GetBank 根据银行代码查找启用的银行，未找到时返回 gorm.ErrRecordNotFound。
func (r *catalogRepository) GetBank(ctx context.Context, bankCode string) (*model.Bank, error) {
	var bank model.Bank
	err := r.db.WithContext(ctx).Where("bank_code = ? AND is_active = ?", bankCode, true).First(&bank).Error
	if err != nil {
		return nil, err
	}
	return &bank, nil
}

// GetStructuralTemplate 按确定性的集合名加载结构模板。
func (r *catalogRepository) GetStructuralTemplate(ctx context.Context, bankCode, propertyType string) (*model.StructuralTemplate, error) {
	var tpl model.StructuralTemplate
	name := model.TemplateCollectionName(bankCode, propertyType)
	if err := r.db.WithContext(ctx).Where("collection_name = ?", name).First(&tpl).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

// GetCommonFields 加载全局共享的通用字段目录。
func (r *catalogRepository) GetCommonFields(ctx context.Context) (*model.CommonFieldsCatalog, error) {
	var catalog model.CommonFieldsCatalog
	err := r.db.WithContext(ctx).Where("name = ?", model.CommonFieldsCatalogName).First(&catalog).Error
	if err != nil {
		return nil, err
	}
	return &catalog, nil
}

// GetDocumentTypes 读取全部启用的文档类型后在内存中按适用标签过滤。
// 标签保存在 JSON 列中，各数据库的 JSON 查询语法不同，而且三种大小写写法的匹配规则需要保持一致。
func (r *catalogRepository) GetDocumentTypes(ctx context.Context, bankCode, propertyType string) ([]model.DocumentType, error) {
	var all []model.DocumentType
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("sort_order asc, id asc").Find(&all).Error
	if err != nil {
		return nil, err
	}
	matched := make([]model.DocumentType, 0, len(all))
	for _, dt := range all {
		if dt.AppliesTo(bankCode, propertyType) {
			matched = append(matched, dt)
		}
	}
	return matched, nil
}

// UpsertBank 按 bank_code 插入或更新银行。
func (r *catalogRepository) UpsertBank(ctx context.Context, bank *model.Bank) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bank_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"bank_name", "is_active", "updated_at"}),
	}).Create(bank).Error
}

// UpsertStructuralTemplate 按 collection_name 插入或更新结构模板。
func (r *catalogRepository) UpsertStructuralTemplate(ctx context.Context, tpl *model.StructuralTemplate) error {
	if tpl.CollectionName == "" {
		tpl.CollectionName = model.TemplateCollectionName(tpl.BankCode, tpl.PropertyType)
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"bank_code", "property_type", "template_id", "template_name", "version", "tabs", "updated_at"}),
	}).Create(tpl).Error
}

// UpsertCommonFields 插入或更新通用字段目录。
func (r *catalogRepository) UpsertCommonFields(ctx context.Context, catalog *model.CommonFieldsCatalog) error {
	if catalog.Name == "" {
		catalog.Name = model.CommonFieldsCatalogName
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"fields", "updated_at"}),
	}).Create(catalog).Error
}

// UpsertDocumentType 按 document_id 插入或更新文档类型。
func (r *catalogRepository) UpsertDocumentType(ctx context.Context, dt *model.DocumentType) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "document_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"document_name", "field_type", "placeholder", "is_required", "sort_order", "grid_size",
			"applicable_banks", "applicable_property_types", "is_customizable", "is_active", "description", "updated_at",
		}),
	}).Create(dt).Error
}
