package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"valuation-form-go/internal/model"
)

// ErrScopeLimitReached 表示作用域内启用的自定义模板数量已达到上限。
var ErrScopeLimitReached = errors.New("custom template scope limit reached")

// CustomTemplateFilter 是列表查询的过滤条件，非空字段之间为 AND 关系。
type CustomTemplateFilter struct {
	OrganizationID  string
	BankCode        string
	PropertyType    string
	IncludeInactive bool
}

// CustomTemplateRepository 定义了自定义模板的持久化操作。
type CustomTemplateRepository interface {
	// CreateWithinLimit 在作用域锁内完成"数量检查 + 插入"，超出上限时返回 ErrScopeLimitReached。
	CreateWithinLimit(ctx context.Context, tpl *model.CustomTemplate, limit int) error
	// FindByID 返回任意状态的记录，由调用方决定是否排除已删除的记录。
	FindByID(ctx context.Context, id string) (*model.CustomTemplate, error)
	FindActiveByIDs(ctx context.Context, organizationID string, ids []string) ([]model.CustomTemplate, error)
	// Update 只更新启用中的记录，并使 version 自增。
	Update(ctx context.Context, id string, updates map[string]interface{}) (*model.CustomTemplate, error)
	// SoftDelete 将启用中的记录标记为删除；记录不存在或已删除时返回 false。
	SoftDelete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, filter CustomTemplateFilter) ([]model.CustomTemplate, error)
	CountActive(ctx context.Context, organizationID, bankCode, propertyType string) (int64, error)
}

type customTemplateRepository struct {
	db *gorm.DB
}

// NewCustomTemplateRepository 创建一个新的 CustomTemplateRepository 实例。
func NewCustomTemplateRepository(db *gorm.DB) CustomTemplateRepository {
	return &customTemplateRepository{db: db}
}

// CreateWithinLimit 的并发语义：
// 1. 确保作用域锁记录存在（冲突时忽略）；
// 2. SELECT ... FOR UPDATE 锁住该记录，同一作用域的并发创建在此排队；
// 3. 统计启用记录数，达到上限则回滚；
// 4. 插入新记录并提交。
// SQLite 不支持行锁，但它的写事务本身是串行的。
func (r *customTemplateRepository) CreateWithinLimit(ctx context.Context, tpl *model.CustomTemplate, limit int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope := model.CustomTemplateScope{
			OrganizationID: tpl.OrganizationID,
			BankCode:       tpl.BankCode,
			PropertyType:   tpl.PropertyType,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&scope).Error; err != nil {
			return err
		}

		lock := tx
		if tx.Dialector.Name() != "sqlite" {
			lock = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		err := lock.Where("organization_id = ? AND bank_code = ? AND property_type = ?",
			scope.OrganizationID, scope.BankCode, scope.PropertyType).First(&scope).Error
		if err != nil {
			return err
		}

		var count int64
		err = tx.Model(&model.CustomTemplate{}).
			Where("organization_id = ? AND bank_code = ? AND property_type = ? AND is_active = ?",
				tpl.OrganizationID, tpl.BankCode, tpl.PropertyType, true).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count >= int64(limit) {
			return ErrScopeLimitReached
		}

		tpl.IsActive = true
		return tx.Create(tpl).Error
	})
}

// FindByID 根据 ID 查找自定义模板。
func (r *customTemplateRepository) FindByID(ctx context.Context, id string) (*model.CustomTemplate, error) {
	var tpl model.CustomTemplate
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tpl).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

// FindActiveByIDs 按 ID 批量读取某组织启用中的模板，结果顺序与 ids 一致。
func (r *customTemplateRepository) FindActiveByIDs(ctx context.Context, organizationID string, ids []string) ([]model.CustomTemplate, error) {
	if len(ids) == 0 {
		return []model.CustomTemplate{}, nil
	}
	var found []model.CustomTemplate
	err := r.db.WithContext(ctx).
		Where("id IN ? AND organization_id = ? AND is_active = ?", ids, organizationID, true).
		Find(&found).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.CustomTemplate, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}
	ordered := make([]model.CustomTemplate, 0, len(found))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			ordered = append(ordered, t)
		}
	}
	return ordered, nil
}

// Update 在事务中更新指定字段、刷新 updated_at 并将 version 加一，然后重新读取记录。
func (r *customTemplateRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (*model.CustomTemplate, error) {
	var tpl model.CustomTemplate
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		values := make(map[string]interface{}, len(updates)+2)
		for k, v := range updates {
			values[k] = v
		}
		values["version"] = gorm.Expr("version + ?", 1)
		values["updated_at"] = time.Now()

		result := tx.Model(&model.CustomTemplate{}).
			Where("id = ? AND is_active = ?", id, true).
			Updates(values)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("id = ?", id).First(&tpl).Error
	})
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

// SoftDelete 将记录标记为 is_active=false。
func (r *customTemplateRepository) SoftDelete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.CustomTemplate{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// List 按过滤条件列出自定义模板，默认只返回启用中的记录，按创建时间倒序。
func (r *customTemplateRepository) List(ctx context.Context, filter CustomTemplateFilter) ([]model.CustomTemplate, error) {
	query := r.db.WithContext(ctx).Model(&model.CustomTemplate{})
	if filter.OrganizationID != "" {
		query = query.Where("organization_id = ?", filter.OrganizationID)
	}
	if filter.BankCode != "" {
		query = query.Where("bank_code = ?", filter.BankCode)
	}
	if filter.PropertyType != "" {
		query = query.Where("property_type = ?", filter.PropertyType)
	}
	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	var templates []model.CustomTemplate
	err := query.Order("created_at desc").Find(&templates).Error
	return templates, err
}

// CountActive 统计作用域内启用中的模板数量。
func (r *customTemplateRepository) CountActive(ctx context.Context, organizationID, bankCode, propertyType string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.CustomTemplate{}).
		Where("organization_id = ? AND bank_code = ? AND property_type = ? AND is_active = ?",
			organizationID, bankCode, propertyType, true).
		Count(&count).Error
	return count, err
}
