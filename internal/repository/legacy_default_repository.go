package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"valuation-form-go/internal/model"
)

// LegacyDefaultRepository 读写旧版逐字段默认值记录，每个 (组织, 银行, 房产类型) 一条。
type LegacyDefaultRepository interface {
	Get(ctx context.Context, organizationID, bankCode, propertyType string) (*model.LegacyFieldDefault, error)
	Upsert(ctx context.Context, record *model.LegacyFieldDefault) error
}

type legacyDefaultRepository struct {
	db *gorm.DB
}

// NewLegacyDefaultRepository 创建一个新的 LegacyDefaultRepository 实例。
func NewLegacyDefaultRepository(db *gorm.DB) LegacyDefaultRepository {
	return &legacyDefaultRepository{db: db}
}

// Get 读取某个作用域的旧版默认值记录，未找到时返回 gorm.ErrRecordNotFound。
func (r *legacyDefaultRepository) Get(ctx context.Context, organizationID, bankCode, propertyType string) (*model.LegacyFieldDefault, error) {
	var record model.LegacyFieldDefault
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND bank_code = ? AND property_type = ?", organizationID, bankCode, propertyType).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert 按作用域唯一索引插入或覆盖整条记录。
func (r *legacyDefaultRepository) Upsert(ctx context.Context, record *model.LegacyFieldDefault) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "organization_id"}, {Name: "bank_code"}, {Name: "property_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"defaults", "updated_at"}),
	}).Create(record).Error
}
