// Package repository 包含了所有与数据库交互的逻辑。
package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"valuation-form-go/internal/model"
)

// OrganizationRepository 接口定义了组织目录的数据操作方法。
// 组织由外部系统维护，本服务只在写入自定义模板时用它确定 organizationId。
type OrganizationRepository interface {
	Upsert(ctx context.Context, org *model.Organization) error
	FindByID(ctx context.Context, id string) (*model.Organization, error)
	GetByShortName(ctx context.Context, shortName string) (*model.Organization, error)
	FindAll(ctx context.Context) ([]model.Organization, error)
}

type organizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository 创建一个新的 OrganizationRepository 实例。
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

// Upsert 插入或更新一个组织记录（用于目录导入与测试数据）。
func (r *organizationRepository) Upsert(ctx context.Context, org *model.Organization) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"short_name", "name", "is_active", "updated_at"}),
	}).Create(org).Error
}

// FindByID 根据组织 ID 查找组织。
func (r *organizationRepository) FindByID(ctx context.Context, id string) (*model.Organization, error) {
	var org model.Organization
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// GetByShortName 根据组织简称查找组织。
func (r *organizationRepository) GetByShortName(ctx context.Context, shortName string) (*model.Organization, error) {
	var org model.Organization
	if err := r.db.WithContext(ctx).Where("short_name = ?", shortName).First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// FindAll 返回所有组织记录。
func (r *organizationRepository) FindAll(ctx context.Context) ([]model.Organization, error) {
	var orgs []model.Organization
	err := r.db.WithContext(ctx).Order("short_name asc").Find(&orgs).Error
	return orgs, err
}
