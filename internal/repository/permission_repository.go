package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"valuation-form-go/internal/model"
)

// PermissionRepository 是角色 → 能力标识的只读查询，写方法仅供导入使用。
type PermissionRepository interface {
	GetByRole(ctx context.Context, role string) (*model.RolePermission, error)
	Upsert(ctx context.Context, perm *model.RolePermission) error
}

type permissionRepository struct {
	db *gorm.DB
}

// NewPermissionRepository 创建一个新的 PermissionRepository 实例。
func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

// GetByRole 根据角色名查找能力标识。
func (r *permissionRepository) GetByRole(ctx context.Context, role string) (*model.RolePermission, error) {
	var perm model.RolePermission
	if err := r.db.WithContext(ctx).Where("role = ?", role).First(&perm).Error; err != nil {
		return nil, err
	}
	return &perm, nil
}

// Upsert 插入或覆盖角色的能力标识。
func (r *permissionRepository) Upsert(ctx context.Context, perm *model.RolePermission) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "role"}},
		DoUpdates: clause.AssignmentColumns([]string{"capabilities", "updated_at"}),
	}).Create(perm).Error
}
