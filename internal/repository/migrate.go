package repository

import (
	"gorm.io/gorm"

	"valuation-form-go/internal/model"
)

// AutoMigrate 创建或更新本服务使用的全部数据表。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Bank{},
		&model.StructuralTemplate{},
		&model.CommonFieldsCatalog{},
		&model.DocumentType{},
		&model.CustomTemplate{},
		&model.CustomTemplateScope{},
		&model.LegacyFieldDefault{},
		&model.Organization{},
		&model.RolePermission{},
	)
}
