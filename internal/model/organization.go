// Package model 定义了与数据库表对应的 Go 结构体。
package model

import (
	"time"

	"gorm.io/datatypes"
)

// Organization 对应于数据库中的 'organizations' 表，由外部目录维护，本服务只读。
type Organization struct {
	// ID 是组织的唯一标识符，作为自定义模板的归属键。
	ID string `gorm:"type:varchar(64);primaryKey" json:"id"`
	// ShortName 是组织简称，出现在用户 token 中。
	ShortName string `gorm:"type:varchar(100);uniqueIndex;not null" json:"shortName"`
	// Name 是组织的显示名称。
	Name string `gorm:"type:varchar(255)" json:"name"`
	// IsActive 为 false 时组织不能写入自定义模板。
	IsActive  bool      `gorm:"not null" json:"isActive"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Organization) TableName() string {
	return "organizations"
}

// 权限模板中与本服务相关的能力标识。
const (
	CapabilityManageCustomTemplates = "customTemplates.manage"
	CapabilityViewCustomTemplates   = "customTemplates.view"
	CapabilityImportCatalog         = "catalog.import"
)

// RolePermission 对应于 'role_permissions' 表：角色 → 布尔能力标识。
type RolePermission struct {
	Role         string            `gorm:"type:varchar(64);primaryKey" json:"role"`
	Capabilities datatypes.JSONMap `gorm:"type:json" json:"capabilities"`
	UpdatedAt    time.Time         `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (RolePermission) TableName() string {
	return "role_permissions"
}

// Allows 判断角色是否拥有某项能力；缺失或非布尔值均视为没有。
func (p RolePermission) Allows(capability string) bool {
	v, ok := p.Capabilities[capability]
	if !ok {
		return false
	}
	allowed, ok := v.(bool)
	return ok && allowed
}
