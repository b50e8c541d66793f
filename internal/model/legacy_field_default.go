package model

import (
	"time"

	"gorm.io/datatypes"
)

// CustomFieldDefault 是旧版逐字段默认值覆盖的一条记录，按 FieldID + DocumentID + SectionID 定位。
type CustomFieldDefault struct {
	FieldID    string    `json:"fieldId"`
	DocumentID string    `json:"documentId,omitempty"`
	SectionID  string    `json:"sectionId,omitempty"`
	Value      any       `json:"value"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// LegacyFieldDefault 对应于 'legacy_field_defaults' 表。
// 每个组织在每个 (银行, 房产类型) 下只有一条记录，已被 CustomTemplate 取代，仅保留读取与迁移。
type LegacyFieldDefault struct {
	ID             uint                                    `gorm:"primaryKey;autoIncrement" json:"id"`
	OrganizationID string                                  `gorm:"type:varchar(64);not null;uniqueIndex:uq_legacy_scope,priority:1" json:"organizationId"`
	BankCode       string                                  `gorm:"type:varchar(32);not null;uniqueIndex:uq_legacy_scope,priority:2" json:"bankCode"`
	PropertyType   string                                  `gorm:"type:varchar(64);not null;uniqueIndex:uq_legacy_scope,priority:3" json:"propertyType"`
	Defaults       datatypes.JSONSlice[CustomFieldDefault] `gorm:"type:json" json:"defaults"`
	UpdatedAt      time.Time                               `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (LegacyFieldDefault) TableName() string {
	return "legacy_field_defaults"
}
