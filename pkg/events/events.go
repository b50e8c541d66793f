// Package events 定义了通过 Kafka 收发的消息结构。
package events

import "time"

// 目录变更的种类。
const (
	CatalogKindBank          = "bank"
	CatalogKindTemplate      = "template"
	CatalogKindCommonFields  = "commonFields"
	CatalogKindDocumentTypes = "documentTypes"
	CatalogKindAll           = "all"
)

// CatalogChangeEvent 由目录维护方在银行、结构模板、通用字段或文档类型变更后发布，
// 消费端据此让缓存失效。
type CatalogChangeEvent struct {
	EventID      string    `json:"event_id"`
	Kind         string    `json:"kind"`
	BankCode     string    `json:"bank_code,omitempty"`
	PropertyType string    `json:"property_type,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// 活动日志中的动作。
const (
	ActionCustomTemplateCreated  = "custom_template.created"
	ActionCustomTemplateUpdated  = "custom_template.updated"
	ActionCustomTemplateDeleted  = "custom_template.deleted"
	ActionCustomTemplateCloned   = "custom_template.cloned"
	ActionLegacyDefaultsMigrated = "legacy_defaults.migrated"
)

// ActivityEvent 是写操作完成后发往活动日志的事件，发送失败不影响请求结果。
type ActivityEvent struct {
	EventID        string         `json:"event_id"`
	Action         string         `json:"action"`
	OrganizationID string         `json:"organization_id"`
	ActorID        string         `json:"actor_id"`
	ActorName      string         `json:"actor_name"`
	ResourceID     string         `json:"resource_id"`
	BankCode       string         `json:"bank_code,omitempty"`
	PropertyType   string         `json:"property_type,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
	OccurredAt     time.Time      `json:"occurred_at"`
}
