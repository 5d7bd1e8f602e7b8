package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockroom-backend/pkg/enums"
)

// AuditLog is an append-only record of one stock mutation. TenantID and
// ItemName are captured at write time so the entry outlives the item row.
type AuditLog struct {
	ID        int64             `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TenantID  uuid.UUID         `gorm:"column:tenant_id;type:uuid;not null;index:ix_audit_logs_tenant_created,priority:1" json:"tenant_id"`
	ItemID    uuid.UUID         `gorm:"column:item_id;type:uuid;not null;index" json:"item_id"`
	ItemName  string            `gorm:"column:item_name;type:text;not null" json:"item_name"`
	UserID    *uuid.UUID        `gorm:"column:user_id;type:uuid" json:"user_id"`
	Action    enums.AuditAction `gorm:"column:action;type:text;not null" json:"action"`
	Quantity  int               `gorm:"column:quantity;not null;default:0" json:"quantity"`
	CreatedAt time.Time         `gorm:"column:created_at;not null;index:ix_audit_logs_tenant_created,priority:2" json:"timestamp"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
