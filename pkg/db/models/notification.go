package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockroom-backend/pkg/enums"
)

// Notification records one successful low-stock delivery on one channel.
type Notification struct {
	ID        uuid.UUID                 `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID                 `gorm:"column:tenant_id;type:uuid;not null;index" json:"tenant_id"`
	ItemID    uuid.UUID                 `gorm:"column:item_id;type:uuid;not null;index" json:"item_id"`
	Message   string                    `gorm:"column:message;type:text;not null" json:"message"`
	Channel   enums.NotificationChannel `gorm:"column:channel;type:text;not null" json:"channel"`
	CreatedAt time.Time                 `gorm:"column:created_at;not null;index" json:"created_at"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
