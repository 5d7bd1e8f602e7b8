package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockroom-backend/pkg/enums"
)

// User is a tenant member; the stock core only reads it for attribution and
// alert routing.
type User struct {
	ID                     uuid.UUID                 `gorm:"type:uuid;primaryKey"`
	TenantID               uuid.UUID                 `gorm:"column:tenant_id;type:uuid;not null;index"`
	Email                  string                    `gorm:"column:email;type:text;not null;uniqueIndex"`
	Username               string                    `gorm:"column:username;type:text;not null"`
	Role                   enums.UserRole            `gorm:"column:role;type:text;not null;default:'user'"`
	NotificationPreference enums.NotificationChannel `gorm:"column:notification_preference;type:text;not null;default:'email'"`
	CreatedAt              time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
