package users

import (
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockroom-backend/pkg/db/models"
	"github.com/angelmondragon/stockroom-backend/pkg/enums"
)

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	TenantID               uuid.UUID
	Email                  string
	Username               string
	Role                   enums.UserRole
	NotificationPreference enums.NotificationChannel
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleUser
	}
	pref := c.NotificationPreference
	if pref == "" {
		pref = enums.NotificationChannelEmail
	}
	return &models.User{
		TenantID:               c.TenantID,
		Email:                  strings.ToLower(strings.TrimSpace(c.Email)),
		Username:               strings.TrimSpace(c.Username),
		Role:                   role,
		NotificationPreference: pref,
	}
}
