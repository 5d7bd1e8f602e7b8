package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Item is a named stock line inside a tenant with available and in-use buckets.
type Item struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID     uuid.UUID  `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:ux_items_tenant_name,priority:1" json:"tenant_id"`
	Name         string     `gorm:"column:name;type:text;not null;uniqueIndex:ux_items_tenant_name,priority:2" json:"name"`
	Available    int        `gorm:"column:available;not null;default:0;check:chk_items_available,available >= 0" json:"available"`
	InUse        int        `gorm:"column:in_use;not null;default:0;check:chk_items_in_use,in_use >= 0" json:"in_use"`
	Threshold    int        `gorm:"column:threshold;not null;default:0;check:chk_items_threshold,threshold >= 0" json:"threshold"`
	MinPar       int        `gorm:"column:min_par;not null;default:0;check:chk_items_min_par,min_par >= 0" json:"min_par"`
	DepartmentID *uuid.UUID `gorm:"column:department_id;type:uuid" json:"department_id"`
	CategoryID   *uuid.UUID `gorm:"column:category_id;type:uuid" json:"category_id"`
	StockCode    *string    `gorm:"column:stock_code;type:text" json:"stock_code"`
	Status       *string    `gorm:"column:status;type:text" json:"status"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (i *Item) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// BelowThreshold reports whether the item should raise a low-stock alert.
func (i Item) BelowThreshold() bool {
	return i.Threshold > 0 && i.Available < i.Threshold
}
