package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/stockroom-backend/pkg/db/models"
	"github.com/angelmondragon/stockroom-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultRecentLimit  = 10
	DefaultHistoryLimit = 100
	MaxListLimit        = 1000
)

// Entry is the data the ledger hands over for one mutation.
type Entry struct {
	TenantID uuid.UUID
	ItemID   uuid.UUID
	ItemName string
	UserID   *uuid.UUID
	Action   enums.AuditAction
	Quantity int
}

// Filter narrows List; nil fields are ignored.
type Filter struct {
	TenantID *uuid.UUID
	ItemID   *uuid.UUID
	ItemName *string
	Actions  []enums.AuditAction
	Since    *time.Time
	// EitherItem matches rows by ItemID or ItemName instead of both. It only
	// applies when both are set.
	EitherItem bool
	Limit      int
	// Ascending flips the default newest-first order.
	Ascending bool
}

// Repository appends and reads audit entries. Append must run on the
// transaction handle of the mutation it describes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, entry Entry) (*models.AuditLog, error)
	List(ctx context.Context, filter Filter) ([]models.AuditLog, error)
}

type repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return NewRepositoryWithClock(db, time.Now)
}

// NewRepositoryWithClock is NewRepository with an injectable timestamp source.
func NewRepositoryWithClock(db *gorm.DB, now func() time.Time) Repository {
	if now == nil {
		now = time.Now
	}
	return &repository{db: db, now: now}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx, now: r.now}
}

func (r *repository) Append(ctx context.Context, entry Entry) (*models.AuditLog, error) {
	if entry.TenantID == uuid.Nil {
		return nil, fmt.Errorf("audit tenant id is required")
	}
	if entry.ItemID == uuid.Nil {
		return nil, fmt.Errorf("audit item id is required")
	}
	if !entry.Action.IsValid() {
		return nil, fmt.Errorf("invalid audit action %q", entry.Action)
	}

	row := &models.AuditLog{
		TenantID:  entry.TenantID,
		ItemID:    entry.ItemID,
		ItemName:  entry.ItemName,
		UserID:    entry.UserID,
		Action:    entry.Action,
		Quantity:  entry.Quantity,
		CreatedAt: r.now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *repository) List(ctx context.Context, filter Filter) ([]models.AuditLog, error) {
	q := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if filter.TenantID != nil {
		q = q.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.EitherItem && filter.ItemID != nil && filter.ItemName != nil {
		q = q.Where("(item_id = ? OR item_name = ?)", *filter.ItemID, *filter.ItemName)
	} else {
		if filter.ItemID != nil {
			q = q.Where("item_id = ?", *filter.ItemID)
		}
		if filter.ItemName != nil {
			q = q.Where("item_name = ?", *filter.ItemName)
		}
	}
	if len(filter.Actions) > 0 {
		q = q.Where("action IN ?", filter.Actions)
	}
	if filter.Since != nil {
		q = q.Where("created_at >= ?", filter.Since.UTC())
	}
	if filter.Ascending {
		q = q.Order("created_at ASC").Order("id ASC")
	} else {
		q = q.Order("created_at DESC").Order("id DESC")
	}
	if filter.Limit > 0 {
		q = q.Limit(min(filter.Limit, MaxListLimit))
	}

	var rows []models.AuditLog
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		limit = fallback
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
