package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/stockroom-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists Item rows. Quantity changes go through MoveStock only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*models.Item, error)
	FindByNameForUpdate(ctx context.Context, tenantID uuid.UUID, name string) (*models.Item, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, name *string) ([]models.Item, error)
	ListBelowThreshold(ctx context.Context) ([]models.Item, error)
	CreateIfAbsent(ctx context.Context, item *models.Item) (bool, error)
	MoveStock(ctx context.Context, id uuid.UUID, availableDelta, inUseDelta int) (bool, error)
	ApplyFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an item repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*models.Item, error) {
	return r.first(r.db.WithContext(ctx), "tenant_id = ? AND name = ?", tenantID, name)
}

// FindByNameForUpdate row-locks the item until the surrounding transaction ends.
func (r *repository) FindByNameForUpdate(ctx context.Context, tenantID uuid.UUID, name string) (*models.Item, error) {
	q := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	return r.first(q, "tenant_id = ? AND name = ?", tenantID, name)
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	return r.first(r.db.WithContext(ctx), "id = ?", id)
}

func (r *repository) first(q *gorm.DB, where string, args ...any) (*models.Item, error) {
	var item models.Item
	if err := q.Where(where, args...).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListByTenant(ctx context.Context, tenantID uuid.UUID, name *string) ([]models.Item, error) {
	q := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if name != nil {
		q = q.Where("name = ?", *name)
	}
	var items []models.Item
	if err := q.Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListBelowThreshold(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	if err := r.db.WithContext(ctx).
		Where("threshold > 0 AND available < threshold").
		Order("tenant_id ASC").
		Order("name ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// CreateIfAbsent inserts item unless (tenant_id, name) already exists. It
// reports whether this call created the row.
func (r *repository) CreateIfAbsent(ctx context.Context, item *models.Item) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "name"}},
			DoNothing: true,
		}).
		Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MoveStock applies both deltas only if neither bucket would go negative. It
// reports false when the guard rejected the change.
func (r *repository) MoveStock(ctx context.Context, id uuid.UUID, availableDelta, inUseDelta int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ?", id).
		Where("available + ? >= 0", availableDelta).
		Where("in_use + ? >= 0", inUseDelta).
		Updates(map[string]any{
			"available":  gorm.Expr("available + ?", availableDelta),
			"in_use":     gorm.Expr("in_use + ?", inUseDelta),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ApplyFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Item{}).Error
}
