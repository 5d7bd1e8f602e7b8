package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/stockroom-backend/internal/audit"
	"github.com/angelmondragon/stockroom-backend/internal/realtime"
	"github.com/angelmondragon/stockroom-backend/pkg/db"
	"github.com/angelmondragon/stockroom-backend/pkg/db/models"
	"github.com/angelmondragon/stockroom-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockroom-backend/pkg/errors"
	"github.com/angelmondragon/stockroom-backend/pkg/logger"
	"github.com/angelmondragon/stockroom-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is the only entrypoint allowed to change item quantities.
type Service interface {
	Add(ctx context.Context, input AddInput) (*models.Item, error)
	Issue(ctx context.Context, input MoveInput) (*models.Item, error)
	Return(ctx context.Context, input MoveInput) (*models.Item, error)
	Update(ctx context.Context, input UpdateInput) (*models.Item, error)
	Delete(ctx context.Context, input DeleteInput) error
	Transfer(ctx context.Context, input TransferInput) (*TransferResult, error)
	GetStatus(ctx context.Context, tenantID uuid.UUID, name *string) (map[string]ItemSnapshot, error)
	GetHistory(ctx context.Context, tenantID uuid.UUID, name string, limit int) ([]models.AuditLog, error)
	LowStock(ctx context.Context) ([]models.Item, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the ledger's collaborators. Publisher and Metrics are optional.
type ServiceParams struct {
	Repo      Repository
	Audit     audit.Repository
	DB        txRunner
	Publisher realtime.Publisher
	Metrics   *metrics.StockMetrics
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	audit     audit.Repository
	db        txRunner
	publisher realtime.Publisher
	metrics   *metrics.StockMetrics
	logg      *logger.Logger
}

// NewService validates dependencies and returns a ledger service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("item repository required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      params.Repo,
		audit:     params.Audit,
		db:        params.DB,
		publisher: params.Publisher,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

// ItemFields holds the optional attributes of an item. A nil field is left
// untouched; a non-nil field overwrites the stored value, zero included.
type ItemFields struct {
	Threshold    *int
	MinPar       *int
	DepartmentID *uuid.UUID
	CategoryID   *uuid.UUID
	StockCode    *string
	Status       *string
}

func (f ItemFields) validate() error {
	if f.Threshold != nil && *f.Threshold < 0 {
		return fault(ErrInvalidThreshold)
	}
	if f.MinPar != nil && *f.MinPar < 0 {
		return fault(ErrInvalidMinPar)
	}
	return nil
}

func (f ItemFields) columns() map[string]any {
	cols := map[string]any{}
	if f.Threshold != nil {
		cols["threshold"] = *f.Threshold
	}
	if f.MinPar != nil {
		cols["min_par"] = *f.MinPar
	}
	if f.DepartmentID != nil {
		cols["department_id"] = *f.DepartmentID
	}
	if f.CategoryID != nil {
		cols["category_id"] = *f.CategoryID
	}
	if f.StockCode != nil {
		cols["stock_code"] = *f.StockCode
	}
	if f.Status != nil {
		cols["status"] = *f.Status
	}
	return cols
}

type AddInput struct {
	TenantID uuid.UUID
	Name     string
	Quantity int
	Fields   ItemFields
	UserID   *uuid.UUID
}

// MoveInput drives Issue and Return.
type MoveInput struct {
	TenantID uuid.UUID
	Name     string
	Quantity int
	UserID   *uuid.UUID
}

type UpdateInput struct {
	TenantID uuid.UUID
	Name     string
	NewName  *string
	Fields   ItemFields
	UserID   *uuid.UUID
}

type DeleteInput struct {
	TenantID uuid.UUID
	Name     string
	UserID   *uuid.UUID
}

type TransferInput struct {
	FromTenantID uuid.UUID
	ToTenantID   uuid.UUID
	Name         string
	Quantity     int
	UserID       *uuid.UUID
}

// TransferResult holds both legs after commit.
type TransferResult struct {
	Source      models.Item `json:"source"`
	Destination models.Item `json:"destination"`
}

// ItemSnapshot is the read view returned by GetStatus.
type ItemSnapshot struct {
	Available    int        `json:"available"`
	InUse        int        `json:"in_use"`
	Threshold    int        `json:"threshold"`
	MinPar       int        `json:"min_par"`
	DepartmentID *uuid.UUID `json:"department_id"`
	CategoryID   *uuid.UUID `json:"category_id"`
	StockCode    *string    `json:"stock_code"`
	Status       *string    `json:"status"`
}

func snapshotOf(item models.Item) ItemSnapshot {
	return ItemSnapshot{
		Available:    item.Available,
		InUse:        item.InUse,
		Threshold:    item.Threshold,
		MinPar:       item.MinPar,
		DepartmentID: item.DepartmentID,
		CategoryID:   item.CategoryID,
		StockCode:    item.StockCode,
		Status:       item.Status,
	}
}

func (s *service) Add(ctx context.Context, input AddInput) (*models.Item, error) {
	name, err := validateTarget(input.TenantID, input.Name, input.Quantity)
	if err == nil {
		err = input.Fields.validate()
	}
	if err != nil {
		return s.reject(ctx, enums.AuditActionAdd, err)
	}

	var result *models.Item
	err = s.inTx(ctx, func(ctx context.Context, items Repository, logs audit.Repository) error {
		if _, err := items.CreateIfAbsent(ctx, &models.Item{TenantID: input.TenantID, Name: name}); err != nil {
			return dependency(err, "create item")
		}
		item, err := items.FindByNameForUpdate(ctx, input.TenantID, name)
		if err != nil {
			return lookupError(err)
		}
		if _, err := items.MoveStock(ctx, item.ID, input.Quantity, 0); err != nil {
			return dependency(err, "add stock")
		}
		if err := items.ApplyFields(ctx, item.ID, input.Fields.columns()); err != nil {
			return dependency(err, "apply item fields")
		}
		result, err = s.record(ctx, items, logs, item, input.UserID, enums.AuditActionAdd, input.Quantity)
		return err
	})
	return s.finish(ctx, enums.AuditActionAdd, input.TenantID, name, result, err)
}

func (s *service) Issue(ctx context.Context, input MoveInput) (*models.Item, error) {
	return s.move(ctx, enums.AuditActionIssue, input)
}

func (s *service) Return(ctx context.Context, input MoveInput) (*models.Item, error) {
	return s.move(ctx, enums.AuditActionReturn, input)
}

func (s *service) move(ctx context.Context, action enums.AuditAction, input MoveInput) (*models.Item, error) {
	name, err := validateTarget(input.TenantID, input.Name, input.Quantity)
	if err != nil {
		return s.reject(ctx, action, err)
	}

	availableDelta, inUseDelta, shortage := -input.Quantity, input.Quantity, ErrInsufficientStock
	if action == enums.AuditActionReturn {
		availableDelta, inUseDelta, shortage = input.Quantity, -input.Quantity, ErrInvalidReturn
	}

	var result *models.Item
	err = s.inTx(ctx, func(ctx context.Context, items Repository, logs audit.Repository) error {
		item, err := items.FindByNameForUpdate(ctx, input.TenantID, name)
		if err != nil {
			return lookupError(err)
		}
		source := item.Available
		if action == enums.AuditActionReturn {
			source = item.InUse
		}
		if source < input.Quantity {
			return shortageError(shortage, source, input.Quantity)
		}
		applied, err := items.MoveStock(ctx, item.ID, availableDelta, inUseDelta)
		if err != nil {
			return dependency(err, string(action)+" stock")
		}
		if !applied {
			return shortageError(shortage, source, input.Quantity)
		}
		result, err = s.record(ctx, items, logs, item, input.UserID, action, input.Quantity)
		return err
	})
	return s.finish(ctx, action, input.TenantID, name, result, err)
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.Item, error) {
	name, err := validateName(input.TenantID, input.Name)
	if err == nil {
		err = input.Fields.validate()
	}
	var newName string
	if err == nil && input.NewName != nil {
		newName = strings.TrimSpace(*input.NewName)
		if newName == "" {
			err = fault(ErrInvalidName)
		}
	}
	if err != nil {
		return s.reject(ctx, enums.AuditActionUpdate, err)
	}

	var result *models.Item
	err = s.inTx(ctx, func(ctx context.Context, items Repository, logs audit.Repository) error {
		item, err := items.FindByNameForUpdate(ctx, input.TenantID, name)
		if err != nil {
			return lookupError(err)
		}
		cols := input.Fields.columns()
		if newName != "" && newName != item.Name {
			if _, err := items.FindByName(ctx, input.TenantID, newName); err == nil {
				return fault(ErrDuplicateName)
			} else if !errors.Is(err, ErrItemNotFound) {
				return dependency(err, "check item name")
			}
			cols["name"] = newName
		}
		if err := items.ApplyFields(ctx, item.ID, cols); err != nil {
			if db.IsUniqueViolation(err, "") {
				return fault(ErrDuplicateName)
			}
			return dependency(err, "update item")
		}
		result, err = s.record(ctx, items, logs, item, input.UserID, enums.AuditActionUpdate, 0)
		return err
	})
	return s.finish(ctx, enums.AuditActionUpdate, input.TenantID, name, result, err)
}

func (s *service) Delete(ctx context.Context, input DeleteInput) error {
	name, err := validateName(input.TenantID, input.Name)
	if err != nil {
		_, err = s.reject(ctx, enums.AuditActionDelete, err)
		return err
	}

	err = s.inTx(ctx, func(ctx context.Context, items Repository, logs audit.Repository) error {
		item, err := items.FindByNameForUpdate(ctx, input.TenantID, name)
		if err != nil {
			return lookupError(err)
		}
		// The entry is written before the row goes so it still names the item.
		if _, err := logs.Append(ctx, auditEntry(item, input.UserID, enums.AuditActionDelete, 0)); err != nil {
			return dependency(err, "append audit log")
		}
		if err := items.Delete(ctx, item.ID); err != nil {
			return dependency(err, "delete item")
		}
		return nil
	})

	s.metrics.ObserveMutation(string(enums.AuditActionDelete), err)
	if err != nil {
		s.logFailure(ctx, enums.AuditActionDelete, input.TenantID, name, err)
		return err
	}
	s.publish(ctx, input.TenantID, realtime.DeleteEvent(name))
	return nil
}

func (s *service) Transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	name, err := validateTarget(input.FromTenantID, input.Name, input.Quantity)
	if err == nil && input.ToTenantID == uuid.Nil {
		err = pkgerrors.New(pkgerrors.CodeValidation, "destination tenant id is required")
	}
	if err == nil && input.FromTenantID == input.ToTenantID {
		err = fault(ErrSameTenant)
	}
	if err != nil {
		_, err = s.reject(ctx, enums.AuditActionTransfer, err)
		return nil, err
	}

	var result TransferResult
	err = s.inTx(ctx, func(ctx context.Context, items Repository, logs audit.Repository) error {
		if _, err := items.FindByName(ctx, input.FromTenantID, name); err != nil {
			return lookupError(err)
		}
		created, err := items.CreateIfAbsent(ctx, &models.Item{TenantID: input.ToTenantID, Name: name})
		if err != nil {
			return dependency(err, "create destination item")
		}

		// Lock both legs in tenant order so opposite transfers cannot deadlock.
		source, dest, err := lockPair(ctx, items, input.FromTenantID, input.ToTenantID, name)
		if err != nil {
			return err
		}
		if source.Available < input.Quantity {
			return shortageError(ErrInsufficientStock, source.Available, input.Quantity)
		}
		applied, err := items.MoveStock(ctx, source.ID, -input.Quantity, 0)
		if err != nil {
			return dependency(err, "transfer out")
		}
		if !applied {
			return shortageError(ErrInsufficientStock, source.Available, input.Quantity)
		}
		if _, err := items.MoveStock(ctx, dest.ID, input.Quantity, 0); err != nil {
			return dependency(err, "transfer in")
		}
		if created {
			if err := items.ApplyFields(ctx, dest.ID, map[string]any{"threshold": source.Threshold}); err != nil {
				return dependency(err, "copy threshold")
			}
		}

		out, err := s.record(ctx, items, logs, source, input.UserID, enums.AuditActionTransfer, input.Quantity)
		if err != nil {
			return err
		}
		in, err := s.record(ctx, items, logs, dest, input.UserID, enums.AuditActionTransfer, input.Quantity)
		if err != nil {
			return err
		}
		result = TransferResult{Source: *out, Destination: *in}
		return nil
	})

	s.metrics.ObserveMutation(string(enums.AuditActionTransfer), err)
	if err != nil {
		s.logFailure(ctx, enums.AuditActionTransfer, input.FromTenantID, name, err)
		return nil, err
	}
	s.publish(ctx, input.FromTenantID, realtime.TransferEvent(result.Source))
	s.publish(ctx, input.ToTenantID, realtime.TransferEvent(result.Destination))
	return &result, nil
}

func lockPair(ctx context.Context, items Repository, from, to uuid.UUID, name string) (*models.Item, *models.Item, error) {
	first, second := from, to
	if strings.Compare(to.String(), from.String()) < 0 {
		first, second = to, from
	}
	a, err := items.FindByNameForUpdate(ctx, first, name)
	if err != nil {
		return nil, nil, lookupError(err)
	}
	b, err := items.FindByNameForUpdate(ctx, second, name)
	if err != nil {
		return nil, nil, lookupError(err)
	}
	if first == from {
		return a, b, nil
	}
	return b, a, nil
}

func (s *service) GetStatus(ctx context.Context, tenantID uuid.UUID, name *string) (map[string]ItemSnapshot, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		name = &trimmed
	}
	items, err := s.repo.ListByTenant(ctx, tenantID, name)
	if err != nil {
		return nil, dependency(err, "list items")
	}
	out := make(map[string]ItemSnapshot, len(items))
	for _, item := range items {
		out[item.Name] = snapshotOf(item)
	}
	return out, nil
}

// GetHistory returns audit entries for name in the tenant, newest first. A live
// item contributes every entry recorded against its id, including those from
// before a rename; entries recorded under the name by a deleted item of the
// same name are included too.
func (s *service) GetHistory(ctx context.Context, tenantID uuid.UUID, name string, limit int) ([]models.AuditLog, error) {
	name, err := validateName(tenantID, name)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = audit.DefaultHistoryLimit
	}

	filter := audit.Filter{TenantID: &tenantID, ItemName: &name, Limit: limit}
	item, err := s.repo.FindByName(ctx, tenantID, name)
	switch {
	case err == nil:
		filter.ItemID = &item.ID
		filter.EitherItem = true
	case errors.Is(err, ErrItemNotFound):
	default:
		return nil, dependency(err, "find item")
	}

	rows, err := s.audit.List(ctx, filter)
	if err != nil {
		return nil, dependency(err, "list item history")
	}
	return rows, nil
}

// LowStock lists every item across tenants whose available count is below a
// positive threshold.
func (s *service) LowStock(ctx context.Context) ([]models.Item, error) {
	items, err := s.repo.ListBelowThreshold(ctx)
	if err != nil {
		return nil, dependency(err, "list low stock")
	}
	return items, nil
}

// inTx runs fn in one transaction detached from caller cancellation: once
// begun, a mutation commits or rolls back on its own.
func (s *service) inTx(ctx context.Context, fn func(ctx context.Context, items Repository, logs audit.Repository) error) error {
	txCtx := context.WithoutCancel(ctx)
	return s.db.WithTx(txCtx, func(tx *gorm.DB) error {
		return fn(txCtx, s.repo.WithTx(tx), s.audit.WithTx(tx))
	})
}

// record reloads item after its mutation and appends the matching audit entry.
func (s *service) record(ctx context.Context, items Repository, logs audit.Repository, item *models.Item, userID *uuid.UUID, action enums.AuditAction, qty int) (*models.Item, error) {
	updated, err := items.FindByID(ctx, item.ID)
	if err != nil {
		return nil, dependency(err, "reload item")
	}
	if _, err := logs.Append(ctx, auditEntry(updated, userID, action, qty)); err != nil {
		return nil, dependency(err, "append audit log")
	}
	return updated, nil
}

func auditEntry(item *models.Item, userID *uuid.UUID, action enums.AuditAction, qty int) audit.Entry {
	return audit.Entry{
		TenantID: item.TenantID,
		ItemID:   item.ID,
		ItemName: item.Name,
		UserID:   userID,
		Action:   action,
		Quantity: qty,
	}
}

func (s *service) finish(ctx context.Context, action enums.AuditAction, tenantID uuid.UUID, name string, item *models.Item, err error) (*models.Item, error) {
	s.metrics.ObserveMutation(string(action), err)
	if err != nil {
		s.logFailure(ctx, action, tenantID, name, err)
		return nil, err
	}
	s.publish(ctx, tenantID, realtime.UpdateEvent(*item))
	return item, nil
}

func (s *service) reject(ctx context.Context, action enums.AuditAction, err error) (*models.Item, error) {
	s.metrics.ObserveMutation(string(action), err)
	return nil, err
}

func (s *service) publish(ctx context.Context, tenantID uuid.UUID, event realtime.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, tenantID, event); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"tenant_id": tenantID.String(),
			"event":     string(event.Event),
			"item":      event.Item,
		})
		s.logg.Warn(logCtx, fmt.Sprintf("live event not published: %v", err))
	}
}

func (s *service) logFailure(ctx context.Context, action enums.AuditAction, tenantID uuid.UUID, name string, err error) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"tenant_id": tenantID.String(),
		"action":    string(action),
		"item":      name,
	})
	if pkgerrors.CodeOf(err) == pkgerrors.CodeDependency || pkgerrors.CodeOf(err) == pkgerrors.CodeInternal {
		s.logg.Error(logCtx, "stock mutation failed", err)
		return
	}
	s.logg.Info(logCtx, fmt.Sprintf("stock mutation rejected: %v", err))
}

func validateName(tenantID uuid.UUID, name string) (string, error) {
	if tenantID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fault(ErrInvalidName)
	}
	return trimmed, nil
}

func validateTarget(tenantID uuid.UUID, name string, qty int) (string, error) {
	trimmed, err := validateName(tenantID, name)
	if err != nil {
		return "", err
	}
	if qty <= 0 {
		return "", fault(ErrInvalidQuantity)
	}
	return trimmed, nil
}

func lookupError(err error) error {
	if errors.Is(err, ErrItemNotFound) {
		return fault(ErrItemNotFound)
	}
	return dependency(err, "lock item")
}

func shortageError(sentinel error, have, want int) error {
	return fault(sentinel).WithDetails(map[string]any{
		"have":      have,
		"requested": want,
	})
}
