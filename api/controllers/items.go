package controllers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/stockroom-backend/api/responses"
	"github.com/angelmondragon/stockroom-backend/api/validators"
	"github.com/angelmondragon/stockroom-backend/internal/audit"
	"github.com/angelmondragon/stockroom-backend/internal/ledger"
	"github.com/angelmondragon/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stockroom-backend/pkg/errors"
	"github.com/angelmondragon/stockroom-backend/pkg/logger"
)

type itemFieldsRequest struct {
	Threshold    *int       `json:"threshold" validate:"omitempty,min=0"`
	MinPar       *int       `json:"min_par" validate:"omitempty,min=0"`
	DepartmentID *uuid.UUID `json:"department_id"`
	CategoryID   *uuid.UUID `json:"category_id"`
	StockCode    *string    `json:"stock_code" validate:"omitempty,max=64"`
	Status       *string    `json:"status" validate:"omitempty,max=32"`
}

func (f itemFieldsRequest) toFields() ledger.ItemFields {
	return ledger.ItemFields{
		Threshold:    f.Threshold,
		MinPar:       f.MinPar,
		DepartmentID: f.DepartmentID,
		CategoryID:   f.CategoryID,
		StockCode:    f.StockCode,
		Status:       f.Status,
	}
}

type addItemRequest struct {
	Item     string `json:"item" validate:"required,max=255"`
	Quantity int    `json:"quantity"`
	itemFieldsRequest
}

type moveItemRequest struct {
	Item     string `json:"item" validate:"required,max=255"`
	Quantity int    `json:"quantity"`
}

type updateItemRequest struct {
	Name *string `json:"name" validate:"omitempty,max=255"`
	itemFieldsRequest
}

type transferItemRequest struct {
	Item       string    `json:"item" validate:"required,max=255"`
	Quantity   int       `json:"quantity"`
	ToTenantID uuid.UUID `json:"to_tenant_id"`
}

// AddItem creates the item or tops up its available count.
func AddItem(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := callerIdentity(w, r, logg)
		if !ok {
			return
		}
		var req addItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Add(r.Context(), ledger.AddInput{
			TenantID: id.TenantID,
			Name:     req.Item,
			Quantity: req.Quantity,
			Fields:   req.toFields(),
			UserID:   userRef(id),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func IssueItem(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return moveItem(func(ctx context.Context, input ledger.MoveInput) (*models.Item, error) {
		return svc.Issue(ctx, input)
	}, logg)
}

func ReturnItem(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return moveItem(func(ctx context.Context, input ledger.MoveInput) (*models.Item, error) {
		return svc.Return(ctx, input)
	}, logg)
}

func moveItem(move func(ctx context.Context, input ledger.MoveInput) (*models.Item, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := callerIdentity(w, r, logg)
		if !ok {
			return
		}
		var req moveItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := move(r.Context(), ledger.MoveInput{
			TenantID: id.TenantID,
			Name:     req.Item,
			Quantity: req.Quantity,
			UserID:   userRef(id),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// UpdateItem renames the item or overwrites the attributes present in the body.
func UpdateItem(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := callerIdentity(w, r, logg)
		if !ok {
			return
		}
		var req updateItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Update(r.Context(), ledger.UpdateInput{
			TenantID: id.TenantID,
			Name:     itemNameParam(r),
			NewName:  req.Name,
			Fields:   req.toFields(),
			UserID:   userRef(id),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func DeleteItem(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := callerIdentity(w, r, logg)
		if !ok {
			return
		}
		name := itemNameParam(r)
		err := svc.Delete(r.Context(), ledger.DeleteInput{
			TenantID: id.TenantID,
			Name:     name,
			UserID:   userRef(id),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"deleted": name})
	}
}

// TransferItem moves available stock from the caller's tenant to another tenant.
func TransferItem(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := callerIdentity(w, r, logg)
		if !ok {
			return
		}
		var req transferItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.ToTenantID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "to_tenant_id is required"))
			return
		}

		result, err := svc.Transfer(r.Context(), ledger.TransferInput{
			FromTenantID: id.TenantID,
			ToTenantID:   req.ToTenantID,
			Name:         req.Item,
			Quantity:     req.Quantity,
			UserID:       userRef(id),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ItemStatus returns every item of the tenant keyed by name, or just the one
// named by ?name=.
func ItemStatus(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := callerIdentity(w, r, logg)
		if !ok {
			return
		}
		var name *string
		if r.URL.Query().Has("name") {
			value, err := validators.QueryText(r, "name", maxItemNameLen)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			name = &value
		}

		status, err := svc.GetStatus(r.Context(), id.TenantID, name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

func ItemHistory(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := callerIdentity(w, r, logg)
		if !ok {
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", audit.DefaultHistoryLimit, 1, audit.MaxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.GetHistory(r.Context(), id.TenantID, itemNameParam(r), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func itemNameParam(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
