package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/stockroom-backend/api/responses"
	"github.com/angelmondragon/stockroom-backend/api/validators"
	"github.com/angelmondragon/stockroom-backend/internal/exports"
	pkgerrors "github.com/angelmondragon/stockroom-backend/pkg/errors"
	"github.com/angelmondragon/stockroom-backend/pkg/logger"
)

type exportService interface {
	Start(ctx context.Context, input exports.StartInput) (*exports.Task, error)
	Get(ctx context.Context, tenantID, taskID uuid.UUID) (*exports.Task, error)
}

type startExportRequest struct {
	Item  *string    `json:"item" validate:"omitempty,max=255"`
	Since *time.Time `json:"since"`
}

// StartAuditExport queues a CSV export of the caller tenant's audit log. The
// body is optional.
func StartAuditExport(svc exportService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := callerIdentity(w, r, logg)
		if !ok {
			return
		}
		var req startExportRequest
		if r.ContentLength != 0 && r.Body != http.NoBody {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		task, err := svc.Start(r.Context(), exports.StartInput{
			TenantID: id.TenantID,
			UserID:   userRef(id),
			ItemName: req.Item,
			Since:    req.Since,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, task)
	}
}

// GetAuditExport returns the task state. With ?format=csv a finished task is
// served as a CSV attachment.
func GetAuditExport(svc exportService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := callerIdentity(w, r, logg)
		if !ok {
			return
		}
		taskID, err := uuid.Parse(chi.URLParam(r, "taskId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid task id"))
			return
		}

		task, err := svc.Get(r.Context(), id.TenantID, taskID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
			if task.Status != exports.StatusDone {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("export is %s", task.Status)))
				return
			}
			responses.WriteCSV(w, fmt.Sprintf("audit-%s.csv", task.ID), []byte(task.CSV))
			return
		}
		responses.WriteSuccess(w, task)
	}
}
