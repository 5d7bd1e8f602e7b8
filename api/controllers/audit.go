package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockroom-backend/api/responses"
	"github.com/angelmondragon/stockroom-backend/api/validators"
	"github.com/angelmondragon/stockroom-backend/internal/audit"
	"github.com/angelmondragon/stockroom-backend/pkg/db/models"
	"github.com/angelmondragon/stockroom-backend/pkg/logger"
)

const (
	maxUsageDays   = 366
	maxItemNameLen = 255
)

type auditReader interface {
	Recent(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.AuditLog, error)
	Usage(ctx context.Context, query audit.UsageQuery) ([]audit.UsageDay, error)
}

// RecentAuditLogs lists the caller tenant's newest audit entries.
func RecentAuditLogs(svc auditReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := callerIdentity(w, r, logg)
		if !ok {
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", audit.DefaultRecentLimit, 1, audit.MaxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.Recent(r.Context(), id.TenantID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// UsageAnalytics returns per-day issued and returned totals.
func UsageAnalytics(svc auditReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := callerIdentity(w, r, logg)
		if !ok {
			return
		}
		days, err := validators.ParseQueryInt(r, "days", audit.DefaultUsageDays, 1, maxUsageDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := audit.UsageQuery{TenantID: id.TenantID, Days: days}
		item, err := validators.QueryText(r, "item", maxItemNameLen)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if item != "" {
			query.ItemName = &item
		}

		usage, err := svc.Usage(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, usage)
	}
}
