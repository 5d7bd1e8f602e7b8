package audit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/angelmondragon/stockroom-backend/pkg/db/models"
	"github.com/angelmondragon/stockroom-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockroom-backend/pkg/errors"
	"github.com/google/uuid"
)

const DefaultUsageDays = 30

// UsageDay aggregates issued and returned quantities for one UTC day.
type UsageDay struct {
	Date     string `json:"date"`
	Issued   int    `json:"issued"`
	Returned int    `json:"returned"`
}

// UsageQuery selects the audit window to aggregate. ItemName nil means all items.
type UsageQuery struct {
	TenantID uuid.UUID
	ItemName *string
	Days     int
}

// Service is the read side of the audit log used by the HTTP layer and exports.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires the read service over the audit repository.
func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &Service{repo: repo, now: time.Now}, nil
}

// Recent returns the tenant's newest audit entries.
func (s *Service) Recent(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.AuditLog, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	rows, err := s.repo.List(ctx, Filter{
		TenantID: &tenantID,
		Limit:    clampLimit(limit, DefaultRecentLimit),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list audit logs")
	}
	return rows, nil
}

// Usage groups issue and return entries by UTC day, oldest first. Days without
// activity are omitted.
func (s *Service) Usage(ctx context.Context, query UsageQuery) ([]UsageDay, error) {
	if query.TenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	days := query.Days
	if days <= 0 {
		days = DefaultUsageDays
	}
	since := s.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)

	rows, err := s.repo.List(ctx, Filter{
		TenantID:  &query.TenantID,
		ItemName:  query.ItemName,
		Actions:   []enums.AuditAction{enums.AuditActionIssue, enums.AuditActionReturn},
		Since:     &since,
		Ascending: true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list usage logs")
	}
	return aggregateUsage(rows), nil
}

func aggregateUsage(rows []models.AuditLog) []UsageDay {
	byDay := map[string]*UsageDay{}
	for _, row := range rows {
		key := row.CreatedAt.UTC().Format(time.DateOnly)
		day, ok := byDay[key]
		if !ok {
			day = &UsageDay{Date: key}
			byDay[key] = day
		}
		switch row.Action {
		case enums.AuditActionIssue:
			day.Issued += row.Quantity
		case enums.AuditActionReturn:
			day.Returned += row.Quantity
		}
	}

	out := make([]UsageDay, 0, len(byDay))
	for _, day := range byDay {
		out = append(out, *day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
