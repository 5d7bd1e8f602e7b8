package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/stockroom-backend/internal/notifications"
	"github.com/angelmondragon/stockroom-backend/internal/realtime"
	"github.com/angelmondragon/stockroom-backend/pkg/db/models"
	"github.com/angelmondragon/stockroom-backend/pkg/logger"
	"github.com/angelmondragon/stockroom-backend/pkg/metrics"
	"github.com/google/uuid"
)

type lowStockSource interface {
	LowStock(ctx context.Context) ([]models.Item, error)
}

type tenantDirectory interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.User, error)
}

type alertDispatcher interface {
	Dispatch(ctx context.Context, alert notifications.Alert, users []models.User) notifications.DispatchResult
}

type ThresholdMonitorJobParams struct {
	Logger     *logger.Logger
	Ledger     lowStockSource
	Users      tenantDirectory
	Dispatcher alertDispatcher
	Publisher  realtime.Publisher
	Metrics    *metrics.StockMetrics
}

// ScanResult counts one monitor pass. Alerted counts items handed to the
// dispatcher. Failed counts items where a user lookup or event publish went
// wrong; delivery failures stay inside the dispatcher.
type ScanResult struct {
	Scanned int
	Alerted int
	Failed  int
}

// ThresholdMonitorJob alerts on every item below its threshold. It never
// writes to items.
type ThresholdMonitorJob struct {
	logg       *logger.Logger
	ledger     lowStockSource
	users      tenantDirectory
	dispatcher alertDispatcher
	publisher  realtime.Publisher
	metrics    *metrics.StockMetrics
	now        func() time.Time
}

func NewThresholdMonitorJob(params ThresholdMonitorJobParams) (*ThresholdMonitorJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users directory required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	return &ThresholdMonitorJob{
		logg:       params.Logger,
		ledger:     params.Ledger,
		users:      params.Users,
		dispatcher: params.Dispatcher,
		publisher:  params.Publisher,
		metrics:    params.Metrics,
		now:        time.Now,
	}, nil
}

func (j *ThresholdMonitorJob) Name() string { return "threshold-monitor" }

func (j *ThresholdMonitorJob) Run(ctx context.Context) error {
	_, err := j.RunOnce(ctx, j.now())
	return err
}

// RunOnce scans all tenants. Only the initial low-stock query can fail the
// scan; each item is handled in isolation.
func (j *ThresholdMonitorJob) RunOnce(ctx context.Context, now time.Time) (ScanResult, error) {
	items, err := j.ledger.LowStock(ctx)
	if err != nil {
		return ScanResult{}, fmt.Errorf("list low stock items: %w", err)
	}

	result := ScanResult{Scanned: len(items)}
	directory := make(map[uuid.UUID][]models.User)
	for _, item := range items {
		dispatched, ok := j.alert(ctx, item, directory)
		if dispatched {
			result.Alerted++
		}
		if !ok {
			result.Failed++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned_at": now.UTC(),
		"scanned":    result.Scanned,
		"alerted":    result.Alerted,
		"failed":     result.Failed,
	})
	j.logg.Info(logCtx, "threshold scan complete")
	return result, nil
}

// alert reports whether the dispatcher was invoked and whether every step
// succeeded.
func (j *ThresholdMonitorJob) alert(ctx context.Context, item models.Item, directory map[uuid.UUID][]models.User) (bool, bool) {
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"tenant_id": item.TenantID.String(),
		"item":      item.Name,
	})
	j.metrics.IncLowStockAlert()
	ok := true

	users, cached := directory[item.TenantID]
	if !cached {
		loaded, err := j.users.ListByTenant(ctx, item.TenantID)
		if err != nil {
			j.logg.Error(logCtx, "failed to load tenant users", err)
			ok = false
		} else {
			users = loaded
			directory[item.TenantID] = loaded
		}
	}

	dispatched := ok
	if dispatched {
		alert := notifications.Alert{
			TenantID: item.TenantID,
			ItemID:   item.ID,
			ItemName: item.Name,
			Message:  AlertMessage(item),
		}
		delivery := j.dispatcher.Dispatch(ctx, alert, users)
		if delivery.Failed > 0 {
			j.logg.Warn(j.logg.WithField(logCtx, "failed_deliveries", delivery.Failed), "some low stock alerts were not delivered")
		}
	}

	if j.publisher != nil {
		if err := j.publisher.Publish(ctx, item.TenantID, realtime.LowStockEvent(item)); err != nil {
			j.logg.Error(logCtx, "failed to publish low stock event", err)
			ok = false
		}
	}
	return dispatched, ok
}

// AlertMessage is the text delivered for a low-stock item.
func AlertMessage(item models.Item) string {
	return fmt.Sprintf("%s is below threshold: %d < %d", item.Name, item.Available, item.Threshold)
}
