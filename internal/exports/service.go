package exports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/angelmondragon/stockroom-backend/internal/audit"
	"github.com/angelmondragon/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stockroom-backend/pkg/errors"
	"github.com/angelmondragon/stockroom-backend/pkg/logger"
	"github.com/google/uuid"
)

const (
	defaultMaxEntries = 1000
	generateTimeout   = time.Minute
)

var csvHeader = []string{"id", "timestamp", "item", "action", "quantity", "user_id"}

type auditReader interface {
	List(ctx context.Context, filter audit.Filter) ([]models.AuditLog, error)
}

type taskStore interface {
	Save(ctx context.Context, task *Task) error
	Load(ctx context.Context, id uuid.UUID) (*Task, error)
}

type ServiceParams struct {
	Store      taskStore
	Audit      auditReader
	Logger     *logger.Logger
	MaxEntries int
}

// StartInput scopes an audit export. Since and ItemName are optional.
type StartInput struct {
	TenantID uuid.UUID
	UserID   *uuid.UUID
	ItemName *string
	Since    *time.Time
}

// Service runs audit CSV exports in the background and serves their results.
type Service struct {
	store      taskStore
	audit      auditReader
	logg       *logger.Logger
	maxEntries int
	now        func() time.Time
	spawn      func(func())
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("export store required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit reader required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	maxEntries := params.MaxEntries
	if maxEntries <= 0 || maxEntries > audit.MaxListLimit {
		maxEntries = min(defaultMaxEntries, audit.MaxListLimit)
	}
	return &Service{
		store:      params.Store,
		audit:      params.Audit,
		logg:       params.Logger,
		maxEntries: maxEntries,
		now:        time.Now,
		spawn:      func(fn func()) { go fn() },
	}, nil
}

// Start records a pending task and generates it asynchronously.
func (s *Service) Start(ctx context.Context, input StartInput) (*Task, error) {
	if input.TenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	task := &Task{
		ID:          uuid.New(),
		TenantID:    input.TenantID,
		RequestedBy: input.UserID,
		Status:      StatusPending,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.Save(ctx, task); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store export task")
	}

	pending := *task
	bg := context.WithoutCancel(ctx)
	s.spawn(func() {
		genCtx, cancel := context.WithTimeout(bg, generateTimeout)
		defer cancel()
		s.generate(genCtx, &pending, input)
	})
	return task, nil
}

// Get returns a task owned by tenantID. Tasks of other tenants are reported
// as not found.
func (s *Service) Get(ctx context.Context, tenantID, taskID uuid.UUID) (*Task, error) {
	task, err := s.store.Load(ctx, taskID)
	if err != nil {
		if errors.Is(err, errTaskNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "export task not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load export task")
	}
	if task.TenantID != tenantID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "export task not found")
	}
	return task, nil
}

func (s *Service) generate(ctx context.Context, task *Task, input StartInput) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"tenant_id": task.TenantID.String(),
		"task_id":   task.ID.String(),
	})

	tenantID := task.TenantID
	rows, err := s.audit.List(ctx, audit.Filter{
		TenantID: &tenantID,
		ItemName: input.ItemName,
		Since:    input.Since,
		Limit:    s.maxEntries,
	})
	var body string
	if err == nil {
		body, err = encodeCSV(rows)
	}

	completed := s.now().UTC()
	task.CompletedAt = &completed
	if err != nil {
		task.Status = StatusFailed
		task.Error = "export generation failed"
		s.logg.Error(logCtx, "audit export failed", err)
	} else {
		task.Status = StatusDone
		task.Rows = len(rows)
		task.CSV = body
	}
	if err := s.store.Save(ctx, task); err != nil {
		s.logg.Error(logCtx, "failed to store export result", err)
		return
	}
	s.logg.Info(s.logg.WithField(logCtx, "rows", task.Rows), "audit export complete")
}

func encodeCSV(rows []models.AuditLog) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, row := range rows {
		userID := ""
		if row.UserID != nil {
			userID = row.UserID.String()
		}
		record := []string{
			strconv.FormatInt(row.ID, 10),
			row.CreatedAt.UTC().Format(time.RFC3339),
			row.ItemName,
			string(row.Action),
			strconv.Itoa(row.Quantity),
			userID,
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}
