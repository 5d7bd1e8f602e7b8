package exports

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/stockroom-backend/internal/audit"
	"github.com/angelmondragon/stockroom-backend/pkg/db/models"
	"github.com/angelmondragon/stockroom-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockroom-backend/pkg/errors"
	"github.com/angelmondragon/stockroom-backend/pkg/logger"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryKV struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemoryKV() *memoryKV {
	return &memoryKV{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryKV) Get(_ context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (m *memoryKV) ExportKey(taskID string) string {
	return "stockroom:export:" + taskID
}

type stubAudit struct {
	rows   []models.AuditLog
	err    error
	filter audit.Filter
}

func (s *stubAudit) List(_ context.Context, filter audit.Filter) ([]models.AuditLog, error) {
	s.filter = filter
	return s.rows, s.err
}

func newTestService(t *testing.T, kv *memoryKV, reader *stubAudit) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Store:  NewStore(kv, 30*time.Minute),
		Audit:  reader,
		Logger: logger.New(logger.Options{ServiceName: "exports-test", Level: zerolog.Disabled, Output: io.Discard}),
	})
	require.NoError(t, err)
	svc.spawn = func(fn func()) { fn() }
	return svc
}

func TestStartGeneratesCSV(t *testing.T) {
	tenant := uuid.New()
	user := uuid.New()
	created := time.Date(2024, 4, 2, 9, 30, 0, 0, time.UTC)
	reader := &stubAudit{rows: []models.AuditLog{
		{ID: 2, TenantID: tenant, ItemName: "gloves, nitrile", Action: enums.AuditActionIssue, Quantity: 3, UserID: &user, CreatedAt: created},
		{ID: 1, TenantID: tenant, ItemName: "masks", Action: enums.AuditActionAdd, Quantity: 10, CreatedAt: created.Add(-time.Hour)},
	}}
	kv := newMemoryKV()
	svc := newTestService(t, kv, reader)

	task, err := svc.Start(context.Background(), StartInput{TenantID: tenant, UserID: &user})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, task.Status)
	assert.Equal(t, 30*time.Minute, kv.ttls["stockroom:export:"+task.ID.String()])

	done, err := svc.Get(context.Background(), tenant, task.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDone, done.Status)
	assert.Equal(t, 2, done.Rows)
	require.NotNil(t, done.CompletedAt)

	records, err := csv.NewReader(strings.NewReader(done.CSV)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"2", "2024-04-02T09:30:00Z", "gloves, nitrile", "issue", "3", user.String()}, records[1])
	assert.Equal(t, "", records[2][5])

	require.NotNil(t, reader.filter.TenantID)
	assert.Equal(t, tenant, *reader.filter.TenantID)
	assert.Equal(t, audit.MaxListLimit, reader.filter.Limit)
}

func TestStartRecordsFailure(t *testing.T) {
	tenant := uuid.New()
	svc := newTestService(t, newMemoryKV(), &stubAudit{err: errors.New("db down")})

	task, err := svc.Start(context.Background(), StartInput{TenantID: tenant})
	require.NoError(t, err)

	failed, err := svc.Get(context.Background(), tenant, task.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Empty(t, failed.CSV)
	assert.NotEmpty(t, failed.Error)
}

func TestGetHidesOtherTenantsTasks(t *testing.T) {
	tenant := uuid.New()
	svc := newTestService(t, newMemoryKV(), &stubAudit{})

	task, err := svc.Start(context.Background(), StartInput{TenantID: tenant})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), uuid.New(), task.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = svc.Get(context.Background(), tenant, uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestStartRequiresTenant(t *testing.T) {
	svc := newTestService(t, newMemoryKV(), &stubAudit{})
	_, err := svc.Start(context.Background(), StartInput{})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}
