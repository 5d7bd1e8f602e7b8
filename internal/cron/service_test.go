package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/stockroom-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// heldLock reports whether the cycle may run; release counts Release calls.
type heldLock struct {
	busy     bool
	err      error
	releases int
}

func (l *heldLock) Acquire(context.Context) (bool, error) { return !l.busy, l.err }

func (l *heldLock) Release(context.Context) error {
	l.releases++
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func newCycleService(t *testing.T, lock Lock, reg prometheus.Registerer, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Logger:   quietLogger(),
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	require.NoError(t, err)
	return svc
}

func TestRunCycleContinuesPastFailingMonitor(t *testing.T) {
	reg := prometheus.NewRegistry()
	monitor := &countingJob{name: "threshold-monitor", err: errors.New("ledger unavailable")}
	cleanup := &countingJob{name: "notification-cleanup"}
	lock := &heldLock{}
	svc := newCycleService(t, lock, reg, monitor, cleanup)

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Equal(t, 1, monitor.runs)
	assert.Equal(t, 1, cleanup.runs)
	assert.Equal(t, 1, lock.releases)

	families, err := reg.Gather()
	require.NoError(t, err)
	outcomes := map[string]string{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			for _, label := range m.GetLabel() {
				if label.GetName() == "job" {
					outcomes[label.GetValue()] = mf.GetName()
				}
			}
		}
	}
	assert.Equal(t, "stockroom_cron_job_failure_total", outcomes["threshold-monitor"])
	assert.Equal(t, "stockroom_cron_job_success_total", outcomes["notification-cleanup"])
}

func TestRunCycleSkipsWhileAnotherWorkerHoldsLock(t *testing.T) {
	monitor := &countingJob{name: "threshold-monitor"}
	lock := &heldLock{busy: true}
	svc := newCycleService(t, lock, nil, monitor)

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Zero(t, monitor.runs)
	assert.Zero(t, lock.releases)
}

func TestRunCycleSurfacesLockError(t *testing.T) {
	monitor := &countingJob{name: "threshold-monitor"}
	svc := newCycleService(t, &heldLock{err: errors.New("redis down")}, nil, monitor)

	err := svc.runCycle(context.Background())
	assert.ErrorContains(t, err, "redis down")
	assert.Zero(t, monitor.runs)
}

func TestNewServiceRequiresLoggerAndLock(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: &heldLock{}})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Logger: quietLogger()})
	assert.Error(t, err)
}
