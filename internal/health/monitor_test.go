package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	calls    atomic.Int32
	failures map[string]error
}

func (f *fakeChecker) List() []string { return []string{"groq", "openrouter"} }

func (f *fakeChecker) HealthCheck(ctx context.Context) map[string]error {
	f.calls.Add(1)
	return f.failures
}

func TestMonitor_Check(t *testing.T) {
	checker := &fakeChecker{failures: map[string]error{"openrouter": errors.New("401 unauthorized")}}
	monitor := NewMonitor(checker, time.Minute)

	assert.Empty(t, monitor.Snapshot())

	statuses := monitor.Check(context.Background())
	require.Len(t, statuses, 2)
	assert.Equal(t, "groq", statuses[0].Name)
	assert.True(t, statuses[0].Healthy)
	assert.Equal(t, "openrouter", statuses[1].Name)
	assert.False(t, statuses[1].Healthy)
	assert.Equal(t, "401 unauthorized", statuses[1].Error)

	assert.Equal(t, statuses, monitor.Snapshot())
}

func TestMonitor_StartStop(t *testing.T) {
	checker := &fakeChecker{}
	monitor := NewMonitor(checker, 10*time.Millisecond)

	monitor.Start()
	require.Eventually(t, func() bool { return checker.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	monitor.Stop()
	monitor.Stop()

	calls := checker.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, checker.calls.Load())
}

func TestNewMonitor_DefaultInterval(t *testing.T) {
	assert.Equal(t, DefaultInterval, NewMonitor(&fakeChecker{}, 0).interval)
}
