package health

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type recordingSetter struct {
	mu       sync.Mutex
	statuses map[string]healthpb.HealthCheckResponse_ServingStatus
	calls    int
}

func (r *recordingSetter) SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.statuses == nil {
		r.statuses = make(map[string]healthpb.HealthCheckResponse_ServingStatus)
	}
	r.statuses[service] = status
	r.calls++
}

func (r *recordingSetter) status(service string) healthpb.HealthCheckResponse_ServingStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statuses[service]
}

func TestMonitor_StaleAndRecovery(t *testing.T) {
	setter := &recordingSetter{}
	m := NewMonitor(setter, Config{CheckInterval: time.Second, StaleAfter: 5 * time.Second}, zerolog.Nop())

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Register("p1")
	m.Register("p2")
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, setter.status("p1"))

	now = now.Add(4 * time.Second)
	m.Beat("p2")
	m.Check()
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, setter.status("p1"))

	now = now.Add(2 * time.Second)
	m.Check()
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, setter.status("p1"))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, setter.status("p2"))

	// A second check does not flip the status again.
	calls := setter.calls
	m.Check()
	assert.Equal(t, calls, setter.calls)

	m.Beat("p1")
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, setter.status("p1"))

	m.Stop("p2")
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, setter.status("p2"))

	// Unknown agents are ignored.
	m.Beat("ghost")
	assert.NotContains(t, setter.statuses, "ghost")
}

func TestMonitor_StartStopsWithContext(t *testing.T) {
	setter := &recordingSetter{}
	m := NewMonitor(setter, Config{CheckInterval: time.Millisecond, StaleAfter: time.Millisecond}, zerolog.Nop())
	m.Register("p1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return setter.status("p1") == healthpb.HealthCheckResponse_NOT_SERVING
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, Config{CheckInterval: time.Second, StaleAfter: time.Second}.Validate())
	assert.Error(t, Config{StaleAfter: time.Second}.Validate())
	assert.Error(t, Config{CheckInterval: time.Second}.Validate())
}
