package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/cartridge/fighter/internal/agent"
	"github.com/cartridge/fighter/internal/gamestate"
	"github.com/cartridge/fighter/internal/health"
	"github.com/cartridge/fighter/internal/metrics"
)

type fakeAgent struct {
	status agent.Status
	record *metrics.Record
}

func (f *fakeAgent) ID() string           { return f.status.ID }
func (f *fakeAgent) Status() agent.Status { return f.status }

func (f *fakeAgent) LatestMetrics() (metrics.Record, bool) {
	if f.record == nil {
		return metrics.Record{}, false
	}
	return *f.record, true
}

func newTestHTTP() http.Handler {
	agents := []Agent{
		&fakeAgent{status: agent.Status{ID: "p2", Seat: gamestate.Seat{Self: 2, Opponent: 1}, Tick: 7}},
		&fakeAgent{
			status: agent.Status{ID: "p1", Seat: gamestate.Seat{Self: 1, Opponent: 2}, Algorithm: "random", Tick: 3600},
			record: &metrics.Record{AgentID: "p1", Tick: 3600, Values: map[string]float64{"kdr": 2}},
		},
	}
	return NewHTTP(agents, zerolog.New(io.Discard)).Routes()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	res := httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
	return res
}

func TestHTTP_Health(t *testing.T) {
	res := get(t, newTestHTTP(), "/healthz")
	require.Equal(t, http.StatusOK, res.Code)
	assert.NotEmpty(t, res.Header().Get(correlationHeader))
	assert.JSONEq(t, `{"status":"ok","agents":2}`, res.Body.String())
}

func TestHTTP_ListAgents(t *testing.T) {
	res := get(t, newTestHTTP(), "/api/v1/agents")
	require.Equal(t, http.StatusOK, res.Code)

	var statuses []agent.Status
	require.NoError(t, json.NewDecoder(res.Body).Decode(&statuses))
	require.Len(t, statuses, 2)
	assert.Equal(t, "p1", statuses[0].ID)
	assert.Equal(t, uint64(3600), statuses[0].Tick)
	assert.Equal(t, gamestate.Port(2), statuses[1].Seat.Self)
}

func TestHTTP_AgentAndMetrics(t *testing.T) {
	h := newTestHTTP()

	res := get(t, h, "/api/v1/agents/p1")
	require.Equal(t, http.StatusOK, res.Code)

	res = get(t, h, "/api/v1/agents/p1/metrics")
	require.Equal(t, http.StatusOK, res.Code)
	var rec metrics.Record
	require.NoError(t, json.NewDecoder(res.Body).Decode(&rec))
	assert.Equal(t, 2.0, rec.Values["kdr"])

	// Nothing flushed yet.
	res = get(t, h, "/api/v1/agents/p2/metrics")
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = get(t, h, "/api/v1/agents/p9")
	assert.Equal(t, http.StatusNotFound, res.Code)
	res = get(t, h, "/api/v1/agents/p9/metrics")
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestHTTP_KeepsCorrelationID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(correlationHeader, "abc-123")
	res := httptest.NewRecorder()
	newTestHTTP().ServeHTTP(res, req)
	assert.Equal(t, "abc-123", res.Header().Get(correlationHeader))
}

func TestGRPC_HealthFollowsMonitor(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv, hs := NewGRPC(zerolog.Nop())
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	monitor := health.NewMonitor(hs, health.Config{CheckInterval: time.Hour, StaleAfter: time.Nanosecond}, zerolog.Nop())
	monitor.Register("p1")

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "p1"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	time.Sleep(time.Millisecond)
	monitor.Check()
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "p1"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	monitor.Beat("p1")
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "p1"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	_, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "unknown"})
	assert.Error(t, err)
}
