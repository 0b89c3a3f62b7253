package monitor

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndreGCGuerra/dune/bus"
	"github.com/AndreGCGuerra/dune/config"
	"github.com/AndreGCGuerra/dune/entity"
	"github.com/AndreGCGuerra/dune/health"
	"github.com/AndreGCGuerra/dune/message"
	"github.com/AndreGCGuerra/dune/metric"
	"github.com/AndreGCGuerra/dune/task"
)

// startService walks the service through its lifecycle phases directly so
// tests stay single-threaded around its state.
func startService(t *testing.T) (*Service, *entity.Database) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := entity.NewDatabase()
	reg := metric.NewMetricsRegistry()

	s := New(task.Context{
		Bus:     bus.New(logger),
		DB:      db,
		Profile: config.NewSafeProfile(nil),
		Logger:  logger,
		Metrics: reg,
	})

	require.NoError(t, s.Params().Apply(map[string]string{
		"HTTP - Address": "127.0.0.1:0",
	}))
	require.NoError(t, s.OnUpdateParameters())
	require.NoError(t, s.OnResourceAcquisition())
	t.Cleanup(s.OnResourceRelease)

	return s, db
}

// report builds an EntityState attributed to a reserved entity.
func report(t *testing.T, db *entity.Database, label string,
	state message.OperationalState, desc string) *message.EntityState {
	t.Helper()
	id, err := db.Reserve(label, "testtask")
	require.NoError(t, err)

	es := message.NewEntityState(state, message.CodeNone, desc)
	es.SetSource("testtask", id)
	return es
}

func TestHealthEndpointAggregatesEntityStates(t *testing.T) {
	s, db := startService(t)

	s.consumeEntityState(report(t, db, "Motor 0", message.StateNormal, ""))
	s.consumeEntityState(report(t, db, "Motor 1", message.StateError, "watchdog"))

	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var agg health.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&agg))
	assert.Equal(t, "degraded", agg.Status)
	require.Len(t, agg.SubStatuses, 2)
}

func TestHealthEndpointUnhealthyOnFault(t *testing.T) {
	s, db := startService(t)

	s.consumeEntityState(report(t, db, "Motor 2", message.StateFault, "dead"))

	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestEntitiesEndpointListsLabels(t *testing.T) {
	s, db := startService(t)

	s.consumeEntityState(report(t, db, "Camera", message.StateNormal, "capturing"))

	resp, err := http.Get("http://" + s.Addr() + "/entities")
	require.NoError(t, err)
	defer resp.Body.Close()

	var all map[string]health.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&all))
	require.Contains(t, all, "Camera")
	assert.Equal(t, "capturing", all["Camera"].Message)
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	s, _ := startService(t)

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "dune_")
}

func TestWebsocketStreamsStateEvents(t *testing.T) {
	s, db := startService(t)

	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+s.Addr()+"/ws", nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	s.consumeEntityState(report(t, db, "Motor 3", message.StateError, "silent"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev StateEvent
	require.NoError(t, json.Unmarshal(payload, &ev))
	assert.Equal(t, "Motor 3", ev.Entity)
	assert.Equal(t, "error", ev.State)
	assert.Equal(t, "silent", ev.Description)
}

func TestUnknownSourceFallsBackToTaskName(t *testing.T) {
	s, _ := startService(t)

	es := message.NewEntityState(message.StateNormal, message.CodeActive, "")
	es.SetSource("navigator", message.UnknownEntity)
	s.consumeEntityState(es)

	status, exists := s.monitor.Get("navigator")
	require.True(t, exists)
	assert.True(t, status.IsHealthy())
}
