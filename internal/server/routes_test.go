package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/berfenger/blueair2mqtt/internal/core/domain"
	"github.com/berfenger/blueair2mqtt/internal/metrics"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMaster struct {
	healthy bool
	devices []domain.GetDeviceStateResponse
}

func (s *stubMaster) Receive(ctx actor.Context) {
	switch ctx.Message().(type) {
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{Id: domain.ACTOR_ID_MASTER, Healthy: s.healthy})
	case domain.ListDevicesRequest:
		ctx.Respond(domain.ListDevicesResponse{Devices: s.devices})
	}
}

func newTestServer(t *testing.T, master *stubMaster) (*Server, *metrics.Metrics) {
	as := actor.NewActorSystem()
	t.Cleanup(as.Shutdown)
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor { return master }))
	m := metrics.New()
	return &Server{rootContext: as.Root, masterActor: pid, metrics: m}, m
}

func serve(s *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.RegisterRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthCheck(t *testing.T) {

	s, _ := newTestServer(t, &stubMaster{healthy: true})
	rec := serve(s, "/healthcheck")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "health_check: OK", rec.Body.String())

	s, _ = newTestServer(t, &stubMaster{healthy: false})
	rec = serve(s, "/healthcheck")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDevices(t *testing.T) {

	assert := assert.New(t)

	lastUpdate := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	master := &stubMaster{healthy: true, devices: []domain.GetDeviceStateResponse{
		{
			State: domain.DeviceState{
				Identity: domain.NewDeviceIdentity("uuid-1", "Office", "aa:bb", "", true),
				Snapshot: domain.Snapshot{
					Info:       map[string]any{"nickname": "Office", "compatibility": "classic_480i"},
					Attributes: map[string]any{"fan_speed": "1"},
				},
			},
			Available:  true,
			LastUpdate: lastUpdate,
		},
		{
			State: domain.DeviceState{Identity: domain.NewDeviceIdentity("uuid-2", "Bedroom", "", "", false)},
		},
	}}
	s, _ := newTestServer(t, master)

	rec := serve(s, "/devices")
	require.Equal(t, http.StatusOK, rec.Code)

	var devices []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &devices))
	require.Len(t, devices, 2)
	assert.Equal("uuid-1", devices[0]["uuid"])
	assert.Equal("Office", devices[0]["name"])
	assert.Equal("classic_480i", devices[0]["model"])
	assert.Equal(true, devices[0]["available"])
	assert.Equal("2024-01-02T03:04:05Z", devices[0]["last_update"])
	assert.Equal("Bedroom", devices[1]["name"], "name falls back to the coordinator name")
	assert.NotContains(devices[1], "last_update")
}

func TestMetricsEndpoint(t *testing.T) {

	s, m := newTestServer(t, &stubMaster{healthy: true})
	m.ObservePoll("uuid-1", 150*time.Millisecond, nil)

	rec := serve(s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "uuid-1"))
}
