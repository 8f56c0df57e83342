package actor

import (
	"errors"
	"testing"
	"time"

	adactor "github.com/berfenger/blueair2mqtt/internal/adapter/actor"
	"github.com/berfenger/blueair2mqtt/internal/core/domain"
	"github.com/berfenger/blueair2mqtt/internal/util"
	"github.com/berfenger/blueair2mqtt/internal/util/actorutil"
	"github.com/berfenger/blueair2mqtt/pkg/blueair"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type coordinatorFixture struct {
	as          *actor.ActorSystem
	client      *blueair.TestClient
	coordinator *actor.PID
	events      chan domain.DeviceStateEvent
}

func newCoordinatorFixture(t *testing.T) *coordinatorFixture {
	return newCoordinatorFixtureWith(t, 1, nil)
}

// newCoordinatorFixtureWith runs setup on the client before the coordinator
// starts its first fetch.
func newCoordinatorFixtureWith(t *testing.T, workers int, setup func(client *blueair.TestClient)) *coordinatorFixture {
	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)

	client := blueair.CreateTestClient()
	if setup != nil {
		setup(client)
	}
	var blueairPID *actor.PID
	if workers > 1 {
		blueairPID = as.Root.Spawn(adactor.NewBlueairPoolProps(client, workers, cfg.Blueair.UpdateTimeout(), logger))
	} else {
		blueairPID = as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
			return adactor.NewBlueairActor(client, cfg.Blueair.UpdateTimeout(), logger)
		}))
	}

	es := &eventstream.EventStream{}
	ch := make(chan domain.DeviceStateEvent, 64)
	es.Subscribe(func(evt any) {
		if e, ok := evt.(domain.DeviceStateEvent); ok {
			ch <- e
		}
	})

	identity := domain.NewDeviceIdentity("test-uuid-280i", "Living Room", "00:11:22:33:44:55", "", true)
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewDeviceCoordinatorActor(&cfg, identity, blueairPID, es, nil, logger)
	}))
	t.Cleanup(func() {
		as.Root.Stop(pid)
		as.Shutdown()
	})
	return &coordinatorFixture{as: as, client: client, coordinator: pid, events: ch}
}

func (f *coordinatorFixture) nextEvent(t *testing.T) domain.DeviceStateEvent {
	select {
	case e := <-f.events:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("no device state event")
	}
	return domain.DeviceStateEvent{}
}

func (f *coordinatorFixture) refresh(t *testing.T) domain.RefreshResponse {
	result, err := f.as.Root.RequestFuture(f.coordinator, domain.RefreshRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	return result.(domain.RefreshResponse)
}

func TestCoordinatorFirstRefresh(t *testing.T) {

	assert := assert.New(t)

	f := newCoordinatorFixture(t)

	event := f.nextEvent(t)
	assert.True(event.Available)
	assert.NoError(event.Err)
	assert.Equal("Living Room", event.State.DeviceName())
	assert.Equal("blueair-Living Room", event.State.Identity.Name)
	assert.Equal("classic_280i", event.State.Model())
	assert.Equal(domain.ChildLockStringFlag, event.State.LockKind)

	result, err := f.as.Root.RequestFuture(f.coordinator, domain.GetDeviceStateRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.GetDeviceStateResponse)
	assert.True(resp.Available)
	assert.False(resp.LastUpdate.IsZero())
	temperature, ok := resp.State.Temperature()
	assert.True(ok)
	assert.Equal(21.456, temperature)
}

func TestCoordinatorDataPointFailureKeepsReadings(t *testing.T) {

	assert := assert.New(t)

	f := newCoordinatorFixture(t)
	f.nextEvent(t)

	f.client.SetFailures(nil, blueair.ErrUnsupported, nil)
	f.client.SetAttribute("test-uuid-280i", "fan_speed", "1")

	resp := f.refresh(t)
	assert.NoError(resp.ResponseError)
	speed, _ := resp.State.FanSpeed()
	assert.Equal(1, speed, "attributes refreshed")
	humidity, ok := resp.State.Humidity()
	assert.True(ok, "previous data point kept")
	assert.Equal(44.6, humidity)
}

func TestCoordinatorDataPointFailureOnFirstRefresh(t *testing.T) {

	assert := assert.New(t)

	f := newCoordinatorFixtureWith(t, 1, func(client *blueair.TestClient) {
		client.SetFailures(nil, errors.New("data point down"), nil)
	})

	event := f.nextEvent(t)
	assert.True(event.Available)
	assert.NoError(event.Err)
	_, ok := event.State.Temperature()
	assert.False(ok, "no readings yet")
	_, ok = event.State.VOC()
	assert.False(ok, "no readings yet")
	speed, ok := event.State.FanSpeed()
	assert.True(ok)
	assert.Equal(2, speed)
	assert.Equal("classic_280i", event.State.Model())

	f.client.SetFailures(nil, nil, nil)
	resp := f.refresh(t)
	assert.NoError(resp.ResponseError)
	temperature, ok := resp.State.Temperature()
	assert.True(ok, "readings appear once the data point recovers")
	assert.InDelta(21.5, temperature, 0.05)
}

func TestCoordinatorUpdateFailure(t *testing.T) {

	assert := assert.New(t)

	f := newCoordinatorFixture(t)
	f.nextEvent(t)

	failure := errors.New("attributes down")
	f.client.SetFailures(nil, nil, failure)

	resp := f.refresh(t)
	var updateFailed *domain.UpdateFailedError
	require.ErrorAs(t, resp.ResponseError, &updateFailed)
	assert.Equal("test-uuid-280i", updateFailed.UUID)
	assert.ErrorIs(resp.ResponseError, failure)

	event := f.nextEvent(t)
	assert.False(event.Available)

	// next successful poll recovers
	f.client.SetFailures(nil, nil, nil)
	resp = f.refresh(t)
	assert.NoError(resp.ResponseError)
}

func TestCoordinatorJoinsRefreshInFlight(t *testing.T) {

	f := newCoordinatorFixture(t)
	f.nextEvent(t)
	before := f.client.InfoCallCount()

	f.client.SetDelay(300 * time.Millisecond)
	first := f.as.Root.RequestFuture(f.coordinator, domain.RefreshRequest{}, 5*time.Second)
	second := f.as.Root.RequestFuture(f.coordinator, domain.RefreshRequest{}, 5*time.Second)
	_, err := first.Result()
	require.NoError(t, err)
	_, err = second.Result()
	require.NoError(t, err)

	assert.Equal(t, before+1, f.client.InfoCallCount(), "one fetch serves both requests")
}

func TestCoordinatorCommands(t *testing.T) {

	assert := assert.New(t)

	f := newCoordinatorFixture(t)
	f.nextEvent(t)

	commands := []domain.DeviceCommandRequest{
		domain.SetFanSpeedRequest{Speed: "3"},
		domain.SetChildLockRequest{Locked: true},
		domain.SetBrightnessRequest{Brightness: 1},
		domain.SetFanModeRequest{Mode: "auto"},
	}
	for _, cmd := range commands {
		result, err := f.as.Root.RequestFuture(f.coordinator, cmd, 5*time.Second).Result()
		require.NoError(t, err)
		resp := result.(domain.DeviceCommandResponse)
		assert.NoError(resp.ResponseError, cmd.DeviceCommand())
		assert.Equal(cmd.DeviceCommand(), resp.Command)
	}

	assert.Equal([]blueair.TestWrite{
		{UUID: "test-uuid-280i", Attribute: "fan_speed", Value: "3"},
		{UUID: "test-uuid-280i", Attribute: "child_lock", Value: "1"},
		{UUID: "test-uuid-280i", Attribute: "brightness", Value: "1"},
		{UUID: "test-uuid-280i", Attribute: "mode", Value: "auto"},
	}, f.client.RecordedWrites(), "child lock keeps the string encoding")

	resp := f.refresh(t)
	mode, ok := resp.State.FanMode()
	assert.True(ok)
	assert.Equal("auto", mode)
}

func TestCoordinatorOptimisticUpdate(t *testing.T) {

	assert := assert.New(t)

	f := newCoordinatorFixture(t)
	f.nextEvent(t)

	result, err := f.as.Root.RequestFuture(f.coordinator, domain.SetFanSpeedRequest{Speed: "0"}, 5*time.Second).Result()
	require.NoError(t, err)
	assert.NoError(result.(domain.DeviceCommandResponse).ResponseError)

	event := f.nextEvent(t)
	on, ok := event.State.IsOn()
	assert.True(ok)
	assert.False(on, "state published before the refresh")
}

func TestCoordinatorInvalidCommand(t *testing.T) {

	f := newCoordinatorFixture(t)
	f.nextEvent(t)

	result, err := f.as.Root.RequestFuture(f.coordinator, domain.SetFanSpeedRequest{Speed: "7"}, 5*time.Second).Result()
	require.NoError(t, err)
	assert.Error(t, result.(domain.DeviceCommandResponse).ResponseError)

	result, err = f.as.Root.RequestFuture(f.coordinator, domain.SetBrightnessRequest{Brightness: 9}, 5*time.Second).Result()
	require.NoError(t, err)
	assert.Error(t, result.(domain.DeviceCommandResponse).ResponseError)

	assert.Empty(t, f.client.RecordedWrites())
}

func TestCoordinatorWriteFailure(t *testing.T) {

	f := newCoordinatorFixture(t)
	f.nextEvent(t)

	f.client.SetAttribute("test-uuid-280i", "fan_speed", "2")
	failure := errors.New("write rejected")
	f.client.SetWriteError(failure)

	result, err := f.as.Root.RequestFuture(f.coordinator, domain.SetFanSpeedRequest{Speed: "1"}, 5*time.Second).Result()
	require.NoError(t, err)
	assert.ErrorIs(t, result.(domain.DeviceCommandResponse).ResponseError, failure)

	result, err = f.as.Root.RequestFuture(f.coordinator, domain.GetDeviceStateRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	speed, _ := result.(domain.GetDeviceStateResponse).State.FanSpeed()
	assert.Equal(t, 2, speed, "no optimistic update on failure")
}

func TestCoordinatorWriteDuringRefreshRefetches(t *testing.T) {

	assert := assert.New(t)

	f := newCoordinatorFixtureWith(t, 2, nil)
	f.nextEvent(t)

	// the refresh copies fan_speed "2" and returns only after the write
	f.client.SetAttributesLag(500 * time.Millisecond)
	refresh := f.as.Root.RequestFuture(f.coordinator, domain.RefreshRequest{}, 5*time.Second)
	time.Sleep(100 * time.Millisecond)

	result, err := f.as.Root.RequestFuture(f.coordinator, domain.SetFanSpeedRequest{Speed: "0"}, 5*time.Second).Result()
	require.NoError(t, err)
	assert.NoError(result.(domain.DeviceCommandResponse).ResponseError)
	f.client.SetAttributesLag(0)

	result, err = refresh.Result()
	require.NoError(t, err)
	speed, ok := result.(domain.RefreshResponse).State.FanSpeed()
	assert.True(ok)
	assert.Equal(0, speed, "snapshot read before the write is discarded")

	result, err = f.as.Root.RequestFuture(f.coordinator, domain.GetDeviceStateRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	speed, _ = result.(domain.GetDeviceStateResponse).State.FanSpeed()
	assert.Equal(0, speed)
}
