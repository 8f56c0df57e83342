package actor

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/berfenger/blueair2mqtt/internal/core/domain"
	"github.com/berfenger/blueair2mqtt/internal/mqtt"
	"github.com/berfenger/blueair2mqtt/internal/util"
	"github.com/berfenger/blueair2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu       sync.Mutex
	messages []PublishedMessage
}

func (r *recorder) record(msg PublishedMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recorder) byTopic() map[string]PublishedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]PublishedMessage{}
	for _, m := range r.messages {
		out[m.Topic] = m
	}
	return out
}

func testDeviceState() domain.DeviceState {
	return domain.DeviceState{
		Identity: domain.NewDeviceIdentity("test-uuid-280i", "Living Room", "00:11:22:33:44:55", "", true),
		Snapshot: domain.Snapshot{
			Info: map[string]any{"nickname": "Living Room", "compatibility": "classic_280i"},
			DataPoint: map[string]float64{
				"temperature": 21.456,
				"humidity":    44.6,
			},
			Attributes: map[string]any{
				"fan_speed":     "2",
				"mode":          "manual",
				"filter_status": "OK",
				"child_lock":    "1",
				"wifi_status":   "1",
				"brightness":    "3",
			},
		},
	}
}

func TestMQTTActor(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	es := eventstream.EventStream{}
	rec := &recorder{}

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, &es, rec.record, logger) })
	pid := context.Spawn(props)

	time.Sleep(500 * time.Millisecond)

	msg := domain.ActorHealthRequest{}
	result, err := context.RequestFuture(pid, msg, 2*time.Second).Result()
	require.NoError(t, err)
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.True(t, resp.Healthy)

	es.Publish(domain.DeviceStateEvent{State: testDeviceState(), Available: true})

	time.Sleep(500 * time.Millisecond)

	topics := rec.byTopic()
	assert.Equal(t, "online", topics["blueair/bridge/state"].Payload)
	assert.Equal(t, "online", topics["blueair/device/blueair_test_uuid_280i/availability"].Payload)
	assert.Equal(t, "21.5", topics["blueair/sensor/test_uuid_280i_temperature/state"].Payload)
	assert.Equal(t, "None", topics["blueair/sensor/test_uuid_280i_co2/state"].Payload, "missing value")
	assert.Equal(t, "on", topics["blueair/fan/test_uuid_280i_fan/state"].Payload)
	assert.Equal(t, "67", topics["blueair/fan/test_uuid_280i_fan/percentage"].Payload)
	assert.Equal(t, "None", topics["blueair/fan/test_uuid_280i_fan/preset_mode"].Payload, "manual mode has no preset")
	assert.Equal(t, "on", topics["blueair/switch/test_uuid_280i_child_lock/state"].Payload)
	assert.True(t, topics["blueair/switch/test_uuid_280i_child_lock/state"].Retain)
	assert.Equal(t, "3", topics["blueair/number/test_uuid_280i_brightness/state"].Payload)

	context.Stop(pid)

	time.Sleep(500 * time.Millisecond)

	assert.Equal(t, "offline", rec.byTopic()["blueair/bridge/state"].Payload)

	as.Shutdown()
}

func TestMQTTActorUnavailableDevice(t *testing.T) {

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()

	es := eventstream.EventStream{}
	rec := &recorder{}
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, &es, rec.record, logger) }))
	defer as.Root.Stop(pid)

	time.Sleep(500 * time.Millisecond)

	es.Publish(domain.DeviceStateEvent{State: testDeviceState(), Available: false})

	time.Sleep(500 * time.Millisecond)

	topics := rec.byTopic()
	assert.Equal(t, "offline", topics["blueair/device/blueair_test_uuid_280i/availability"].Payload)
	_, published := topics["blueair/sensor/test_uuid_280i_temperature/state"]
	assert.False(t, published)
}

func TestDiscoveryMessages(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	client := mqtt.CreateMQTTClient(&cfg, mqtt.OptsFromConfig(&cfg), nil, nil)

	device := domain.Device{Id: "blueair_test_uuid_280i", Name: "Living Room"}
	req := domain.PublishDiscoveryRequest{
		Fans: []domain.GenericFan{{
			EntityMixIn: domain.EntityMixIn{Device: device, Id: "test_uuid_280i_fan", Name: "Fan", UniqueId: "test-uuid-280i_Fan"},
			SpeedCount:  3,
		}},
		Removed: []domain.RemovedComponent{{Platform: "sensor", DeviceId: "blueair_test_uuid_280i", Id: "test_uuid_280i_pm1"}},
	}
	messages, err := DiscoveryMessages(client, req)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal("homeassistant/fan/blueair_test_uuid_280i/test_uuid_280i_fan/config", messages[0].Topic)
	assert.True(messages[0].Retain)
	var config map[string]any
	require.NoError(t, json.Unmarshal([]byte(messages[0].Payload), &config))
	assert.Equal("blueair/fan/test_uuid_280i_fan/command", config["command_topic"])

	assert.Equal("homeassistant/sensor/blueair_test_uuid_280i/test_uuid_280i_pm1/config", messages[1].Topic)
	assert.Empty(messages[1].Payload, "removed components are cleared")
	assert.True(messages[1].Retain)
}
