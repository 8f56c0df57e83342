package events

import (
	"testing"

	"github.com/berfenger/blueair2mqtt/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testState() domain.DeviceState {
	return domain.DeviceState{
		Identity: domain.NewDeviceIdentity("test-uuid-280i", "Living Room", "00:11:22:33:44:55", "living", true),
		Snapshot: domain.Snapshot{
			Info: map[string]any{"nickname": "Living Room", "compatibility": "classic_280i"},
			DataPoint: map[string]float64{
				"temperature": 21.456,
				"humidity":    44.6,
				"voc":         10,
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

func eventsById(events []any) map[string]any {
	byId := map[string]any{}
	for _, e := range events {
		if ev, ok := e.(domain.SensorUpdateEvent); ok {
			byId[ev.SensorId()] = e
		}
	}
	return byId
}

func TestDeviceComponents(t *testing.T) {

	assert := assert.New(t)

	bridge := BridgeDevice("blueair")
	c := DeviceComponents(testState(), bridge)

	assert.Len(c.Sensors, 9, "6 sensors without pm1/pm10 plus 3 binary sensors")
	assert.Len(c.Fans, 1)
	assert.Len(c.Switches, 1)
	assert.Len(c.InputNumbers, 1)

	fan := c.Fans[0]
	assert.Equal("test_uuid_280i_fan", fan.Id)
	assert.Equal("test-uuid-280i_Fan", fan.UniqueId)
	assert.Equal("living_fan", fan.ObjectId)
	assert.Equal("blueair_test_uuid_280i", fan.AvailabilityId)
	assert.Equal([]string{"auto"}, fan.PresetModes)
	assert.Equal(3, fan.SpeedCount)

	assert.Equal("Living Room", fan.Device.Name)
	assert.Equal("classic_280i", fan.Device.Model)
	assert.Equal("BlueAir", fan.Device.Manufacturer)
	assert.Equal(bridge.Id, fan.Device.ViaDevice)

	assert.Equal("test-uuid-280i_Child Lock", c.Switches[0].UniqueId)
	assert.Equal(0.0, c.InputNumbers[0].Min)
	assert.Equal(4.0, c.InputNumbers[0].Max)
}

func TestDeviceComponentsClassic(t *testing.T) {

	state := testState()
	state.Snapshot.Info["compatibility"] = "classic_101"
	c := DeviceComponents(state, BridgeDevice("blueair"))

	assert.Empty(t, c.Sensors)
	assert.Empty(t, c.Switches)
	assert.Empty(t, c.InputNumbers)
	assert.Len(t, c.Fans, 1)
}

func TestCommandEntities(t *testing.T) {

	assert.Equal(t, map[string]string{
		"test_uuid_280i_fan":        domain.ENTITY_FAN,
		"test_uuid_280i_child_lock": domain.ENTITY_CHILD_LOCK,
		"test_uuid_280i_brightness": domain.ENTITY_BRIGHTNESS,
	}, CommandEntities(testState()))
}

func TestDeviceStateToUpdateEvents(t *testing.T) {

	assert := assert.New(t)

	events := DeviceStateToUpdateEvents(testState(), true)
	byId := eventsById(events)

	avail, ok := byId["blueair_test_uuid_280i"].(domain.AvailabilityUpdateEvent)
	require.True(t, ok)
	assert.True(avail.Available)

	temp := byId["test_uuid_280i_temperature"].(domain.FloatSensorUpdateEvent)
	assert.Equal(21.5, temp.Value)
	assert.Equal(uint(1), temp.Decimals)

	voc := byId["test_uuid_280i_voc"].(domain.FloatSensorUpdateEvent)
	assert.Equal(49.1, voc.Value)

	co2 := byId["test_uuid_280i_co2"].(domain.FloatSensorUpdateEvent)
	assert.True(co2.Missing)

	fan := byId["test_uuid_280i_fan"].(domain.FanUpdateEvent)
	assert.True(fan.On)
	assert.Equal(67, fan.Percentage)
	assert.Equal("", fan.PresetMode, "manual mode has no preset")

	lock := byId["test_uuid_280i_child_lock"].(domain.SwitchSensorUpdateEvent)
	assert.True(lock.Value)

	brightness := byId["test_uuid_280i_brightness"].(domain.InputNumberSensorUpdateEvent)
	assert.Equal(3.0, brightness.Value)
}

func TestUnavailableDeviceOnlyReportsAvailability(t *testing.T) {

	events := DeviceStateToUpdateEvents(testState(), false)
	require.Len(t, events, 1)
	avail := events[0].(domain.AvailabilityUpdateEvent)
	assert.False(t, avail.Available)
}
