package mqtt

import (
	"strings"
	"testing"

	"github.com/berfenger/blueair2mqtt/internal/config"
	"github.com/berfenger/blueair2mqtt/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *MQTTClient {
	cfg := config.Config{MQTT: config.MQTTConfig{
		Host:             "localhost",
		Port:             1883,
		BaseTopic:        "blueair",
		HADiscoveryTopic: "homeassistant",
	}}
	return CreateMQTTClient(&cfg, OptsFromConfig(&cfg), nil, nil)
}

func TestSwitchCommandParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/switch/my_device/command"
	r := switchCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "my_device", "device extract")
}

func TestSwitchCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/switch/my_device/state"
	r := switchCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(len(matches), 0, "no matches")
}

func TestInputNumberCommandParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/number/number_name/set"
	r := inputNumberCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "number_name", "number_id extract")
}

func TestInputNumberCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/switch/number_name/command"
	r := inputNumberCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(len(matches), 0, "no matches")
}

func TestFanCommandParse(t *testing.T) {

	assert := assert.New(t)
	c := testClient()

	cmd, err := c.parseCommand("blueair/fan/uuid_fan/command", "on")
	require.NoError(t, err)
	assert.Equal(ParsedMQTTCommand{DeviceId: "uuid_fan", Command: COMMAND_FAN, Payload: "on"}, *cmd)

	cmd, err = c.parseCommand("blueair/fan/uuid_fan/percentage/set", "67")
	require.NoError(t, err)
	assert.Equal(FAN_PARAM_PERCENTAGE, cmd.Param)
	assert.Equal("67", cmd.Payload)

	cmd, err = c.parseCommand("blueair/fan/uuid_fan/preset_mode/set", "auto")
	require.NoError(t, err)
	assert.Equal(FAN_PARAM_PRESET_MODE, cmd.Param)

	_, err = c.parseCommand("blueair/fan/uuid_fan/percentage/set", "fast")
	assert.Error(err, "percentage must be numeric")
	_, err = c.parseCommand("blueair/fan/uuid_fan/set", "on")
	assert.Error(err)
	_, err = c.parseCommand("blueair/fan/uuid_fan/percentage", "67")
	assert.Error(err, "state topics are not commands")
}

func TestNumberCommandRequiresNumber(t *testing.T) {

	c := testClient()

	cmd, err := c.parseCommand("blueair/number/uuid_brightness/set", "3")
	require.NoError(t, err)
	assert.Equal(t, COMMAND_NUMBER, cmd.Command)

	_, err = c.parseCommand("blueair/number/uuid_brightness/set", "bright")
	assert.Error(t, err)
}

func TestTopics(t *testing.T) {

	assert := assert.New(t)
	c := testClient()

	assert.Equal("blueair/bridge/state", c.BridgeStateTopic())
	assert.Equal("blueair/device/blueair_x/availability", c.DeviceAvailabilityTopic("blueair_x"))
	assert.Equal("blueair/fan/x_fan/percentage/set", c.FanPercentageCommandTopic("x_fan"))
	assert.Equal("homeassistant/fan/blueair_x/x_fan/config", c.HADiscoveryTopic("fan", "blueair_x", "x_fan"))
}

// filterMatches implements MQTT filter matching for the '+' wildcard.
func filterMatches(filter, topic string) bool {
	fl := strings.Split(filter, "/")
	tl := strings.Split(topic, "/")
	if len(fl) != len(tl) {
		return false
	}
	for i := range fl {
		if fl[i] != "+" && fl[i] != tl[i] {
			return false
		}
	}
	return true
}

func anyFilterMatches(filters []string, topic string) bool {
	for _, f := range filters {
		if filterMatches(f, topic) {
			return true
		}
	}
	return false
}

func TestCommandTopics(t *testing.T) {

	c := testClient()
	filters := c.CommandTopics()

	assert.Equal(t, []string{
		"blueair/switch/+/command",
		"blueair/number/+/set",
		"blueair/fan/+/command",
		"blueair/fan/+/+/set",
	}, filters)

	commands := []string{
		c.SwitchCommandTopic("uuid_child_lock"),
		c.InputNumberCommandTopic("uuid_brightness"),
		c.FanCommandTopic("uuid_fan"),
		c.FanPercentageCommandTopic("uuid_fan"),
		c.FanPresetModeCommandTopic("uuid_fan"),
	}
	for _, topic := range commands {
		assert.True(t, anyFilterMatches(filters, topic), topic)
	}

	states := []string{
		c.BridgeStateTopic(),
		c.DeviceAvailabilityTopic("uuid"),
		c.SensorStateTopic("uuid_pm25"),
		c.BinarySensorStateTopic("uuid_filter"),
		c.SwitchStateTopic("uuid_child_lock"),
		c.InputNumberStateTopic("uuid_brightness"),
		c.FanStateTopic("uuid_fan"),
		c.FanPercentageStateTopic("uuid_fan"),
		c.FanPresetModeStateTopic("uuid_fan"),
	}
	for _, topic := range states {
		assert.False(t, anyFilterMatches(filters, topic), topic)
		_, err := c.parseCommand(topic, "on")
		assert.Error(t, err, topic)
	}
}

func TestFanDiscoveryMessage(t *testing.T) {

	assert := assert.New(t)
	c := testClient()

	fan := domain.GenericFan{
		EntityMixIn: domain.EntityMixIn{
			Device:         domain.Device{Id: "blueair_x", Name: "Office", MAC: "aa:bb"},
			Id:             "x_fan",
			Name:           "Fan",
			UniqueId:       "x_Fan",
			ObjectId:       "office_fan",
			AvailabilityId: "blueair_x",
		},
		SpeedCount: 3,
	}
	msg := GenericFanToHADiscoveryMessage(c, fan)
	assert.Equal("fan.office_fan", msg.DefaultEntityId)
	assert.Equal("blueair/fan/x_fan/percentage", msg.PercentageStateTopic)
	assert.Empty(msg.PresetModeCommandTopic, "no presets without mode support")
	assert.Equal([][2]string{{"mac", "aa:bb"}}, msg.Device.Connections)
	assert.Len(msg.Availability, 2)
	assert.Equal("all", msg.AvailabilityMode)

	fan.PresetModes = []string{domain.FAN_MODE_AUTO}
	msg = GenericFanToHADiscoveryMessage(c, fan)
	assert.Equal([]string{"auto"}, msg.PresetModes)
	assert.Equal("blueair/fan/x_fan/preset_mode/set", msg.PresetModeCommandTopic)
}

func TestNumberDiscoveryKeepsZeroMin(t *testing.T) {

	c := testClient()
	msg := GenericInputNumberToHADiscoveryMessage(c, domain.GenericInputNumber{
		EntityMixIn: domain.EntityMixIn{Id: "x_brightness"},
		Min:         0,
		Max:         4,
		Step:        1,
	})
	require.NotNil(t, msg.Min)
	assert.Equal(t, 0.0, *msg.Min)
	assert.Equal(t, "", msg.DefaultEntityId)
}

func TestBridgeSensorDiscoveryMessage(t *testing.T) {

	c := testClient()
	msg := GenericSensorToHADiscoveryMessage(c, domain.GenericSensor{
		EntityMixIn: domain.EntityMixIn{Id: domain.SENSOR_ID_BRIDGE_STATE},
		SensorType:  domain.PLATFORM_BINARY_SENSOR,
	})
	assert.Equal(t, "blueair/bridge/state", msg.StateTopic)
	assert.Equal(t, MQTT_PAYLOAD_ONLINE, msg.PayloadOn)
	assert.Nil(t, msg.Availability)
}
