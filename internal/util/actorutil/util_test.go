package actorutil

import (
	"testing"

	"github.com/berfenger/blueair2mqtt/internal/core/domain"
	"github.com/berfenger/blueair2mqtt/internal/mqtt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsedMQTTCommandToCommand(t *testing.T) {

	assert := assert.New(t)

	fan := func(param, payload string) mqtt.ParsedMQTTCommand {
		return mqtt.ParsedMQTTCommand{DeviceId: "x_fan", Command: mqtt.COMMAND_FAN, Param: param, Payload: payload}
	}

	cmd, err := ParsedMQTTCommandToCommand(fan("", "on"), domain.ENTITY_FAN)
	require.NoError(t, err)
	assert.Equal(domain.SetFanSpeedRequest{Speed: "2"}, cmd)

	cmd, err = ParsedMQTTCommandToCommand(fan("", "off"), domain.ENTITY_FAN)
	require.NoError(t, err)
	assert.Equal(domain.SetFanSpeedRequest{Speed: "0"}, cmd)

	cmd, err = ParsedMQTTCommandToCommand(fan(mqtt.FAN_PARAM_PERCENTAGE, "100"), domain.ENTITY_FAN)
	require.NoError(t, err)
	assert.Equal(domain.SetFanSpeedRequest{Speed: "3"}, cmd)

	cmd, err = ParsedMQTTCommandToCommand(fan(mqtt.FAN_PARAM_PERCENTAGE, "50"), domain.ENTITY_FAN)
	require.NoError(t, err)
	assert.Equal(domain.SetFanSpeedRequest{Speed: "1"}, cmd)

	cmd, err = ParsedMQTTCommandToCommand(fan(mqtt.FAN_PARAM_PRESET_MODE, "auto"), domain.ENTITY_FAN)
	require.NoError(t, err)
	assert.Equal(domain.SetFanModeRequest{Mode: "auto"}, cmd)

	cmd, err = ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{Command: mqtt.COMMAND_SWITCH, Payload: "on"}, domain.ENTITY_CHILD_LOCK)
	require.NoError(t, err)
	assert.Equal(domain.SetChildLockRequest{Locked: true}, cmd)

	cmd, err = ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{Command: mqtt.COMMAND_NUMBER, Payload: "3.0"}, domain.ENTITY_BRIGHTNESS)
	require.NoError(t, err)
	assert.Equal(domain.SetBrightnessRequest{Brightness: 3}, cmd)

	_, err = ParsedMQTTCommandToCommand(fan("", "toggle"), domain.ENTITY_FAN)
	assert.Error(err)
	_, err = ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{Command: mqtt.COMMAND_SWITCH, Payload: "on"}, domain.ENTITY_FAN)
	assert.Error(err, "command platform must match the entity")
}
