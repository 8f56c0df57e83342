package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttributeWrite(t *testing.T) {

	assert := assert.New(t)

	s := testState(map[string]any{"child_lock": "0"})

	name, value, err := AttributeWrite(SetFanSpeedRequest{Speed: "3"}, s)
	assert.NoError(err)
	assert.Equal("fan_speed", name)
	assert.Equal("3", value)

	_, _, err = AttributeWrite(SetFanSpeedRequest{Speed: "4"}, s)
	assert.Error(err)

	name, value, err = AttributeWrite(SetBrightnessRequest{Brightness: 2}, s)
	assert.NoError(err)
	assert.Equal("brightness", name)
	assert.Equal(2, value)

	_, _, err = AttributeWrite(SetBrightnessRequest{Brightness: 9}, s)
	assert.Error(err)

	name, value, err = AttributeWrite(SetChildLockRequest{Locked: true}, s)
	assert.NoError(err)
	assert.Equal("child_lock", name)
	assert.Equal("1", value)

	name, value, err = AttributeWrite(SetFanModeRequest{Mode: "auto"}, s)
	assert.NoError(err)
	assert.Equal("mode", name)
	assert.Equal("auto", value)
}
