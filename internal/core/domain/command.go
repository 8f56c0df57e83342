package domain

import (
	"fmt"
	"slices"
)

// DeviceCommandRequest is a user action routed to a device coordinator.
type DeviceCommandRequest interface {
	ActorRequest
	DeviceCommand() string
}

type DeviceCommandRequestMixIn struct {
	ActorRequestMixIn
}

type DeviceCommandResponse struct {
	ActorResponseMixIn
	Command string
}

type SetBrightnessRequest struct {
	DeviceCommandRequestMixIn
	Brightness int
}

func (SetBrightnessRequest) DeviceCommand() string { return "set_brightness" }

type SetFanSpeedRequest struct {
	DeviceCommandRequestMixIn
	Speed string
}

func (SetFanSpeedRequest) DeviceCommand() string { return "set_fan_speed" }

type SetFanModeRequest struct {
	DeviceCommandRequestMixIn
	Mode string
}

func (SetFanModeRequest) DeviceCommand() string { return "set_fan_mode" }

type SetChildLockRequest struct {
	DeviceCommandRequestMixIn
	Locked bool
}

func (SetChildLockRequest) DeviceCommand() string { return "set_child_lock" }

var fanSpeeds = []string{"0", "1", "2", "3"}

// AttributeWrite resolves the attribute and the encoded value a command
// writes, given the current device state.
func AttributeWrite(cmd DeviceCommandRequest, state DeviceState) (string, any, error) {
	switch c := cmd.(type) {
	case SetBrightnessRequest:
		if c.Brightness < 0 || c.Brightness > BRIGHTNESS_MAX {
			return "", nil, fmt.Errorf("brightness %d out of range [0, %d]", c.Brightness, BRIGHTNESS_MAX)
		}
		return ATTRIBUTE_BRIGHTNESS, c.Brightness, nil
	case SetFanSpeedRequest:
		if !slices.Contains(fanSpeeds, c.Speed) {
			return "", nil, fmt.Errorf("invalid fan speed %q", c.Speed)
		}
		return ATTRIBUTE_FAN_SPEED, c.Speed, nil
	case SetFanModeRequest:
		if c.Mode == "" {
			return "", nil, fmt.Errorf("empty fan mode")
		}
		return ATTRIBUTE_MODE, c.Mode, nil
	case SetChildLockRequest:
		value, err := state.ChildLockWriteValue(c.Locked)
		if err != nil {
			return "", nil, err
		}
		return ATTRIBUTE_CHILD_LOCK, value, nil
	}
	return "", nil, fmt.Errorf("unsupported command %T", cmd)
}

// ensure interface compliance
var _ DeviceCommandRequest = (*SetChildLockRequest)(nil)
