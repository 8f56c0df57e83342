package domain

import "fmt"

type SensorUpdateEventMixIn struct {
	Id string
	// Missing marks a value the device did not report.
	Missing bool
}

type SensorUpdateEvent interface {
	SensorUpdateEvent() string
	SensorId() string
}

func (e SensorUpdateEventMixIn) SensorUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

type FloatSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

type BinarySensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type SwitchSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type InputNumberSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

type FanUpdateEvent struct {
	SensorUpdateEventMixIn
	On         bool
	Percentage int
	// PresetMode is empty when the fan runs without a preset.
	PresetMode string
}

type AvailabilityUpdateEvent struct {
	SensorUpdateEventMixIn
	Available bool
}

// DeviceStateEvent is published by a coordinator after every poll and after
// every optimistic update.
type DeviceStateEvent struct {
	State     DeviceState
	Available bool
	Err       error
}

// ensure interface compliance
var _ SensorUpdateEvent = (*FanUpdateEvent)(nil)
