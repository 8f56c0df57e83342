package events

import (
	. "github.com/berfenger/blueair2mqtt/internal/core/domain"
)

// DeviceStateToUpdateEvents projects a device state into the update events
// of its entities. An unavailable device only reports its availability.
func DeviceStateToUpdateEvents(state DeviceState, available bool) []any {
	uuid := state.ID()
	events := []any{
		AvailabilityUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: DeviceId(uuid),
			},
			Available: available,
		},
	}
	if !available {
		return events
	}

	projections := ProjectionsFor(state.Model())
	for _, p := range projections.Sensors {
		value, ok := p.Value(state)
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id:      EntityId(uuid, p.Key),
				Missing: !ok,
			},
			Value:    value,
			Decimals: p.Decimals,
		})
	}
	for _, p := range projections.BinarySensors {
		value, ok := p.Value(state)
		events = append(events, BinarySensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id:      EntityId(uuid, p.Key),
				Missing: !ok,
			},
			Value: value,
		})
	}
	for _, p := range projections.Fans {
		on, ok := p.IsOn(state)
		preset, _ := p.PresetMode(state)
		events = append(events, FanUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id:      EntityId(uuid, p.Key),
				Missing: !ok,
			},
			On:         on,
			Percentage: p.Percentage(state),
			PresetMode: preset,
		})
	}
	for _, p := range projections.Switches {
		value, ok := p.Value(state)
		events = append(events, SwitchSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id:      EntityId(uuid, p.Key),
				Missing: !ok,
			},
			Value: value,
		})
	}
	for _, p := range projections.Numbers {
		value, ok := p.Value(state)
		events = append(events, InputNumberSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id:      EntityId(uuid, p.Key),
				Missing: !ok,
			},
			Value: float64(value),
		})
	}
	return events
}
