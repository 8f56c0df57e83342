package events

import (
	. "github.com/berfenger/blueair2mqtt/internal/core/domain"
)

// Components is the discovery view of one or more devices.
type Components struct {
	Sensors      []GenericSensor
	Switches     []GenericSwitch
	InputNumbers []GenericInputNumber
	Fans         []GenericFan
}

func (c *Components) Append(other Components) {
	c.Sensors = append(c.Sensors, other.Sensors...)
	c.Switches = append(c.Switches, other.Switches...)
	c.InputNumbers = append(c.InputNumbers, other.InputNumbers...)
	c.Fans = append(c.Fans, other.Fans...)
}

// DeviceComponents builds the entities the model of a purifier supports.
// Icons and preset modes depend on the current state.
func DeviceComponents(state DeviceState, bridgeDevice Device) Components {
	device := PurifierDevice(state, bridgeDevice)
	projections := ProjectionsFor(state.Model())
	uuid := state.ID()
	entity := func(key, name, icon string) EntityMixIn {
		return EntityMixIn{
			Device:         device,
			Id:             EntityId(uuid, key),
			Name:           name,
			UniqueId:       EntityUniqueId(uuid, name),
			ObjectId:       EntityObjectId(state.Identity.CustomEntityId, key),
			AvailabilityId: device.Id,
			Icon:           icon,
		}
	}

	var c Components
	for _, p := range projections.Sensors {
		c.Sensors = append(c.Sensors, GenericSensor{
			EntityMixIn:       entity(p.Key, p.Name, p.Icon),
			SensorType:        PLATFORM_SENSOR,
			UnitOfMeasurement: p.Unit,
			StateClass:        p.StateClass,
			DeviceClass:       p.DeviceClass,
		})
	}
	for _, p := range projections.BinarySensors {
		c.Sensors = append(c.Sensors, GenericSensor{
			EntityMixIn: entity(p.Key, p.Name, p.IconFor(state)),
			SensorType:  PLATFORM_BINARY_SENSOR,
			DeviceClass: p.DeviceClass,
		})
	}
	for _, p := range projections.Fans {
		c.Fans = append(c.Fans, GenericFan{
			EntityMixIn: entity(p.Key, p.Name, ""),
			SpeedCount:  FAN_SPEED_COUNT,
			PresetModes: p.PresetModes(state),
		})
	}
	for _, p := range projections.Switches {
		c.Switches = append(c.Switches, GenericSwitch{
			EntityMixIn: entity(p.Key, p.Name, ""),
			DeviceClass: p.DeviceClass,
		})
	}
	for _, p := range projections.Numbers {
		c.InputNumbers = append(c.InputNumbers, GenericInputNumber{
			EntityMixIn: entity(p.Key, p.Name, p.Icon),
			Min:         p.Min,
			Max:         p.Max,
			Step:        p.Step,
			Mode:        NUMBER_MODE_SLIDER,
		})
	}
	return c
}

// CommandEntities maps the id of every controllable entity of a device to
// its projection key.
func CommandEntities(state DeviceState) map[string]string {
	projections := ProjectionsFor(state.Model())
	uuid := state.ID()
	entities := map[string]string{}
	for _, p := range projections.Fans {
		entities[EntityId(uuid, p.Key)] = p.Key
	}
	for _, p := range projections.Switches {
		entities[EntityId(uuid, p.Key)] = p.Key
	}
	for _, p := range projections.Numbers {
		entities[EntityId(uuid, p.Key)] = p.Key
	}
	return entities
}
