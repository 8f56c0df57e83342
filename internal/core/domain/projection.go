package domain

import (
	"regexp"
	"strings"
)

const (
	PLATFORM_SENSOR        = "sensor"
	PLATFORM_BINARY_SENSOR = "binary_sensor"
	PLATFORM_FAN           = "fan"
	PLATFORM_SWITCH        = "switch"
	PLATFORM_NUMBER        = "number"

	ENTITY_TEMPERATURE    = "temperature"
	ENTITY_HUMIDITY       = "humidity"
	ENTITY_CO2            = "co2"
	ENTITY_VOC            = "voc"
	ENTITY_ALL_POLLUTION  = "all_pollution"
	ENTITY_PM1            = "pm1"
	ENTITY_PM10           = "pm10"
	ENTITY_PM25           = "pm25"
	ENTITY_FILTER_EXPIRED = "filter_expired"
	ENTITY_CHILD_LOCK     = "child_lock"
	ENTITY_ONLINE         = "online"
	ENTITY_FAN            = "fan"
	ENTITY_BRIGHTNESS     = "brightness"

	DEVICE_CLASS_TEMPERATURE  = "temperature"
	DEVICE_CLASS_HUMIDITY     = "humidity"
	DEVICE_CLASS_CO2          = "carbon_dioxide"
	DEVICE_CLASS_VOC          = "volatile_organic_compounds"
	DEVICE_CLASS_PM1          = "pm1"
	DEVICE_CLASS_PM10         = "pm10"
	DEVICE_CLASS_PM25         = "pm25"
	DEVICE_CLASS_PROBLEM      = "problem"
	DEVICE_CLASS_CONNECTIVITY = "connectivity"
	DEVICE_CLASS_SWITCH       = "switch"

	STATE_CLASS_MEASUREMENT = "measurement"

	UNIT_CELSIUS      = "°C"
	UNIT_PERCENTAGE   = "%"
	UNIT_PPM          = "ppm"
	UNIT_MICROGRAM_M3 = "µg/m³"

	SENSOR_ID_BRIDGE_STATE     = "bridge"
	ENTITY_CATEGORY_DIAGNOSTIC = "diagnostic"

	ICON_MOLECULE      = "mdi:molecule"
	ICON_AIR_FILTER    = "mdi:air-filter"
	ICON_CHILD         = "mdi:account-child-outline"
	ICON_WIFI_UP       = "mdi:wifi-check"
	ICON_WIFI_DOWN     = "mdi:wifi-strength-outline"
	ICON_BRIGHTNESS    = "mdi:brightness-6"
	BRIGHTNESS_MAX     = 4
	NUMBER_MODE_SLIDER = "slider"
)

type SensorProjection struct {
	// Key names the entity in ids and topics.
	Key string
	// Name is the display name and the unique id suffix.
	Name        string
	DeviceClass string
	StateClass  string
	Unit        string
	Icon        string
	Decimals    uint
	Value       func(DeviceState) (float64, bool)
}

type BinarySensorProjection struct {
	Key         string
	Name        string
	DeviceClass string
	Icon        string
	// OffIcon replaces Icon while the sensor is off, if set.
	OffIcon string
	Value   func(DeviceState) (bool, bool)
}

func (p BinarySensorProjection) IconFor(state DeviceState) string {
	if p.OffIcon == "" {
		return p.Icon
	}
	if on, ok := p.Value(state); ok && on {
		return p.Icon
	}
	return p.OffIcon
}

type FanProjection struct {
	Key  string
	Name string
}

func (p FanProjection) IsOn(state DeviceState) (bool, bool) {
	return state.IsOn()
}

// Percentage is 0 when the fan speed is unknown.
func (p FanProjection) Percentage(state DeviceState) int {
	speed, ok := state.FanSpeed()
	if !ok {
		return 0
	}
	return FanPercentageForSpeed(speed)
}

func (p FanProjection) PresetModes(state DeviceState) []string {
	if !state.FanModeSupported() {
		return nil
	}
	return []string{FAN_MODE_AUTO}
}

func (p FanProjection) PresetMode(state DeviceState) (string, bool) {
	if !state.FanModeSupported() {
		return "", false
	}
	return state.FanMode()
}

type SwitchProjection struct {
	Key         string
	Name        string
	DeviceClass string
	Value       func(DeviceState) (bool, bool)
}

type NumberProjection struct {
	Key   string
	Name  string
	Icon  string
	Min   float64
	Max   float64
	Step  float64
	Value func(DeviceState) (int, bool)
}

type Projections struct {
	Sensors       []SensorProjection
	BinarySensors []BinarySensorProjection
	Fans          []FanProjection
	Switches      []SwitchProjection
	Numbers       []NumberProjection
}

// Count returns the number of entities of all platforms.
func (p Projections) Count() int {
	return len(p.Sensors) + len(p.BinarySensors) + len(p.Fans) + len(p.Switches) + len(p.Numbers)
}

func ProjectionsFor(model string) Projections {
	caps := ClassifyModel(model)
	var p Projections
	if caps.HasTelemetry {
		for _, s := range sensorProjections {
			if !caps.HasPM1PM10 && (s.Key == ENTITY_PM1 || s.Key == ENTITY_PM10) {
				continue
			}
			p.Sensors = append(p.Sensors, s)
		}
		p.BinarySensors = append(p.BinarySensors, binarySensorProjections...)
		p.Switches = append(p.Switches, switchProjections...)
		p.Numbers = append(p.Numbers, numberProjections...)
	}
	if caps.HasFan {
		p.Fans = append(p.Fans, FanProjection{Key: ENTITY_FAN, Name: "Fan"})
	}
	return p
}

var sensorProjections = []SensorProjection{
	{
		Key: ENTITY_TEMPERATURE, Name: "Temperature",
		DeviceClass: DEVICE_CLASS_TEMPERATURE, StateClass: STATE_CLASS_MEASUREMENT, Unit: UNIT_CELSIUS,
		Decimals: 1, Value: rounded(DeviceState.Temperature, 1),
	},
	{
		Key: ENTITY_HUMIDITY, Name: "Humidity",
		DeviceClass: DEVICE_CLASS_HUMIDITY, StateClass: STATE_CLASS_MEASUREMENT, Unit: UNIT_PERCENTAGE,
		Value: rounded(DeviceState.Humidity, 0),
	},
	{
		Key: ENTITY_CO2, Name: "co2",
		DeviceClass: DEVICE_CLASS_CO2, StateClass: STATE_CLASS_MEASUREMENT, Unit: UNIT_PPM,
		Value: rounded(DeviceState.CO2, 0),
	},
	{
		Key: ENTITY_VOC, Name: "voc",
		DeviceClass: DEVICE_CLASS_VOC, StateClass: STATE_CLASS_MEASUREMENT, Unit: UNIT_MICROGRAM_M3,
		Decimals: 1,
		Value: func(s DeviceState) (float64, bool) {
			ppb, ok := s.VOC()
			if !ok {
				return 0, false
			}
			return VOCToMicrogramsPerCubicMeter(ppb), true
		},
	},
	{
		Key: ENTITY_ALL_POLLUTION, Name: "all_pollution",
		StateClass: STATE_CLASS_MEASUREMENT, Unit: UNIT_PERCENTAGE, Icon: ICON_MOLECULE,
		Value: rounded(DeviceState.AllPollution, 0),
	},
	{
		Key: ENTITY_PM1, Name: "pm1",
		DeviceClass: DEVICE_CLASS_PM1, StateClass: STATE_CLASS_MEASUREMENT, Unit: UNIT_MICROGRAM_M3,
		Value: rounded(DeviceState.PM1, 0),
	},
	{
		Key: ENTITY_PM10, Name: "pm10",
		DeviceClass: DEVICE_CLASS_PM10, StateClass: STATE_CLASS_MEASUREMENT, Unit: UNIT_MICROGRAM_M3,
		Value: rounded(DeviceState.PM10, 0),
	},
	{
		Key: ENTITY_PM25, Name: "pm25",
		DeviceClass: DEVICE_CLASS_PM25, StateClass: STATE_CLASS_MEASUREMENT, Unit: UNIT_MICROGRAM_M3,
		Value: rounded(DeviceState.PM25, 0),
	},
}

var binarySensorProjections = []BinarySensorProjection{
	{
		Key: ENTITY_FILTER_EXPIRED, Name: "filter_expired",
		DeviceClass: DEVICE_CLASS_PROBLEM, Icon: ICON_AIR_FILTER,
		Value: DeviceState.FilterExpired,
	},
	{
		Key: ENTITY_CHILD_LOCK, Name: "child_Lock",
		Icon:  ICON_CHILD,
		Value: DeviceState.ChildLock,
	},
	{
		Key: ENTITY_ONLINE, Name: "online",
		DeviceClass: DEVICE_CLASS_CONNECTIVITY, Icon: ICON_WIFI_UP, OffIcon: ICON_WIFI_DOWN,
		Value: DeviceState.WifiWorking,
	},
}

var switchProjections = []SwitchProjection{
	{
		Key: ENTITY_CHILD_LOCK, Name: "Child Lock",
		DeviceClass: DEVICE_CLASS_SWITCH,
		Value:       DeviceState.ChildLock,
	},
}

var numberProjections = []NumberProjection{
	{
		Key: ENTITY_BRIGHTNESS, Name: "Brightness",
		Icon: ICON_BRIGHTNESS, Min: 0, Max: BRIGHTNESS_MAX, Step: 1,
		Value: DeviceState.Brightness,
	},
}

func rounded(accessor func(DeviceState) (float64, bool), decimals uint) func(DeviceState) (float64, bool) {
	return func(s DeviceState) (float64, bool) {
		v, ok := accessor(s)
		if !ok {
			return 0, false
		}
		return RoundTo(v, decimals), true
	}
}

var nonIdChars = regexp.MustCompile("[^a-z0-9_]+")

func sanitizeId(id string) string {
	return strings.Trim(nonIdChars.ReplaceAllString(strings.ToLower(id), "_"), "_")
}

// EntityId is the topic-safe id of one entity of a device.
func EntityId(uuid, key string) string {
	return sanitizeId(uuid + "_" + key)
}

func DeviceId(uuid string) string {
	return sanitizeId("blueair_" + uuid)
}

func EntityUniqueId(uuid, name string) string {
	return uuid + "_" + name
}

// EntityObjectId is the entity id override derived from a custom device id,
// empty when no override is configured.
func EntityObjectId(customEntityId, key string) string {
	if customEntityId == "" {
		return ""
	}
	return sanitizeId(customEntityId + "_" + key)
}
