package domain

import (
	"maps"
	"strconv"
	"strings"
)

const (
	MANUFACTURER       = "BlueAir"
	DEVICE_NAME_PREFIX = "blueair"

	FAN_MODE_MANUAL = "manual"
	FAN_MODE_AUTO   = "auto"

	FILTER_STATUS_OK = "OK"
	WIFI_STATUS_UP   = "1"

	INFO_NICKNAME      = "nickname"
	INFO_COMPATIBILITY = "compatibility"

	DATAPOINT_TEMPERATURE   = "temperature"
	DATAPOINT_HUMIDITY      = "humidity"
	DATAPOINT_CO2           = "co2"
	DATAPOINT_VOC           = "voc"
	DATAPOINT_PM1           = "pm1"
	DATAPOINT_PM10          = "pm10"
	DATAPOINT_PM25          = "pm25"
	DATAPOINT_ALL_POLLUTION = "all_pollution"

	ATTRIBUTE_FAN_SPEED     = "fan_speed"
	ATTRIBUTE_MODE          = "mode"
	ATTRIBUTE_FILTER_STATUS = "filter_status"
	ATTRIBUTE_CHILD_LOCK    = "child_lock"
	ATTRIBUTE_WIFI_STATUS   = "wifi_status"
	ATTRIBUTE_BRIGHTNESS    = "brightness"
)

// DeviceIdentity is fixed for the lifetime of a coordinator.
type DeviceIdentity struct {
	UUID string
	// Name is the coordinator name, prefixed with "blueair-" unless disabled.
	Name string
	MAC  string
	// CustomEntityId overrides the entity object ids when not empty.
	CustomEntityId string
}

func NewDeviceIdentity(uuid, name, mac, customEntityId string, prefixName bool) DeviceIdentity {
	if prefixName {
		name = DEVICE_NAME_PREFIX + "-" + name
	}
	return DeviceIdentity{
		UUID:           uuid,
		Name:           name,
		MAC:            mac,
		CustomEntityId: customEntityId,
	}
}

// Snapshot is the last known remote state of a device. It is replaced as a
// whole on every poll.
type Snapshot struct {
	Info       map[string]any     `json:"info"`
	DataPoint  map[string]float64 `json:"datapoint"`
	Attributes map[string]any     `json:"attributes"`
}

func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Info:       maps.Clone(s.Info),
		DataPoint:  maps.Clone(s.DataPoint),
		Attributes: maps.Clone(s.Attributes),
	}
}

// DeviceState couples a device identity with its snapshot and exposes the
// typed accessors. Accessors return false when the underlying key is absent.
type DeviceState struct {
	Identity DeviceIdentity
	Snapshot Snapshot
	// LockKind is the child lock encoding first observed for the device.
	LockKind ChildLockKind
}

func (s DeviceState) ID() string {
	return s.Identity.UUID
}

func (s DeviceState) MAC() string {
	return s.Identity.MAC
}

func (s DeviceState) Manufacturer() string {
	return MANUFACTURER
}

func (s DeviceState) DeviceName() string {
	if name, ok := s.infoString(INFO_NICKNAME); ok {
		return name
	}
	return s.Identity.Name
}

// Model falls back to the device id when the cloud does not report one.
func (s DeviceState) Model() string {
	if model, ok := s.infoString(INFO_COMPATIBILITY); ok {
		return model
	}
	return s.Identity.UUID
}

func (s DeviceState) Temperature() (float64, bool) {
	return s.dataPoint(DATAPOINT_TEMPERATURE)
}

func (s DeviceState) Humidity() (float64, bool) {
	return s.dataPoint(DATAPOINT_HUMIDITY)
}

func (s DeviceState) CO2() (float64, bool) {
	return s.dataPoint(DATAPOINT_CO2)
}

func (s DeviceState) VOC() (float64, bool) {
	return s.dataPoint(DATAPOINT_VOC)
}

func (s DeviceState) PM1() (float64, bool) {
	return s.dataPoint(DATAPOINT_PM1)
}

func (s DeviceState) PM10() (float64, bool) {
	return s.dataPoint(DATAPOINT_PM10)
}

func (s DeviceState) PM25() (float64, bool) {
	return s.dataPoint(DATAPOINT_PM25)
}

func (s DeviceState) AllPollution() (float64, bool) {
	return s.dataPoint(DATAPOINT_ALL_POLLUTION)
}

func (s DeviceState) FanSpeed() (int, bool) {
	return s.attributeInt(ATTRIBUTE_FAN_SPEED)
}

func (s DeviceState) IsOn() (bool, bool) {
	speed, ok := s.attributeString(ATTRIBUTE_FAN_SPEED)
	if !ok {
		return false, false
	}
	return speed != "0", true
}

// FanMode reports no preset while the device runs in manual mode.
func (s DeviceState) FanMode() (string, bool) {
	mode, ok := s.attributeString(ATTRIBUTE_MODE)
	if !ok || mode == FAN_MODE_MANUAL {
		return "", false
	}
	return mode, true
}

func (s DeviceState) FanModeSupported() bool {
	_, ok := s.Snapshot.Attributes[ATTRIBUTE_MODE]
	return ok
}

func (s DeviceState) FilterExpired() (bool, bool) {
	status, ok := s.attributeString(ATTRIBUTE_FILTER_STATUS)
	if !ok {
		return false, false
	}
	return status != FILTER_STATUS_OK, true
}

func (s DeviceState) ChildLock() (bool, bool) {
	lock, ok := s.childLock()
	if !ok {
		return false, false
	}
	return lock.Locked(), true
}

func (s DeviceState) WifiWorking() (bool, bool) {
	status, ok := s.attributeString(ATTRIBUTE_WIFI_STATUS)
	if !ok {
		return false, false
	}
	return status == WIFI_STATUS_UP, true
}

func (s DeviceState) Brightness() (int, bool) {
	return s.attributeInt(ATTRIBUTE_BRIGHTNESS)
}

// ChildLockWriteValue encodes locked the way the device currently reports
// its child lock. When the attribute is absent the first observed encoding
// is used.
func (s DeviceState) ChildLockWriteValue(locked bool) (any, error) {
	if lock, ok := s.childLock(); ok {
		return lock.With(locked).Raw(), nil
	}
	if s.LockKind != ChildLockUnknown {
		return ChildLock{Kind: s.LockKind}.With(locked).Raw(), nil
	}
	return nil, ErrChildLockEncodingUnknown
}

// WithAttribute returns a copy of the state with one attribute replaced.
func (s DeviceState) WithAttribute(name string, value any) DeviceState {
	next := s
	next.Snapshot = s.Snapshot.Clone()
	if next.Snapshot.Attributes == nil {
		next.Snapshot.Attributes = map[string]any{}
	}
	next.Snapshot.Attributes[name] = value
	return next
}

// ObserveChildLockKind remembers the first child lock encoding seen.
func (s *DeviceState) ObserveChildLockKind() {
	if s.LockKind != ChildLockUnknown {
		return
	}
	if lock, ok := s.childLock(); ok {
		s.LockKind = lock.Kind
	}
}

func (s DeviceState) childLock() (ChildLock, bool) {
	raw, ok := s.Snapshot.Attributes[ATTRIBUTE_CHILD_LOCK]
	if !ok {
		return ChildLock{}, false
	}
	return ParseChildLock(raw)
}

func (s DeviceState) dataPoint(key string) (float64, bool) {
	v, ok := s.Snapshot.DataPoint[key]
	return v, ok
}

func (s DeviceState) infoString(key string) (string, bool) {
	v, ok := s.Snapshot.Info[key]
	if !ok || v == nil {
		return "", false
	}
	return anyToString(v), true
}

func (s DeviceState) attributeString(key string) (string, bool) {
	v, ok := s.Snapshot.Attributes[key]
	if !ok || v == nil {
		return "", false
	}
	return anyToString(v), true
}

func (s DeviceState) attributeInt(key string) (int, bool) {
	v, ok := s.attributeString(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		f, ferr := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if ferr != nil {
			return 0, false
		}
		n = int(f)
	}
	return n, true
}

func anyToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}
