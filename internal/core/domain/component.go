package domain

type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
	MAC          string
}

// EntityMixIn holds the fields shared by every entity component.
type EntityMixIn struct {
	Device   Device
	Id       string
	Name     string
	UniqueId string
	// ObjectId overrides the entity id chosen by Home Assistant.
	ObjectId string
	// AvailabilityId is the device whose availability gates the entity.
	AvailabilityId string
	Icon           string
}

type GenericSensor struct {
	EntityMixIn
	SensorType        string
	UnitOfMeasurement string
	StateClass        string // measurement, duration, total_increasing
	DeviceClass       string
	EntityCategory    string // diagnostic, config, nil
	EnabledByDefault  *bool
}

type GenericSwitch struct {
	EntityMixIn
	DeviceClass string
}

type GenericInputNumber struct {
	EntityMixIn
	Max  float64
	Min  float64
	Step float64
	Mode string
}

type GenericFan struct {
	EntityMixIn
	SpeedCount  int
	PresetModes []string
}
