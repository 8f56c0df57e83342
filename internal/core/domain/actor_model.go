package domain

import (
	"time"

	"github.com/berfenger/blueair2mqtt/pkg/blueair"
)

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_BLUEAIR      = "blueair"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
	ACTOR_ID_DEVICE       = "device"
)

// Blueair API adapter

type AuthenticateRequest struct {
	ActorRequestMixIn
	Username string
	Password string
}

type AuthenticateResponse struct {
	ActorResponseMixIn
}

type GetDevicesRequest struct {
	ActorRequestMixIn
}

type GetDevicesResponse struct {
	ActorResponseMixIn
	Devices []blueair.Device
}

type FetchSnapshotRequest struct {
	ActorRequestMixIn
	UUID string
}

type FetchSnapshotResponse struct {
	ActorResponseMixIn
	Snapshot Snapshot
	// DataPointError is set when the data point could not be read. The rest
	// of the snapshot is still valid.
	DataPointError error
}

type WriteAttributeRequest struct {
	ActorRequestMixIn
	UUID      string
	Attribute string
	Value     any
}

type WriteAttributeResponse struct {
	ActorResponseMixIn
}

// Device coordinator

type RefreshRequest struct {
	ActorRequestMixIn
}

type RefreshResponse struct {
	ActorResponseMixIn
	State DeviceState
}

type GetDeviceStateRequest struct {
	ActorRequestMixIn
}

type GetDeviceStateResponse struct {
	ActorResponseMixIn
	State      DeviceState
	Available  bool
	LastUpdate time.Time
}

// Master

type ListDevicesRequest struct {
	ActorRequestMixIn
}

type ListDevicesResponse struct {
	ActorResponseMixIn
	Devices []GetDeviceStateResponse
}

// MQTT

type RemovedComponent struct {
	Platform string
	DeviceId string
	Id       string
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors      []GenericSensor
	Switches     []GenericSwitch
	InputNumbers []GenericInputNumber
	Fans         []GenericFan
	Removed      []RemovedComponent
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type RepublishDiscoveryRequest struct {
	ActorRequestMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
