package blueair

import (
	"context"
	"errors"
)

var (
	// ErrUnauthorized is returned when the cloud rejects the user credentials.
	ErrUnauthorized = errors.New("blueair: unauthorized")
	// ErrConnection is returned when the cloud cannot be reached.
	ErrConnection = errors.New("blueair: cannot connect")
	// ErrUnsupported is returned when a device does not expose the requested data.
	ErrUnsupported = errors.New("blueair: unsupported by device")
	// ErrNotAuthenticated is returned when a call is made before Authenticate.
	ErrNotAuthenticated = errors.New("blueair: client not authenticated")
)

const (
	AttributeFanSpeed     = "fan_speed"
	AttributeMode         = "mode"
	AttributeFilterStatus = "filter_status"
	AttributeChildLock    = "child_lock"
	AttributeWifiStatus   = "wifi_status"
	AttributeBrightness   = "brightness"
)

type Device struct {
	UUID   string `json:"uuid"`
	UserID int64  `json:"userId"`
	MAC    string `json:"mac"`
	Name   string `json:"name"`
}

// Client is the subset of the Blueair cloud API used by the bridge.
// Every call blocks until the cloud answers.
type Client interface {
	Authenticate(ctx context.Context, username, password string) error
	IsAuthenticated() bool
	GetDevices(ctx context.Context) ([]Device, error)
	GetInfo(ctx context.Context, uuid string) (map[string]any, error)
	GetCurrentDataPoint(ctx context.Context, uuid string) (map[string]float64, error)
	GetAttributes(ctx context.Context, uuid string) (map[string]any, error)
	SetBrightness(ctx context.Context, uuid string, brightness int) error
	SetFanSpeed(ctx context.Context, uuid string, speed string) error
	SetFanMode(ctx context.Context, uuid string, mode string) error
	// SetChildLock writes value as given: the cloud expects the same
	// encoding (bool or "0"/"1") that it reports for the device.
	SetChildLock(ctx context.Context, uuid string, value any) error
}
