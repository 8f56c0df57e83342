package blueair

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"sync"
	"time"
)

func CreateTestClient() *TestClient {
	return &TestClient{
		Username: "user@example.com",
		Password: "secret",
		Devices: []Device{
			{UUID: "test-uuid-280i", UserID: 1, MAC: "00:11:22:33:44:55", Name: "Living Room"},
		},
		Info: map[string]map[string]any{
			"test-uuid-280i": {
				"uuid":                "test-uuid-280i",
				"nickname":            "Living Room",
				"compatibility":       "classic_280i",
				"firmware":            "1.0.7",
				"mcuFirmware":         "1.0.7",
				"wlanDriver":          "1.0.0",
				"lastSyncDate":        1700000000,
				"installationDate":    1690000000,
				"lastCalibrationDate": 1690000000,
				"initUsagePeriod":     0,
				"rebootPeriod":        0,
				"roomLocation":        "living",
			},
		},
		DataPoints: map[string]map[string]float64{
			"test-uuid-280i": {
				"pm25":          3,
				"temperature":   21.456,
				"humidity":      44.6,
				"co2":           612,
				"voc":           24.45,
				"all_pollution": 12.2,
				"timestamp":     1700000000,
			},
		},
		Attributes: map[string]map[string]any{
			"test-uuid-280i": {
				AttributeFanSpeed:     "2",
				AttributeMode:         "manual",
				AttributeFilterStatus: "OK",
				AttributeChildLock:    "0",
				AttributeWifiStatus:   "1",
				AttributeBrightness:   "3",
			},
		},
	}
}

type TestWrite struct {
	UUID      string
	Attribute string
	Value     any
}

// TestClient is an in-memory Client. Writes update Attributes and are
// recorded in Writes.
type TestClient struct {
	mu sync.Mutex

	Username string
	Password string

	Devices    []Device
	Info       map[string]map[string]any
	DataPoints map[string]map[string]float64
	Attributes map[string]map[string]any

	AuthErr       error
	DevicesErr    error
	InfoErr       error
	DataPointErr  error
	AttributesErr error
	WriteErr      error
	// Delay is applied to every read call.
	Delay time.Duration
	// AttributesLag holds GetAttributes after the attributes were copied, so
	// a concurrent write is not part of the result.
	AttributesLag time.Duration

	Writes        []TestWrite
	InfoCalls     int
	authenticated bool
}

func (c *TestClient) Authenticate(ctx context.Context, username, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.AuthErr != nil {
		return c.AuthErr
	}
	if username != c.Username || password != c.Password {
		return ErrUnauthorized
	}
	c.authenticated = true
	return nil
}

func (c *TestClient) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

func (c *TestClient) GetDevices(ctx context.Context) ([]Device, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.DevicesErr != nil {
		return nil, c.DevicesErr
	}
	return append([]Device(nil), c.Devices...), nil
}

func (c *TestClient) GetInfo(ctx context.Context, uuid string) (map[string]any, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InfoCalls++
	if c.InfoErr != nil {
		return nil, c.InfoErr
	}
	info, ok := c.Info[uuid]
	if !ok {
		return nil, fmt.Errorf("%w: unknown device %s", ErrUnsupported, uuid)
	}
	return maps.Clone(info), nil
}

func (c *TestClient) GetCurrentDataPoint(ctx context.Context, uuid string) (map[string]float64, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.DataPointErr != nil {
		return nil, c.DataPointErr
	}
	dp, ok := c.DataPoints[uuid]
	if !ok {
		return nil, ErrUnsupported
	}
	return maps.Clone(dp), nil
}

func (c *TestClient) GetAttributes(ctx context.Context, uuid string) (map[string]any, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.AttributesErr != nil {
		c.mu.Unlock()
		return nil, c.AttributesErr
	}
	attributes := maps.Clone(c.Attributes[uuid])
	lag := c.AttributesLag
	c.mu.Unlock()
	if lag > 0 {
		select {
		case <-time.After(lag):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrConnection, ctx.Err())
		}
	}
	return attributes, nil
}

func (c *TestClient) SetBrightness(ctx context.Context, uuid string, brightness int) error {
	return c.write(uuid, AttributeBrightness, strconv.Itoa(brightness))
}

func (c *TestClient) SetFanSpeed(ctx context.Context, uuid string, speed string) error {
	return c.write(uuid, AttributeFanSpeed, speed)
}

func (c *TestClient) SetFanMode(ctx context.Context, uuid string, mode string) error {
	return c.write(uuid, AttributeMode, mode)
}

func (c *TestClient) SetChildLock(ctx context.Context, uuid string, value any) error {
	return c.write(uuid, AttributeChildLock, value)
}

// SetFailures replaces the injected read errors under the client lock.
func (c *TestClient) SetFailures(info, dataPoint, attributes error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InfoErr = info
	c.DataPointErr = dataPoint
	c.AttributesErr = attributes
}

func (c *TestClient) SetDelay(delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Delay = delay
}

func (c *TestClient) SetAttributesLag(lag time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.AttributesLag = lag
}

func (c *TestClient) SetWriteError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.WriteErr = err
}

func (c *TestClient) SetAttribute(uuid, name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Attributes[uuid] == nil {
		c.Attributes[uuid] = map[string]any{}
	}
	c.Attributes[uuid][name] = value
}

func (c *TestClient) RecordedWrites() []TestWrite {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]TestWrite(nil), c.Writes...)
}

func (c *TestClient) InfoCallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.InfoCalls
}

func (c *TestClient) write(uuid, name string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.WriteErr != nil {
		return c.WriteErr
	}
	c.Writes = append(c.Writes, TestWrite{UUID: uuid, Attribute: name, Value: value})
	if c.Attributes[uuid] == nil {
		c.Attributes[uuid] = map[string]any{}
	}
	c.Attributes[uuid][name] = value
	return nil
}

func (c *TestClient) wait(ctx context.Context) error {
	c.mu.Lock()
	delay := c.Delay
	c.mu.Unlock()
	if delay <= 0 {
		return nil
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrConnection, ctx.Err())
	}
}
