package blueair

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.blueair.io"

	headerAPIKey    = "X-API-KEY-TOKEN"
	headerAuthToken = "X-AUTH-TOKEN"
)

var dataPointKeys = map[string]string{
	"pm":       "pm25",
	"pm1":      "pm1",
	"pm10":     "pm10",
	"tmp":      "temperature",
	"hum":      "humidity",
	"co2":      "co2",
	"voc":      "voc",
	"allpollu": "all_pollution",
	"time":     "timestamp",
}

var attributePaths = map[string]string{
	AttributeFanSpeed:   "fanspeed",
	AttributeBrightness: "brightness",
	AttributeMode:       "mode",
	AttributeChildLock:  "childlock",
}

type RestClientOptions struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type RestClient struct {
	resty  *resty.Client
	opts   RestClientOptions
	logger *zap.Logger

	mu        sync.RWMutex
	username  string
	homeHost  string
	authToken string
}

type attributeEntry struct {
	Name         string `json:"name"`
	CurrentValue any    `json:"currentValue"`
}

type dataPointsResult struct {
	UUID       string   `json:"uuid"`
	Sensors    []string `json:"sensors"`
	DataPoints [][]any  `json:"datapoints"`
}

type attributeWrite struct {
	CurrentValue any    `json:"currentValue"`
	DefaultValue any    `json:"defaultValue"`
	Scope        string `json:"scope"`
	Name         string `json:"name"`
	UUID         string `json:"uuid"`
}

func NewRestClient(opts RestClientOptions, logger *zap.Logger) *RestClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &RestClient{
		resty: resty.New().
			SetTimeout(opts.Timeout).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", "blueair2mqtt"),
		opts:   opts,
		logger: logger.With(zap.String("component", "blueair_client")),
	}
}

func (c *RestClient) Authenticate(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return ErrUnauthorized
	}

	// resolve the regional API host of the account
	resp, err := c.resty.R().
		SetContext(ctx).
		SetHeader(headerAPIKey, c.opts.APIKey).
		Get(fmt.Sprintf("%s/v2/user/%s/homehost/", c.opts.BaseURL, url.PathEscape(username)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.IsError() {
		return fmt.Errorf("%w: homehost status %d", ErrConnection, resp.StatusCode())
	}
	homeHost := strings.Trim(strings.TrimSpace(resp.String()), "\"")
	if homeHost == "" {
		return fmt.Errorf("%w: empty home host", ErrConnection)
	}

	scheme := "https"
	if u, err := url.Parse(c.opts.BaseURL); err == nil && u.Scheme != "" {
		scheme = u.Scheme
	}
	apiRoot := fmt.Sprintf("%s://%s", scheme, homeHost)

	resp, err = c.resty.R().
		SetContext(ctx).
		SetHeader(headerAPIKey, c.opts.APIKey).
		SetBasicAuth(username, password).
		Get(fmt.Sprintf("%s/v2/user/%s/login/", apiRoot, url.PathEscape(username)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return fmt.Errorf("%w: login status %d", ErrConnection, resp.StatusCode())
	}
	token := resp.Header().Get(headerAuthToken)
	if resp.IsError() || token == "" {
		// the cloud answers a rejected login without the token header
		return ErrUnauthorized
	}

	c.mu.Lock()
	c.username = username
	c.homeHost = apiRoot
	c.authToken = token
	c.mu.Unlock()

	c.logger.Debug("authenticated", zap.String("home_host", homeHost))
	return nil
}

func (c *RestClient) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authToken != ""
}

func (c *RestClient) GetDevices(ctx context.Context) ([]Device, error) {
	c.mu.RLock()
	username := c.username
	c.mu.RUnlock()

	var devices []Device
	if err := c.get(ctx, fmt.Sprintf("owner/%s/device/", url.PathEscape(username)), &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

func (c *RestClient) GetInfo(ctx context.Context, uuid string) (map[string]any, error) {
	info := map[string]any{}
	if err := c.get(ctx, fmt.Sprintf("device/%s/info/", url.PathEscape(uuid)), &info); err != nil {
		return nil, err
	}
	return info, nil
}

func (c *RestClient) GetCurrentDataPoint(ctx context.Context, uuid string) (map[string]float64, error) {
	var result dataPointsResult
	if err := c.get(ctx, fmt.Sprintf("device/%s/datapoint/0/last/0/", url.PathEscape(uuid)), &result); err != nil {
		return nil, err
	}
	return currentDataPoint(result)
}

func (c *RestClient) GetAttributes(ctx context.Context, uuid string) (map[string]any, error) {
	var entries []attributeEntry
	if err := c.get(ctx, fmt.Sprintf("device/%s/attributes/", url.PathEscape(uuid)), &entries); err != nil {
		return nil, err
	}
	attributes := make(map[string]any, len(entries))
	for _, e := range entries {
		attributes[e.Name] = e.CurrentValue
	}
	return attributes, nil
}

func (c *RestClient) SetBrightness(ctx context.Context, uuid string, brightness int) error {
	return c.setAttribute(ctx, uuid, AttributeBrightness, strconv.Itoa(brightness))
}

func (c *RestClient) SetFanSpeed(ctx context.Context, uuid string, speed string) error {
	return c.setAttribute(ctx, uuid, AttributeFanSpeed, speed)
}

func (c *RestClient) SetFanMode(ctx context.Context, uuid string, mode string) error {
	return c.setAttribute(ctx, uuid, AttributeMode, mode)
}

func (c *RestClient) SetChildLock(ctx context.Context, uuid string, value any) error {
	return c.setAttribute(ctx, uuid, AttributeChildLock, value)
}

func (c *RestClient) setAttribute(ctx context.Context, uuid, name string, value any) error {
	path, ok := attributePaths[name]
	if !ok {
		return fmt.Errorf("blueair: attribute %q is not writable", name)
	}
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	resp, err := req.
		SetBody(attributeWrite{
			CurrentValue: value,
			DefaultValue: value,
			Scope:        "device",
			Name:         name,
			UUID:         uuid,
		}).
		Post(c.endpoint(fmt.Sprintf("device/%s/attribute/%s/", url.PathEscape(uuid), path)))
	return c.checkResponse(resp, err)
}

func (c *RestClient) get(ctx context.Context, path string, dest any) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	resp, err := req.SetResult(dest).Get(c.endpoint(path))
	return c.checkResponse(resp, err)
}

func (c *RestClient) request(ctx context.Context) (*resty.Request, error) {
	c.mu.RLock()
	token := c.authToken
	c.mu.RUnlock()
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	return c.resty.R().
		SetContext(ctx).
		SetHeader(headerAuthToken, token), nil
}

func (c *RestClient) endpoint(path string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fmt.Sprintf("%s/v2/%s", c.homeHost, path)
}

func (c *RestClient) checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrUnsupported, resp.Request.URL)
	case resp.IsError():
		return fmt.Errorf("blueair: request %s: status %d: %s", resp.Request.URL, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

func currentDataPoint(result dataPointsResult) (map[string]float64, error) {
	if len(result.Sensors) == 0 || len(result.DataPoints) == 0 {
		return nil, ErrUnsupported
	}
	row := result.DataPoints[len(result.DataPoints)-1]
	values := make(map[string]float64, len(row))
	for i, sensor := range result.Sensors {
		if i >= len(row) {
			break
		}
		key, ok := dataPointKeys[sensor]
		if !ok {
			continue
		}
		v, ok := toFloat(row[i])
		if !ok {
			continue
		}
		values[key] = v
	}
	return values, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
