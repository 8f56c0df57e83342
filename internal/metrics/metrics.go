package metrics

import (
	"time"

	"github.com/berfenger/blueair2mqtt/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	RESULT_OK    = "ok"
	RESULT_ERROR = "error"
)

// Metrics records poll and write outcomes per device. A nil *Metrics
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	polls        *prometheus.CounterVec
	pollDuration *prometheus.HistogramVec
	writes       *prometheus.CounterVec
	available    *prometheus.GaugeVec
	lastSuccess  *prometheus.GaugeVec
	sensor       *prometheus.GaugeVec
	info         *prometheus.GaugeVec
}

func New() *Metrics {
	deviceLabels := []string{"uuid"}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blueair_polls_total",
			Help: "Device polls by result",
		}, []string{"uuid", "result"}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blueair_poll_duration_seconds",
			Help:    "Duration of a device poll",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, deviceLabels),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blueair_attribute_writes_total",
			Help: "Attribute writes by attribute and result",
		}, []string{"uuid", "attribute", "result"}),
		available: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "blueair_device_available",
			Help: "1 if the last poll of the device succeeded",
		}, deviceLabels),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "blueair_last_success_timestamp_seconds",
			Help: "Last successful poll timestamp (epoch seconds)",
		}, deviceLabels),
		sensor: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "blueair_sensor_value",
			Help: "Projected sensor value as published to Home Assistant",
		}, []string{"uuid", "sensor"}),
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "blueair_device_info",
			Help: "Device info",
		}, []string{"uuid", "name", "model"}),
	}
	m.registry.MustRegister(m.polls, m.pollDuration, m.writes, m.available, m.lastSuccess, m.sensor, m.info)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObservePoll(uuid string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.pollDuration.WithLabelValues(uuid).Observe(duration.Seconds())
	if err != nil {
		m.polls.WithLabelValues(uuid, RESULT_ERROR).Inc()
		m.available.WithLabelValues(uuid).Set(0)
		return
	}
	m.polls.WithLabelValues(uuid, RESULT_OK).Inc()
	m.available.WithLabelValues(uuid).Set(1)
	m.lastSuccess.WithLabelValues(uuid).Set(float64(time.Now().Unix()))
}

func (m *Metrics) ObserveWrite(uuid, attribute string, err error) {
	if m == nil {
		return
	}
	result := RESULT_OK
	if err != nil {
		result = RESULT_ERROR
	}
	m.writes.WithLabelValues(uuid, attribute, result).Inc()
}

// ObserveState exports the sensor projections of a device. Missing values
// are removed instead of reported as zero.
func (m *Metrics) ObserveState(state domain.DeviceState) {
	if m == nil {
		return
	}
	uuid := state.ID()
	m.info.WithLabelValues(uuid, state.DeviceName(), state.Model()).Set(1)
	for _, p := range domain.ProjectionsFor(state.Model()).Sensors {
		value, ok := p.Value(state)
		if !ok {
			m.sensor.DeleteLabelValues(uuid, p.Key)
			continue
		}
		m.sensor.WithLabelValues(uuid, p.Key).Set(value)
	}
}
