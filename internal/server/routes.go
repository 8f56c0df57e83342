package server

import (
	"net/http"
	"time"

	"github.com/berfenger/blueair2mqtt/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type deviceView struct {
	UUID       string          `json:"uuid"`
	Name       string          `json:"name"`
	Model      string          `json:"model"`
	Available  bool            `json:"available"`
	LastUpdate *time.Time      `json:"last_update,omitempty"`
	Snapshot   domain.Snapshot `json:"snapshot"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/devices", s.DevicesHandler)
	if registry := s.metrics.Registry(); registry != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) DevicesHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ListDevicesRequest{}, 10*time.Second).Result()
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	response, ok := res.(domain.ListDevicesResponse)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "unexpected response")
	}
	if response.HasResponseError() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, response.GetResponseError().Error())
	}
	views := make([]deviceView, 0, len(response.Devices))
	for _, d := range response.Devices {
		view := deviceView{
			UUID:      d.State.ID(),
			Name:      d.State.DeviceName(),
			Model:     d.State.Model(),
			Available: d.Available,
			Snapshot:  d.State.Snapshot,
		}
		if !d.LastUpdate.IsZero() {
			lastUpdate := d.LastUpdate
			view.LastUpdate = &lastUpdate
		}
		views = append(views, view)
	}
	return c.JSON(http.StatusOK, views)
}
