package httpapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/cmorrow/weathercache/internal/forecast"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app. maxAge is the
// staleness threshold applied on the read path.
func RegisterRoutes(app *fiber.App, service *forecast.Service, maxAge time.Duration) {
	v1 := app.Group("/api/v1")

	// Unkeyed forms are compatibility shims over the default location.
	v1.Get("/weather", func(c *fiber.Ctx) error {
		return getWeather(c, service, service.DefaultLocation(), maxAge)
	})
	v1.Post("/weather/refresh", func(c *fiber.Ctx) error {
		return refreshAll(c, service)
	})

	v1.Get("/weather/:location", func(c *fiber.Ctx) error {
		name, err := locationParam(c)
		if err != nil {
			return err
		}
		return getWeather(c, service, name, maxAge)
	})

	v1.Post("/weather/:location/refresh", func(c *fiber.Ctx) error {
		name, err := locationParam(c)
		if err != nil {
			return err
		}

		rec, err := service.Refresh(c.Context(), name)
		if err != nil {
			return mapServiceError(err)
		}
		return c.JSON(fiber.Map{
			"location":  name,
			"status":    "refreshed",
			"fetchedAt": rec.FetchedAt,
		})
	})
}

// forecastResponse matches the shape the web front-end consumes: the daily
// periods under a top-level weatherData field, hourly alongside.
type forecastResponse struct {
	Location    string          `json:"location"`
	FetchedAt   time.Time       `json:"fetchedAt"`
	WeatherData periodsEnvelope `json:"weatherData"`
	Hourly      periodsEnvelope `json:"hourly"`
}

type periodsEnvelope struct {
	Periods []forecast.ForecastPeriod `json:"periods"`
}

func getWeather(c *fiber.Ctx, service *forecast.Service, name string, maxAge time.Duration) error {
	rec, err := service.Get(c.Context(), name, maxAge)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(forecastResponse{
		Location:    rec.LocationName,
		FetchedAt:   rec.FetchedAt,
		WeatherData: periodsEnvelope{Periods: rec.Periods},
		Hourly:      periodsEnvelope{Periods: rec.Hourly},
	})
}

func refreshAll(c *fiber.Ctx, service *forecast.Service) error {
	results := service.RefreshAll(c.Context())

	type outcome struct {
		Location string `json:"location"`
		Status   string `json:"status"`
		Error    string `json:"error,omitempty"`
	}

	outcomes := make([]outcome, 0, len(results))
	failed := 0
	for _, r := range results {
		o := outcome{Location: r.Location, Status: "refreshed"}
		if r.Err != nil {
			o.Status = "failed"
			o.Error = r.Err.Error()
			failed++
		}
		outcomes = append(outcomes, o)
	}

	status := fiber.StatusOK
	switch {
	case failed > 0 && failed == len(results):
		status = fiber.StatusBadGateway
	case failed > 0:
		status = fiber.StatusMultiStatus
	}

	return c.Status(status).JSON(fiber.Map{
		"results": outcomes,
	})
}

func locationParam(c *fiber.Ctx) (string, error) {
	name := c.Params("location")
	if err := validate.Var(name, "required,max=64"); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid location name")
	}
	return name, nil
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, forecast.ErrUnknownLocation):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, forecast.ErrValidation), errors.Is(err, forecast.ErrUpstreamShape):
		return fiber.NewError(fiber.StatusBadGateway, "upstream returned malformed forecast data: "+err.Error())
	case errors.Is(err, forecast.ErrUpstreamUnavailable), errors.Is(err, forecast.ErrUpstreamNotFound):
		return fiber.NewError(fiber.StatusBadGateway, "forecast upstream unavailable and no cached data: "+err.Error())
	case errors.Is(err, forecast.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "no weather data for requested location")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
	}
}
