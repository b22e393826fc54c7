package forecast

import (
	"encoding/json"
	"time"
)

// Location represents a named geographic point for which forecasts are tracked.
// The set of locations is fixed at process start.
type Location struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// GridReference is the upstream API's addressing unit: a forecast office plus
// a grid cell. It is derived once per location via the points lookup and cached
// with the forecast, but the mapping can shift upstream, so it is re-resolved
// whenever a fetch against it returns not-found.
type GridReference struct {
	Office string `json:"office"`
	GridX  int    `json:"gridX"`
	GridY  int    `json:"gridY"`
}

// Valid reports whether the reference carries a usable office identifier.
func (g GridReference) Valid() bool {
	return g.Office != ""
}

// ForecastPeriod is one named forecast interval ("Tonight", "Monday", ...).
// Order within a forecast is upstream-defined and preserved as-is.
type ForecastPeriod struct {
	Name             string    `json:"name"`
	StartTime        time.Time `json:"startTime"`
	EndTime          time.Time `json:"endTime"`
	Temperature      float64   `json:"temperature"`
	TemperatureUnit  string    `json:"temperatureUnit"`
	WindSpeed        string    `json:"windSpeed"`
	WindDirection    string    `json:"windDirection"`
	ShortForecast    string    `json:"shortForecast"`
	DetailedForecast string    `json:"detailedForecast"`
	Icon             string    `json:"icon,omitempty"`
}

// HourlyEntry has the same shape as ForecastPeriod but is drawn from the
// hourly resource, which updates on its own cadence.
type HourlyEntry = ForecastPeriod

// CachedForecast is the unit of persistence: exactly one per location,
// replaced wholesale on every successful refresh. FetchedAt is the time
// normalization succeeded, not the time the request went out.
type CachedForecast struct {
	LocationName string           `json:"locationName"`
	FetchedAt    time.Time        `json:"fetchedAt"`
	Grid         GridReference    `json:"grid"`
	Periods      []ForecastPeriod `json:"periods"`
	Hourly       []HourlyEntry    `json:"hourly"`
	RawGrid      json.RawMessage  `json:"rawGridMetadata,omitempty"`
}
