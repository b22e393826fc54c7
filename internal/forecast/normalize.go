package forecast

import (
	"encoding/json"
	"fmt"
	"time"
)

// wirePeriod mirrors a single entry of properties.periods in the upstream
// forecast documents. Pointers distinguish missing from zero; unknown fields
// are ignored.
type wirePeriod struct {
	Name             string   `json:"name"`
	StartTime        string   `json:"startTime"`
	EndTime          string   `json:"endTime"`
	Temperature      *float64 `json:"temperature"`
	TemperatureUnit  string   `json:"temperatureUnit"`
	WindSpeed        string   `json:"windSpeed"`
	WindDirection    string   `json:"windDirection"`
	ShortForecast    string   `json:"shortForecast"`
	DetailedForecast string   `json:"detailedForecast"`
	Icon             string   `json:"icon"`
}

type wireDocument struct {
	Properties struct {
		Periods []json.RawMessage `json:"periods"`
	} `json:"properties"`
}

// Normalize validates the raw forecast and hourly documents and maps them
// into typed period sequences. Upstream order is preserved; values are not
// re-sorted, de-duplicated or reinterpreted. A missing or malformed required
// field fails with a *ValidationError naming its JSON path, and the caller
// must not let such a payload replace a previously good cache record.
func Normalize(rawForecast, rawHourly json.RawMessage) ([]ForecastPeriod, []HourlyEntry, error) {
	periods, err := normalizePeriods(rawForecast, true)
	if err != nil {
		return nil, nil, err
	}
	// Hourly periods are unnamed upstream, so the name requirement only
	// applies to the 12-hour document.
	hourly, err := normalizePeriods(rawHourly, false)
	if err != nil {
		return nil, nil, err
	}
	return periods, hourly, nil
}

func normalizePeriods(raw json.RawMessage, requireName bool) ([]ForecastPeriod, error) {
	var doc wireDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ValidationError{Field: "properties", Reason: err.Error()}
	}
	if len(doc.Properties.Periods) == 0 {
		return nil, &ValidationError{Field: "properties.periods", Reason: "missing or empty"}
	}

	out := make([]ForecastPeriod, 0, len(doc.Properties.Periods))
	for i, rawPeriod := range doc.Properties.Periods {
		path := fmt.Sprintf("properties.periods[%d]", i)

		var wp wirePeriod
		if err := json.Unmarshal(rawPeriod, &wp); err != nil {
			return nil, &ValidationError{Field: path, Reason: err.Error()}
		}

		if requireName && wp.Name == "" {
			return nil, &ValidationError{Field: path + ".name", Reason: "missing or empty"}
		}
		if wp.Temperature == nil {
			return nil, &ValidationError{Field: path + ".temperature", Reason: "missing"}
		}
		start, err := time.Parse(time.RFC3339, wp.StartTime)
		if err != nil {
			return nil, &ValidationError{Field: path + ".startTime", Reason: "not an RFC3339 timestamp"}
		}
		end, err := time.Parse(time.RFC3339, wp.EndTime)
		if err != nil {
			return nil, &ValidationError{Field: path + ".endTime", Reason: "not an RFC3339 timestamp"}
		}

		out = append(out, ForecastPeriod{
			Name:             wp.Name,
			StartTime:        start,
			EndTime:          end,
			Temperature:      *wp.Temperature,
			TemperatureUnit:  wp.TemperatureUnit,
			WindSpeed:        wp.WindSpeed,
			WindDirection:    wp.WindDirection,
			ShortForecast:    wp.ShortForecast,
			DetailedForecast: wp.DetailedForecast,
			Icon:             wp.Icon,
		})
	}
	return out, nil
}
