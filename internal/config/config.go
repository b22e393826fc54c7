package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelvins/geocoder"

	"github.com/cmorrow/weathercache/internal/forecast"
)

var validate = validator.New()

type AppConfig struct {
	// Locations to track. Entries come from WEATHER_LOCATIONS as a comma
	// list of name:lat:lon triples; lat/lon may be omitted when a geocoder
	// API key is configured.
	Locations []forecast.Location `validate:"required,min=1"`

	// DefaultLocation is served by the unkeyed /weather endpoint.
	DefaultLocation string `validate:"required"`

	// DataDir holds one cached forecast file per location.
	DataDir string `validate:"required"`

	// MaxAge is the staleness threshold applied on the read path.
	MaxAge time.Duration `validate:"gt=0"`

	// FetchInterval controls how often the scheduler refreshes all locations.
	FetchInterval time.Duration `validate:"gt=0"`

	NWSBaseURL  string `validate:"required,url"`
	UserAgent   string `validate:"required"`
	HTTPTimeout time.Duration

	Port string

	GeocoderAPIKey string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		DataDir:        getenvDefault("WEATHER_DATA_DIR", "data"),
		NWSBaseURL:     getenvDefault("NWS_BASE_URL", "https://api.weather.gov"),
		UserAgent:      getenvDefault("NWS_USER_AGENT", "weathercache/1.0"),
		Port:           getenvDefault("PORT", "8080"),
		GeocoderAPIKey: os.Getenv("GEOCODER_API_KEY"),
	}

	maxAge, err := time.ParseDuration(getenvDefault("WEATHER_MAX_AGE", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid WEATHER_MAX_AGE: %w", err)
	}
	cfg.MaxAge = maxAge

	interval, err := time.ParseDuration(getenvDefault("FETCH_INTERVAL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_INTERVAL: %w", err)
	}
	cfg.FetchInterval = interval

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	locs, err := loadLocations(cfg.GeocoderAPIKey)
	if err != nil {
		return nil, err
	}
	cfg.Locations = locs
	cfg.DefaultLocation = getenvDefault("WEATHER_DEFAULT_LOCATION", locs[0].Name)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadLocations parses WEATHER_LOCATIONS. Entries without coordinates are
// resolved through the geocoder when an API key is present.
func loadLocations(geocoderKey string) ([]forecast.Location, error) {
	raw := getenvDefault("WEATHER_LOCATIONS", "home:35.48:-82.99")

	var locs []forecast.Location
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		switch len(parts) {
		case 3:
			lat, err := strconv.ParseFloat(parts[1], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid latitude in WEATHER_LOCATIONS entry %q: %w", entry, err)
			}
			lon, err := strconv.ParseFloat(parts[2], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid longitude in WEATHER_LOCATIONS entry %q: %w", entry, err)
			}
			locs = append(locs, forecast.Location{Name: parts[0], Lat: lat, Lon: lon})
		case 1:
			if geocoderKey == "" {
				return nil, fmt.Errorf("WEATHER_LOCATIONS entry %q has no coordinates and GEOCODER_API_KEY is not set", entry)
			}
			loc, err := geocodeLocation(parts[0], geocoderKey)
			if err != nil {
				return nil, err
			}
			locs = append(locs, loc)
		default:
			return nil, fmt.Errorf("invalid WEATHER_LOCATIONS entry %q; want name or name:lat:lon", entry)
		}
	}

	if len(locs) == 0 {
		return nil, fmt.Errorf("WEATHER_LOCATIONS is empty")
	}
	return locs, nil
}

func geocodeLocation(name, apiKey string) (forecast.Location, error) {
	geocoder.ApiKey = apiKey

	address := geocoder.Address{City: name}
	location, err := geocoder.Geocoding(address)
	if err != nil {
		return forecast.Location{}, fmt.Errorf("geocoding %q: %w", name, err)
	}

	return forecast.Location{
		Name: name,
		Lat:  location.Latitude,
		Lon:  location.Longitude,
	}, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
