package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cmorrow/weathercache/internal/config"
	"github.com/cmorrow/weathercache/internal/forecast"
	"github.com/cmorrow/weathercache/internal/nws"
	"github.com/cmorrow/weathercache/internal/registry"
	"github.com/cmorrow/weathercache/internal/store"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: weather <command> [flags]

Commands:
  show         Display the cached 12-hour forecast (no network)
  show-hourly  Display the cached hourly forecast (no network)
  update-all   Refresh the cache for every configured location

Flags:
  -location name   Location to display; show and show-hourly only
                   (default: configured default)
`)
}

// parseArgs splits the command from its flags. The -location flag only makes
// sense for the show commands; update-all always covers every location.
func parseArgs(args []string) (command, location string, err error) {
	if len(args) < 1 {
		return "", "", errors.New("missing command")
	}
	command = args[0]

	flags := flag.NewFlagSet(command, flag.ContinueOnError)
	loc := flags.String("location", "", "location to display")
	if err := flags.Parse(args[1:]); err != nil {
		return "", "", err
	}

	if command == "update-all" && *loc != "" {
		return "", "", errors.New("update-all refreshes every location; -location applies to the show commands")
	}
	return command, *loc, nil
}

func main() {
	command, location, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	reg, err := registry.New(cfg.Locations, cfg.DefaultLocation)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fileStore, err := store.NewFileStore(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	name := location
	if name == "" {
		name = reg.Default()
	}

	switch command {
	case "show":
		rec, err := readCache(fileStore, reg, name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		displayDaily(rec)
	case "show-hourly":
		rec, err := readCache(fileStore, reg, name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		displayHourly(rec)
	case "update-all":
		client := nws.NewClient(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.NWSBaseURL, cfg.UserAgent)
		service := forecast.NewService(reg, client, fileStore)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		failed := 0
		for _, r := range service.RefreshAll(ctx) {
			if r.Err != nil {
				fmt.Fprintf(os.Stderr, "%s: failed: %v\n", r.Location, r.Err)
				failed++
				continue
			}
			fmt.Printf("%s: refreshed\n", r.Location)
		}
		if failed > 0 {
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

// readCache verifies the name against the registry and reads the cached
// record without touching the network.
func readCache(fileStore *store.FileStore, reg *registry.Registry, name string) (*forecast.CachedForecast, error) {
	if _, err := reg.Resolve(name); err != nil {
		return nil, err
	}
	rec, err := fileStore.Read(name)
	if err != nil {
		if errors.Is(err, forecast.ErrNotFound) {
			return nil, fmt.Errorf("no cached forecast for %q; run update-all first", name)
		}
		return nil, err
	}
	return rec, nil
}

func displayDaily(rec *forecast.CachedForecast) {
	title := cases.Title(language.English)

	header := fmt.Sprintf("Forecast for %s (fetched %s):", title.String(rec.LocationName), rec.FetchedAt.Local().Format(time.RFC822))
	fmt.Println(header)
	for _, p := range rec.Periods {
		fmt.Printf("%s: %.0f%s - %s\n", p.Name, p.Temperature, p.TemperatureUnit, p.ShortForecast)
	}
}

func displayHourly(rec *forecast.CachedForecast) {
	title := cases.Title(language.English)

	header := fmt.Sprintf("Hourly forecast for %s (fetched %s):", title.String(rec.LocationName), rec.FetchedAt.Local().Format(time.RFC822))
	fmt.Println(header)
	for _, p := range rec.Hourly {
		fmt.Printf("%s: %.0f%s - %s\n", p.StartTime.Local().Format("Mon 15:04"), p.Temperature, p.TemperatureUnit, p.ShortForecast)
	}
}
