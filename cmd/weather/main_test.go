package main

import "testing"

func TestParseArgsShowWithLocation(t *testing.T) {
	command, location, err := parseArgs([]string{"show", "-location", "work"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if command != "show" || location != "work" {
		t.Fatalf("got command %q location %q", command, location)
	}
}

func TestParseArgsDefaultLocation(t *testing.T) {
	command, location, err := parseArgs([]string{"show-hourly"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if command != "show-hourly" || location != "" {
		t.Fatalf("got command %q location %q", command, location)
	}
}

func TestParseArgsUpdateAll(t *testing.T) {
	command, _, err := parseArgs([]string{"update-all"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if command != "update-all" {
		t.Fatalf("got command %q", command)
	}
}

func TestParseArgsRejectsLocationForUpdateAll(t *testing.T) {
	if _, _, err := parseArgs([]string{"update-all", "-location", "home"}); err == nil {
		t.Fatal("expected error for -location with update-all")
	}
}

func TestParseArgsMissingCommand(t *testing.T) {
	if _, _, err := parseArgs(nil); err == nil {
		t.Fatal("expected error for missing command")
	}
}
