package services

import (
	"reflect"
	"testing"

	"rental-bot/models"
)

func listingsFor(urls ...string) []models.Listing {
	out := make([]models.Listing, 0, len(urls))
	for _, u := range urls {
		out = append(out, models.Listing{Title: "t", Rent: "r", DetailURL: u})
	}
	return out
}

func knownSet(urls ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		m[u] = struct{}{}
	}
	return m
}

func TestFilterNewScenario(t *testing.T) {
	got := FilterNew(listingsFor("https://x/1", "https://x/2"), knownSet("https://x/1"))
	if len(got) != 1 || got[0].DetailURL != "https://x/2" {
		t.Errorf("FilterNew = %v; want only https://x/2", DetailURLs(got))
	}
}

func TestFilterNewEmptyKnownIsIdentity(t *testing.T) {
	in := listingsFor("https://x/3", "https://x/1", "https://x/2")
	got := FilterNew(in, nil)
	if !reflect.DeepEqual(DetailURLs(got), DetailURLs(in)) {
		t.Errorf("FilterNew with empty known = %v; want %v", DetailURLs(got), DetailURLs(in))
	}
}

func TestFilterNewAllKnown(t *testing.T) {
	got := FilterNew(listingsFor("https://x/1", "https://x/2"), knownSet("https://x/1", "https://x/2", "https://x/9"))
	if len(got) != 0 {
		t.Errorf("expected no new listings, got %v", DetailURLs(got))
	}
}

func TestFilterNewPreservesOrder(t *testing.T) {
	in := listingsFor("https://x/5", "https://x/4", "https://x/3", "https://x/2")
	got := FilterNew(in, knownSet("https://x/4", "https://x/2"))
	want := []string{"https://x/5", "https://x/3"}
	if !reflect.DeepEqual(DetailURLs(got), want) {
		t.Errorf("FilterNew = %v; want %v", DetailURLs(got), want)
	}
}

func TestFilterNewIdempotent(t *testing.T) {
	in := listingsFor("https://x/1", "https://x/2", "https://x/3")
	known := knownSet("https://x/2")

	first := FilterNew(in, known)
	second := FilterNew(in, known)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("FilterNew not idempotent: %v vs %v", DetailURLs(first), DetailURLs(second))
	}
}

func TestFilterNewIgnoresPriceChange(t *testing.T) {
	in := []models.Listing{{Title: "t", Rent: "9万円", DetailURL: "https://x/1"}}
	if got := FilterNew(in, knownSet("https://x/1")); len(got) != 0 {
		t.Errorf("known URL with new rent should not be new, got %v", DetailURLs(got))
	}
}

func TestDetailURLsDistinctInOrder(t *testing.T) {
	in := listingsFor("https://x/3", "https://x/1", "https://x/3", "https://x/2")
	want := []string{"https://x/3", "https://x/1", "https://x/2"}
	if got := DetailURLs(in); !reflect.DeepEqual(got, want) {
		t.Errorf("DetailURLs = %v; want %v", got, want)
	}
}
