// Package scraper turns a search URL into listings. Each supported site is a
// Source: a host pattern, the fetch options its pages need, and an Extractor
// that understands its markup.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"rental-bot/fetcher"
	"rental-bot/models"
	"rental-bot/utils"
)

// ErrUnsupportedSite is returned for search URLs no Source claims.
var ErrUnsupportedSite = errors.New("scraper: unsupported site")

// Extractor parses one site's markup. Implementations never panic on
// malformed input; missing fields degrade to empty strings.
type Extractor interface {
	Extract(markup string) []models.Listing
}

// Source binds a site to its extractor and fetch options.
type Source struct {
	Name      string
	Host      string // matched as a substring of the URL host
	Options   fetcher.Options
	Extractor Extractor
}

// Registry is a lookup table of Sources keyed on host substring.
type Registry struct {
	sources []Source
}

func NewRegistry(sources ...Source) *Registry {
	return &Registry{sources: sources}
}

// Lookup returns the Source whose host pattern appears in rawURL's host.
func (r *Registry) Lookup(rawURL string) (Source, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return Source{}, false
	}
	host := strings.ToLower(u.Hostname())
	for _, s := range r.sources {
		if strings.Contains(host, s.Host) {
			return s, true
		}
	}
	return Source{}, false
}

// Result is the outcome of one scrape.
type Result struct {
	Source   string
	Listings []models.Listing
	// Degraded is set when Listings holds a single error listing in place of
	// real results. Degraded results are shown but never persisted.
	Degraded bool
}

// Service fetches and extracts listings for a search URL.
type Service struct {
	registry *Registry
	fetcher  fetcher.Fetcher
	logger   *utils.Logger
}

func NewService(registry *Registry, f fetcher.Fetcher, logger *utils.Logger) *Service {
	return &Service{registry: registry, fetcher: f, logger: logger}
}

// Scrape fetches searchURL and extracts its listings. A failed fetch for a
// source that needs JavaScript rendering yields a degraded Result holding an
// error listing; for other sources the fetch error is returned.
func (s *Service) Scrape(ctx context.Context, searchURL string) (*Result, error) {
	src, ok := s.registry.Lookup(searchURL)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSite, searchURL)
	}

	s.logger.Info("[%s] Fetching %s", src.Name, searchURL)
	markup, err := s.fetcher.Fetch(ctx, searchURL, src.Options)
	if err != nil {
		if src.Options.RenderJS {
			s.logger.Error("[%s] Rendered fetch failed: %v", src.Name, err)
			return &Result{
				Source:   src.Name,
				Listings: []models.Listing{ErrorListing(src.Name, searchURL, err)},
				Degraded: true,
			}, nil
		}
		return nil, fmt.Errorf("scraper: fetch %s: %w", src.Name, err)
	}

	listings := src.Extractor.Extract(markup)
	s.logger.Info("[%s] Extracted %d listings", src.Name, len(listings))
	return &Result{Source: src.Name, Listings: listings}, nil
}
