// Package suumo extracts listings from SUUMO rental search result pages.
//
// A result page is a list of building "cassettes". Each cassette carries the
// building fields (name, address, access, age, tags) and a table with one row
// per vacant unit.
package suumo

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"rental-bot/fetcher"
	"rental-bot/models"
	"rental-bot/scraper"
	"rental-bot/services"
	"rental-bot/utils"
)

const (
	Name        = "SUUMO"
	HostPattern = "suumo.jp"
)

// Extractor parses SUUMO search result markup.
type Extractor struct {
	normalizer *services.Normalizer
	safetyCap  int
	logger     *utils.Logger
}

// New creates an Extractor resolving links against baseURL.
func New(baseURL string, safetyCap int, logger *utils.Logger) *Extractor {
	return &Extractor{
		normalizer: services.NewNormalizer(baseURL, logger),
		safetyCap:  safetyCap,
		logger:     logger,
	}
}

// Source registers SUUMO. Its result pages are server-rendered, so a plain
// HTTP fetch is enough.
func Source(baseURL string, safetyCap int, logger *utils.Logger) scraper.Source {
	return scraper.Source{
		Name:      Name,
		Host:      HostPattern,
		Options:   fetcher.Options{},
		Extractor: New(baseURL, safetyCap, logger),
	}
}

type building struct {
	title    string
	address  string
	age      string
	imageURL string
	access   []string
	tags     []string
}

func (e *Extractor) Extract(markup string) []models.Listing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		e.logger.Error("[suumo] Failed to parse markup: %v", err)
		return nil
	}

	var raw []models.RawListing
	doc.Find(".cassetteitem").Each(func(_ int, cassette *goquery.Selection) {
		b := readBuilding(cassette)
		cassette.Find(".js-cassette_link").Each(func(_ int, row *goquery.Selection) {
			raw = append(raw, readUnit(b, row))
		})
	})

	limit := scraper.Limit(scraper.ResultCount(doc.Find(".paginate_set-hit").First().Text()), e.safetyCap)
	e.logger.Debug("[suumo] %d unit rows, cap %d", len(raw), limit)
	return e.normalizer.Clean(raw, limit)
}

func readBuilding(s *goquery.Selection) building {
	b := building{
		title:   s.Find(".cassetteitem_content-title").First().Text(),
		address: s.Find(".cassetteitem_detail-col1").First().Text(),
	}

	// col3 holds the age and the storey count as sibling divs.
	col3 := s.Find(".cassetteitem_detail-col3").First()
	if first := col3.Find("div").First(); first.Length() > 0 {
		b.age = first.Text()
	} else {
		b.age = col3.Text()
	}

	img := s.Find(".cassetteitem_object-item img, .casssetteitem_other-thumbnail-img").First()
	b.imageURL = imageSource(img)

	s.Find(".cassetteitem_detail-col2 .cassetteitem_detail-text").Each(func(_ int, a *goquery.Selection) {
		b.access = append(b.access, a.Text())
	})
	s.Find(".cassetteitem_other-col .ui-tag--outline").Each(func(_ int, t *goquery.Selection) {
		b.tags = append(b.tags, t.Text())
	})
	return b
}

func readUnit(b building, row *goquery.Selection) models.RawListing {
	cells := row.Find("td")

	image := imageSource(row.Find(".casssetteitem_other-thumbnail-img").First())
	if image == "" {
		image = b.imageURL
	}

	detail, _ := cells.Eq(8).Find("a").First().Attr("href")
	if detail == "" {
		detail, _ = row.Find("a.js-cassette_link_href").First().Attr("href")
	}

	return models.RawListing{
		Title:         b.title,
		Address:       b.address,
		Age:           b.age,
		Access:        b.access,
		Tags:          b.tags,
		Floor:         cells.Eq(2).Text(),
		Rent:          cells.Eq(3).Find(".cassetteitem_price--rent").Text(),
		ManagementFee: cells.Eq(3).Find(".cassetteitem_price--administration").Text(),
		Deposit:       cells.Eq(4).Find(".cassetteitem_price--deposit").Text(),
		Gratuity:      cells.Eq(4).Find(".cassetteitem_price--gratuity").Text(),
		Layout:        cells.Eq(5).Find(".cassetteitem_madori").Text(),
		Area:          cells.Eq(5).Find(".cassetteitem_menseki").Text(),
		ImageURL:      image,
		DetailURL:     detail,
	}
}

// imageSource prefers the lazy-load "rel" attribute SUUMO uses over src,
// which is usually a spacer gif.
func imageSource(img *goquery.Selection) string {
	if rel, ok := img.Attr("rel"); ok && strings.TrimSpace(rel) != "" {
		return rel
	}
	src, _ := img.Attr("src")
	return src
}
