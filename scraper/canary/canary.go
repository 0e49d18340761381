// Package canary extracts listings from Canary (web.canary-app.jp) search
// pages. Canary renders results client-side, so markup must come from a
// JavaScript-capable transport.
package canary

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"rental-bot/fetcher"
	"rental-bot/models"
	"rental-bot/scraper"
	"rental-bot/services"
	"rental-bot/utils"
)

const (
	Name        = "Canary"
	HostPattern = "canary-app.jp"

	// RoomSelector marks each room card link. The typo is Canary's own.
	RoomSelector = `[data-testid="search-result-room-thumbail"]`

	roomLinkSelector  = `a[href*="/chintai/rooms/"]`
	containerSelector = `[style*="margin-bottom: 16px"]`

	// Building level, inside the container.
	titleSelector  = ".sc-eba299fd-2"
	accessSelector = ".sc-b58b0813-3"
	tagSelector    = ".sc-8dc067f-0"

	// Unit level, inside the room link.
	imageSelector    = ".sc-25310353-2"
	rentSelector     = ".sc-a9d9171a-0"
	feeSelector      = ".sc-25310353-3"
	depositSelector  = ".sc-ba5c86c1-0"
	gratuitySelector = ".sc-ec8edb4e-0"
	layoutSelector   = ".sc-25310353-5"
)

// Extractor parses rendered Canary search markup.
type Extractor struct {
	normalizer *services.Normalizer
	safetyCap  int
	logger     *utils.Logger
}

func New(baseURL string, safetyCap int, logger *utils.Logger) *Extractor {
	return &Extractor{
		normalizer: services.NewNormalizer(baseURL, logger),
		safetyCap:  safetyCap,
		logger:     logger,
	}
}

// Source registers Canary with rendering enabled.
func Source(baseURL string, safetyCap int, logger *utils.Logger) scraper.Source {
	return scraper.Source{
		Name: Name,
		Host: HostPattern,
		Options: fetcher.Options{
			RenderJS:        true,
			BlockAds:        true,
			WaitForSelector: RoomSelector,
		},
		Extractor: New(baseURL, safetyCap, logger),
	}
}

func (e *Extractor) Extract(markup string) []models.Listing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		e.logger.Error("[canary] Failed to parse markup: %v", err)
		return nil
	}

	limit := scraper.Limit(advertisedCount(doc), e.safetyCap)

	var raw []models.RawListing
	doc.Find(RoomSelector).Each(func(_ int, room *goquery.Selection) {
		if r, ok := fromDOM(room); ok {
			raw = append(raw, r)
		}
	})
	listings := e.normalizer.Clean(raw, limit)
	if len(listings) > 0 {
		return listings
	}

	raw = raw[:0]
	doc.Find(roomLinkSelector).Each(func(_ int, link *goquery.Selection) {
		raw = append(raw, fromText(link))
	})
	listings = e.normalizer.Clean(raw, limit)
	if len(listings) > 0 {
		e.logger.Warn("[canary] Room selectors matched nothing usable; recovered %d listings from text rules", len(listings))
	}
	return listings
}

// fromDOM reads one room card through the known class names.
func fromDOM(room *goquery.Selection) (models.RawListing, bool) {
	container := findContainer(room)
	if container.Length() == 0 {
		return models.RawListing{}, false
	}

	var entries []string
	container.Find(accessSelector).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			entries = append(entries, t)
		}
	})

	// The last entry is the address; one of the others is the building age.
	var address, age string
	var access []string
	if n := len(entries); n > 0 {
		address = entries[n-1]
		for _, a := range entries[:n-1] {
			if age == "" && strings.Contains(a, "築") {
				age = a
				continue
			}
			access = append(access, a)
		}
	}

	var tags []string
	container.Find(tagSelector).Each(func(_ int, s *goquery.Selection) {
		tags = append(tags, s.Text())
	})

	rent := strings.TrimSpace(room.Find(rentSelector).First().Text())
	if rent != "" && !strings.Contains(rent, "万円") {
		rent += "万円"
	}

	fee := room.Find(feeSelector).First().Text()
	if rent != "" {
		fee = strings.Replace(fee, rent, "", 1)
	}
	fee = strings.TrimSpace(strings.Replace(fee, "/", "", 1))

	var layout, area, floor string
	parts := strings.Split(strings.TrimSpace(room.Find(layoutSelector).First().Text()), " / ")
	layout = part(parts, 0)
	area = part(parts, 1)
	floor = part(parts, 2)

	img, _ := room.Find(imageSelector).First().Attr("src")
	href, _ := room.Attr("href")

	return models.RawListing{
		Title:         container.Find(titleSelector).First().Text(),
		Address:       address,
		Age:           age,
		Access:        access,
		Tags:          tags,
		Rent:          rent,
		ManagementFee: fee,
		Deposit:       strings.Replace(room.Find(depositSelector).First().Text(), "敷", "", 1),
		Gratuity:      strings.Replace(room.Find(gratuitySelector).First().Text(), "礼", "", 1),
		Layout:        layout,
		Area:          area,
		Floor:         floor,
		ImageURL:      img,
		DetailURL:     href,
	}, true
}

// fromText reads a room card by applying the text rules to its rendered
// text. Used only when fromDOM produced nothing. Building fields come from
// the container outside any room link; unit fields come from the link's own
// subtree.
func fromText(link *goquery.Selection) models.RawListing {
	container := findContainer(link)
	if container.Length() == 0 {
		container = link.Parent()
	}

	building := buildingSegments(container)
	buildingText := strings.Join(building, "\n")

	unitText := strings.Join(textSegments(link), "\n")
	// A lone room whose figures sit beside the link rather than inside it.
	if RentRule.Find(unitText) == "" && container.Find(roomLinkSelector).Length() <= 1 {
		unitText = strings.Join(textSegments(container), "\n")
	}

	title := strings.TrimSpace(container.Find(titleSelector).First().Text())
	if title == "" {
		for _, s := range building {
			if isTitleCandidate(s) {
				title = s
				break
			}
		}
	}

	img, ok := link.Find("img").First().Attr("src")
	if !ok {
		img, _ = container.Find("img").First().Attr("src")
	}
	href, _ := link.Attr("href")

	return models.RawListing{
		Title:         title,
		Address:       AddressRule.Find(buildingText),
		Age:           AgeRule.Find(buildingText),
		Access:        AccessRule.FindAll(buildingText),
		Rent:          compact(RentRule.Find(unitText)),
		ManagementFee: ManagementFeeRule.Find(unitText),
		Deposit:       DepositRule.Find(unitText),
		Gratuity:      GratuityRule.Find(unitText),
		Layout:        LayoutRule.Find(unitText),
		Area:          compact(AreaRule.Find(unitText)),
		Floor:         FloorRule.Find(unitText),
		ImageURL:      img,
		DetailURL:     href,
	}
}

// findContainer returns the building block around a room card: the nearest
// ancestor with Canary's card spacing, else the nearest one holding a title.
func findContainer(s *goquery.Selection) *goquery.Selection {
	if c := s.Closest(containerSelector); c.Length() > 0 {
		return c
	}
	return s.Parents().FilterFunction(func(_ int, p *goquery.Selection) bool {
		return p.Find(titleSelector).Length() > 0
	}).First()
}

// textSegments returns the trimmed text of every leaf element under s.
func textSegments(s *goquery.Selection) []string {
	var out []string
	s.Find("*").Each(func(_ int, n *goquery.Selection) {
		if n.Children().Length() > 0 {
			return
		}
		if t := strings.TrimSpace(n.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// buildingSegments is textSegments without anything inside a room link.
func buildingSegments(container *goquery.Selection) []string {
	var out []string
	container.Find("*").Each(func(_ int, n *goquery.Selection) {
		if n.Children().Length() > 0 || n.Closest(roomLinkSelector).Length() > 0 {
			return
		}
		if t := strings.TrimSpace(n.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// advertisedCount looks for a short text node such as "128件" holding the
// total hit count.
func advertisedCount(doc *goquery.Document) int {
	count := 0
	doc.Find("h1, h2, h3, p, span, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Children().Length() > 0 {
			return true
		}
		t := strings.TrimSpace(s.Text())
		if t == "" || utf8.RuneCountInString(t) > 16 || !strings.Contains(t, "件") {
			return true
		}
		count = scraper.ResultCount(t)
		return count == 0
	})
	return count
}

func isTitleCandidate(s string) bool {
	if utf8.RuneCountInString(s) < 2 || s == "イチオシ" || matchesAnyRule(s) {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool {
		return !strings.ContainsRune("0123456789.,/-円万 ", r)
	}) >= 0
}

func part(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
