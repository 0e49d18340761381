package services

import (
	"net/url"
	"strings"
	"unicode"

	"rental-bot/models"
	"rental-bot/utils"
)

const (
	// PlaceholderImageURL is shown when a listing has no usable image.
	PlaceholderImageURL = "https://example.com/default-image.jpg"

	// promotedTag is the site's "featured" badge; it says nothing about the unit.
	promotedTag = "イチオシ"
)

// Normalizer turns RawListings from one source into validated Listings.
type Normalizer struct {
	base   *url.URL
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer that resolves relative URLs against
// baseURL (scheme + host of the source site).
func NewNormalizer(baseURL string, logger *utils.Logger) *Normalizer {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		base = nil
	}
	return &Normalizer{base: base, logger: logger}
}

// Normalize cleans a single raw record. The boolean is false when the record
// is not emittable: missing title, missing rent, or no absolute detail URL.
func (n *Normalizer) Normalize(r models.RawListing) (models.Listing, bool) {
	l := models.Listing{
		Title:         normaliseText(r.Title),
		Address:       normaliseText(r.Address),
		Layout:        normaliseText(r.Layout),
		Floor:         normaliseText(r.Floor),
		Area:          normaliseText(r.Area),
		Age:           normaliseText(r.Age),
		ImageURL:      n.resolve(r.ImageURL),
		DetailURL:     n.resolve(r.DetailURL),
		Rent:          normaliseText(r.Rent),
		ManagementFee: normaliseText(r.ManagementFee),
		Deposit:       normaliseText(r.Deposit),
		Gratuity:      normaliseText(r.Gratuity),
		Access:        normaliseList(r.Access),
		Tags:          normaliseTags(r.Tags),
	}
	if l.ImageURL == "" {
		l.ImageURL = PlaceholderImageURL
	}

	if l.Title == "" || l.Rent == "" || l.DetailURL == "" {
		return l, false
	}
	return l, true
}

// Clean normalizes raw records in order, dropping invalid ones and repeats of
// an already-emitted detail URL. At most limit listings are returned; a
// limit <= 0 means no cap.
func (n *Normalizer) Clean(raw []models.RawListing, limit int) []models.Listing {
	seen := utils.NewURLSet()
	result := make([]models.Listing, 0, len(raw))
	var invalid, dupes int

	for _, r := range raw {
		if limit > 0 && len(result) >= limit {
			break
		}

		l, ok := n.Normalize(r)
		if !ok {
			invalid++
			n.logger.Debug("[normalizer] Dropping listing %q (rent=%q url=%q)", l.Title, l.Rent, l.DetailURL)
			continue
		}
		if !seen.Add(l.DetailURL) {
			dupes++
			continue
		}
		result = append(result, l)
	}

	n.logger.Info("[normalizer] Cleaned %d → %d listings (invalid %d, duplicate %d)",
		len(raw), len(result), invalid, dupes)
	return result
}

// resolve returns an absolute http(s) URL for raw, or "" if it has none.
func (n *Normalizer) resolve(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if !u.IsAbs() || u.Host == "" {
		if n.base == nil {
			return ""
		}
		u = n.base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" {
		return ""
	}
	return u.String()
}

// normaliseText strips leading/trailing whitespace and collapses internal
// whitespace, full-width spaces included, to single ASCII spaces.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

func normaliseList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = normaliseText(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func normaliseTags(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = normaliseText(s)
		if s == "" || s == promotedTag {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
