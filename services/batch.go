package services

import "rental-bot/models"

// Batch is one rendering unit: a slice of listings plus its position within
// the overall notification. Start and End are 1-based and inclusive.
type Batch struct {
	Listings []models.Listing
	Start    int
	End      int
	Total    int
}

// Paginate splits listings into rendering units of at most perUnit items,
// after capping the whole set at maxTotal. Every unit reports the capped
// total so captions agree across units.
func Paginate(listings []models.Listing, perUnit, maxTotal int) []Batch {
	if perUnit < 1 {
		perUnit = 1
	}
	total := len(listings)
	if maxTotal > 0 && total > maxTotal {
		total = maxTotal
	}

	batches := make([]Batch, 0, (total+perUnit-1)/perUnit)
	for start := 0; start < total; start += perUnit {
		end := start + perUnit
		if end > total {
			end = total
		}
		batches = append(batches, Batch{
			Listings: listings[start:end],
			Start:    start + 1,
			End:      end,
			Total:    total,
		})
	}
	return batches
}
