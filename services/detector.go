package services

import (
	"rental-bot/models"
	"rental-bot/utils"
)

// FilterNew returns the candidates whose DetailURL is not in known, in their
// original order. known is scoped to a single configured search.
//
// A listing whose URL is known but whose price changed is still treated as
// known and will not be reported again.
func FilterNew(candidates []models.Listing, known map[string]struct{}) []models.Listing {
	fresh := make([]models.Listing, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := known[c.DetailURL]; ok {
			continue
		}
		fresh = append(fresh, c)
	}
	return fresh
}

// DetailURLs lists the distinct detail URLs of listings in first-seen order.
func DetailURLs(listings []models.Listing) []string {
	seen := utils.NewURLSet()
	for _, l := range listings {
		seen.Add(l.DetailURL)
	}
	return seen.Items()
}
