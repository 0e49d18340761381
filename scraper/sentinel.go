package scraper

import (
	"rental-bot/fetcher"
	"rental-bot/models"
	"rental-bot/services"
)

// ErrorTag marks listings that report a failure instead of a real unit.
const ErrorTag = "エラー"

// ErrorListing builds the single listing shown when a source could not be
// rendered. The address carries the failure detail and the detail link points
// back at the search page.
func ErrorListing(source, searchURL string, err error) models.Listing {
	title := source + "取得エラー"
	if fetcher.KindOf(err) == fetcher.KindUnavailable {
		title = source + "ブラウザ起動エラー"
	}
	return models.Listing{
		Title:         title,
		Address:       fetcher.UserMessage(err),
		Layout:        "-",
		Floor:         "-",
		Area:          "-",
		Age:           "-",
		ImageURL:      services.PlaceholderImageURL,
		DetailURL:     searchURL,
		Rent:          "-",
		ManagementFee: "-",
		Deposit:       "-",
		Gratuity:      "-",
		Access:        []string{"技術的な問題が発生しています"},
		Tags:          []string{ErrorTag},
	}
}
