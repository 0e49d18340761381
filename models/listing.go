package models

import "time"

// RawListing holds fields exactly as they were lifted from the page markup.
// Nothing is trimmed or resolved yet; the Normalizer turns it into a Listing.
type RawListing struct {
	Title         string
	Address       string
	Layout        string
	Floor         string
	Area          string
	Age           string
	ImageURL      string
	DetailURL     string
	Rent          string
	ManagementFee string
	Deposit       string
	Gratuity      string
	Access        []string
	Tags          []string
}

// Listing is one normalized rental unit. DetailURL is the deduplication key.
// Price fields are display strings kept in the source's own format.
type Listing struct {
	Title         string   `json:"title"`
	Address       string   `json:"address"`
	Layout        string   `json:"layout"`
	Floor         string   `json:"floor"`
	Area          string   `json:"menseki"`
	Age           string   `json:"age"`
	ImageURL      string   `json:"imageUrl"`
	DetailURL     string   `json:"detailUrl"`
	Rent          string   `json:"rent"`
	ManagementFee string   `json:"managementFee"`
	Deposit       string   `json:"deposit"`
	Gratuity      string   `json:"gratuity"`
	Access        []string `json:"access"`
	Tags          []string `json:"tags"`
}

// ConfiguredSearch binds one search URL to one chat conversation.
type ConfiguredSearch struct {
	ID             int64
	ConversationID string
	URL            string
	UpdatedAt      time.Time
}
