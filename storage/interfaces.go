package storage

import (
	"context"
	"errors"

	"rental-bot/models"
)

// ErrSearchNotFound is returned when a conversation has no search URL bound.
var ErrSearchNotFound = errors.New("storage: search not found")

// SearchStore keeps one search URL per chat conversation.
type SearchStore interface {
	GetSearch(ctx context.Context, conversationID string) (*models.ConfiguredSearch, error)
	UpsertSearch(ctx context.Context, conversationID, url string) (*models.ConfiguredSearch, error)
	ListSearches(ctx context.Context) ([]models.ConfiguredSearch, error)
}

// ListingStore records which detail URLs were already reported per search.
type ListingStore interface {
	// KnownURLs returns the subset of candidates already saved under searchID.
	KnownURLs(ctx context.Context, searchID int64, candidates []string) (map[string]struct{}, error)
	// SaveListings upserts listings keyed by (searchID, DetailURL) and
	// returns the number of rows submitted.
	SaveListings(ctx context.Context, searchID int64, listings []models.Listing) (int, error)
}

// ListingWriter is an append-only sink for notified listings.
type ListingWriter interface {
	Write(searchID int64, listings []models.Listing) error
	Close() error
}
