package services

import (
	"fmt"
	"testing"

	"rental-bot/models"
)

func numbered(n int) []models.Listing {
	out := make([]models.Listing, n)
	for i := range out {
		out[i] = models.Listing{Title: "t", Rent: "r", DetailURL: fmt.Sprintf("https://x/%d", i)}
	}
	return out
}

func TestPaginateUnitCounts(t *testing.T) {
	tests := []struct {
		n         int
		wantUnits int
		wantTotal int
	}{
		{0, 0, 0},
		{1, 1, 1},
		{10, 1, 10},
		{11, 2, 11},
		{20, 2, 20},
		{35, 2, 20},
	}

	for _, tt := range tests {
		batches := Paginate(numbered(tt.n), 10, 20)
		if len(batches) != tt.wantUnits {
			t.Errorf("Paginate(%d) units = %d; want %d", tt.n, len(batches), tt.wantUnits)
		}
		for i, b := range batches {
			if b.Total != tt.wantTotal {
				t.Errorf("Paginate(%d) unit %d total = %d; want %d", tt.n, i, b.Total, tt.wantTotal)
			}
			if len(b.Listings) > 10 {
				t.Errorf("Paginate(%d) unit %d has %d listings", tt.n, i, len(b.Listings))
			}
		}
	}
}

func TestPaginateRanges(t *testing.T) {
	batches := Paginate(numbered(13), 10, 20)
	if len(batches) != 2 {
		t.Fatalf("units = %d; want 2", len(batches))
	}
	if batches[0].Start != 1 || batches[0].End != 10 {
		t.Errorf("first range = %d-%d; want 1-10", batches[0].Start, batches[0].End)
	}
	if batches[1].Start != 11 || batches[1].End != 13 || len(batches[1].Listings) != 3 {
		t.Errorf("second range = %d-%d (%d); want 11-13 (3)", batches[1].Start, batches[1].End, len(batches[1].Listings))
	}
}
