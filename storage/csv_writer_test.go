package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rental-bot/models"
)

func TestCSVWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "listings.csv")

	listing := models.Listing{
		Title:     "パークハウス",
		Rent:      "8.5万円",
		Access:    []string{"新宿駅 歩8分", "都庁前駅 歩3分"},
		Tags:      []string{"ペット相談", "2人入居可"},
		DetailURL: "https://suumo.jp/chintai/jnc_1/",
	}

	for i := 0; i < 2; i++ {
		w, err := NewCSVWriter(path)
		if err != nil {
			t.Fatalf("NewCSVWriter: %v", err)
		}
		w.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
		if err := w.Write(42, []models.Listing{listing}); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3 (header + 2)", len(rows))
	}
	if rows[0][0] != "notified_at" {
		t.Errorf("got header %q, want notified_at", rows[0][0])
	}

	row := rows[2]
	if row[0] != "2024-05-01T09:00:00Z" || row[1] != "42" {
		t.Errorf("got timestamp/id %q/%q", row[0], row[1])
	}
	if row[12] != "新宿駅 歩8分 | 都庁前駅 歩3分" {
		t.Errorf("got access %q", row[12])
	}
	if row[13] != "ペット相談,2人入居可" {
		t.Errorf("got tags %q", row[13])
	}
	if row[14] != listing.DetailURL {
		t.Errorf("got detail url %q, want %q", row[14], listing.DetailURL)
	}
}
