package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"rental-bot/models"
)

var csvHeader = []string{
	"notified_at", "search_id", "title", "rent", "management_fee", "deposit", "gratuity",
	"layout", "menseki", "floor", "age", "address", "access", "tags", "detail_url",
}

// CSVWriter appends notified listings to a CSV audit file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	now    func() time.Time
}

// NewCSVWriter opens (or creates) the CSV file at the given path, writing the
// header row when the file is new. Intermediate directories are created
// automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("csv: open file %q: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: stat %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("csv: write header: %w", err)
		}
		w.Flush()
	}

	return &CSVWriter{file: f, writer: w, now: time.Now}, nil
}

// Write appends one row per listing.
func (c *CSVWriter) Write(searchID int64, listings []models.Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now().Format(time.RFC3339)
	id := strconv.FormatInt(searchID, 10)
	for _, l := range listings {
		row := []string{
			ts, id, l.Title, l.Rent, l.ManagementFee, l.Deposit, l.Gratuity,
			l.Layout, l.Area, l.Floor, l.Age, l.Address,
			strings.Join(l.Access, " | "), strings.Join(l.Tags, ","), l.DetailURL,
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.file.Close()
}
