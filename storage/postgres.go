package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"rental-bot/models"
	"rental-bot/utils"
)

const (
	upsertBatchSize = 50
	propertyColumns = 15
)

// PostgresStore persists configured searches and reported listings to
// PostgreSQL. It implements SearchStore and ListingStore.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, waits for it to accept
// pings, runs schema migrations, and returns a ready-to-use store.
func NewPostgresStore(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return ps, nil
}

func (ps *PostgresStore) migrate(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scraping_url (
			id          SERIAL PRIMARY KEY,
			target_id   TEXT        UNIQUE NOT NULL,
			url         TEXT        NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS properties (
			id              SERIAL PRIMARY KEY,
			scraping_url_id INTEGER     NOT NULL REFERENCES scraping_url(id) ON DELETE CASCADE,
			title           TEXT        NOT NULL,
			address         TEXT        NOT NULL DEFAULT '',
			layout          TEXT        NOT NULL DEFAULT '',
			age             TEXT        NOT NULL DEFAULT '',
			image_url       TEXT        NOT NULL DEFAULT '',
			menseki         TEXT        NOT NULL DEFAULT '',
			access          TEXT[]      NOT NULL DEFAULT '{}',
			tags            TEXT        NOT NULL DEFAULT '',
			detail_url      TEXT        NOT NULL,
			floor           TEXT        NOT NULL DEFAULT '',
			rent            TEXT        NOT NULL DEFAULT '',
			management_fee  TEXT        NOT NULL DEFAULT '',
			deposit         TEXT        NOT NULL DEFAULT '',
			gratuity        TEXT        NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (scraping_url_id, detail_url)
		);

		CREATE INDEX IF NOT EXISTS idx_properties_scraping_url ON properties(scraping_url_id);
	`)
	return err
}

func (ps *PostgresStore) GetSearch(ctx context.Context, conversationID string) (*models.ConfiguredSearch, error) {
	s := &models.ConfiguredSearch{}
	err := ps.db.QueryRowContext(ctx, `
		SELECT id, target_id, url, updated_at
		FROM scraping_url
		WHERE target_id = $1
	`, conversationID).Scan(&s.ID, &s.ConversationID, &s.URL, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSearchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get search: %w", err)
	}
	return s, nil
}

func (ps *PostgresStore) UpsertSearch(ctx context.Context, conversationID, url string) (*models.ConfiguredSearch, error) {
	s := &models.ConfiguredSearch{}
	err := ps.db.QueryRowContext(ctx, `
		INSERT INTO scraping_url (target_id, url, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (target_id) DO UPDATE
		SET url = EXCLUDED.url, updated_at = NOW()
		RETURNING id, target_id, url, updated_at
	`, conversationID, url).Scan(&s.ID, &s.ConversationID, &s.URL, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: upsert search: %w", err)
	}
	return s, nil
}

func (ps *PostgresStore) ListSearches(ctx context.Context) ([]models.ConfiguredSearch, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT id, target_id, url, updated_at
		FROM scraping_url
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list searches: %w", err)
	}
	defer rows.Close()

	var searches []models.ConfiguredSearch
	for rows.Next() {
		var s models.ConfiguredSearch
		if err := rows.Scan(&s.ID, &s.ConversationID, &s.URL, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan search: %w", err)
		}
		searches = append(searches, s)
	}
	return searches, rows.Err()
}

func (ps *PostgresStore) KnownURLs(ctx context.Context, searchID int64, candidates []string) (map[string]struct{}, error) {
	known := make(map[string]struct{})
	if len(candidates) == 0 {
		return known, nil
	}

	rows, err := ps.db.QueryContext(ctx, `
		SELECT detail_url
		FROM properties
		WHERE scraping_url_id = $1 AND detail_url = ANY($2)
	`, searchID, pq.Array(candidates))
	if err != nil {
		return nil, fmt.Errorf("postgres: known urls: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("postgres: scan url: %w", err)
		}
		known[u] = struct{}{}
	}
	return known, rows.Err()
}

// SaveListings upserts listings in batches inside one transaction.
func (ps *PostgresStore) SaveListings(ctx context.Context, searchID int64, listings []models.Listing) (int, error) {
	listings = uniqueByDetailURL(listings)
	if len(listings) == 0 {
		return 0, nil
	}

	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := 0; i < len(listings); i += upsertBatchSize {
		end := i + upsertBatchSize
		if end > len(listings) {
			end = len(listings)
		}
		query, args := buildPropertyUpsert(searchID, listings[i:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("postgres: upsert properties: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("postgres: commit: %w", err)
	}
	return len(listings), nil
}

// buildPropertyUpsert renders one multi-row INSERT ... ON CONFLICT statement.
func buildPropertyUpsert(searchID int64, batch []models.Listing) (string, []interface{}) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*propertyColumns)

	for idx, l := range batch {
		base := idx * propertyColumns
		placeholders := make([]string, propertyColumns)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", base+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			searchID, l.Title, l.Address, l.Layout, l.Age, l.ImageURL, l.Area,
			pq.Array(l.Access), strings.Join(l.Tags, ","), l.DetailURL,
			l.Floor, l.Rent, l.ManagementFee, l.Deposit, l.Gratuity)
	}

	query := fmt.Sprintf(`
		INSERT INTO properties (
			scraping_url_id, title, address, layout, age, image_url, menseki,
			access, tags, detail_url, floor, rent, management_fee, deposit, gratuity
		)
		VALUES %s
		ON CONFLICT (scraping_url_id, detail_url) DO UPDATE SET
			title = EXCLUDED.title,
			address = EXCLUDED.address,
			layout = EXCLUDED.layout,
			age = EXCLUDED.age,
			image_url = EXCLUDED.image_url,
			menseki = EXCLUDED.menseki,
			access = EXCLUDED.access,
			tags = EXCLUDED.tags,
			floor = EXCLUDED.floor,
			rent = EXCLUDED.rent,
			management_fee = EXCLUDED.management_fee,
			deposit = EXCLUDED.deposit,
			gratuity = EXCLUDED.gratuity,
			updated_at = NOW()
	`, strings.Join(valueStrings, ","))

	return query, valueArgs
}

// uniqueByDetailURL keeps the first listing per detail URL. A single upsert
// statement may not touch the same conflict key twice.
func uniqueByDetailURL(listings []models.Listing) []models.Listing {
	seen := utils.NewURLSet()
	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if l.DetailURL == "" || !seen.Add(l.DetailURL) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
