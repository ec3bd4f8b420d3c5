package store

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/theirongolddev/cfplan/internal/rates"
)

// SaveBuckets stores a rate sheet. Every effective date present in buckets
// is replaced as a whole; other dates are kept.
func (s *Store) SaveBuckets(buckets []rates.Bucket, source string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	cleared := make(map[civil.Date]bool)
	for _, b := range buckets {
		if cleared[b.Effective] {
			continue
		}
		if _, err := tx.Exec("DELETE FROM rate_buckets WHERE effective = ?", b.Effective.String()); err != nil {
			return fmt.Errorf("clearing %s: %w", b.Effective, err)
		}
		cleared[b.Effective] = true
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, b := range buckets {
		_, err := tx.Exec(`INSERT OR REPLACE INTO rate_buckets
			(effective, min_days, max_days, label, unit, rate, source, imported_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			b.Effective.String(), b.MinDays, b.MaxDays, b.Label, b.Unit, b.Rate, source, now,
		)
		if err != nil {
			return fmt.Errorf("inserting bucket %d-%d at %s: %w", b.MinDays, b.MaxDays, b.Effective, err)
		}
	}

	return tx.Commit()
}

// Buckets returns every stored bucket ordered by effective date then
// duration.
func (s *Store) Buckets() ([]rates.Bucket, error) {
	rows, err := s.db.Query(`SELECT effective, min_days, max_days, label, unit, rate
		FROM rate_buckets ORDER BY effective, min_days, max_days`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []rates.Bucket
	for rows.Next() {
		var b rates.Bucket
		var eff string
		if err := rows.Scan(&eff, &b.MinDays, &b.MaxDays, &b.Label, &b.Unit, &b.Rate); err != nil {
			return nil, err
		}
		if b.Effective, err = civil.ParseDate(eff); err != nil {
			return nil, fmt.Errorf("bad effective date %q: %w", eff, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// RateTable builds a lookup table from the stored buckets.
func (s *Store) RateTable() (*rates.Table, error) {
	buckets, err := s.Buckets()
	if err != nil {
		return nil, err
	}
	if len(buckets) == 0 {
		return nil, ErrNoRates
	}
	return rates.NewTable(buckets), nil
}

// BucketCount returns the number of stored buckets.
func (s *Store) BucketCount() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM rate_buckets").Scan(&n)
	return n, err
}
