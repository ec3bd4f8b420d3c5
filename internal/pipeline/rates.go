package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/cfplan/internal/rates"
	"github.com/theirongolddev/cfplan/internal/store"
)

// ErrNoRateSource is returned when no rate sheet can be found anywhere.
var ErrNoRateSource = errors.New("pipeline: no rate sheet available")

// RateSources lists where a rate sheet may come from, in priority order:
// Override (a file path or http(s) URL), the store, File, then URL.
type RateSources struct {
	Override  string
	Store     *store.Store
	RatesDate civil.Date
	File      string
	URL       string
	Client    *http.Client
}

// LoadRates returns the first rate sheet found and a short description of
// where it came from. The store is only used when it holds a sheet in effect
// at RatesDate.
func LoadRates(ctx context.Context, src RateSources, log logrus.FieldLogger) (*rates.Table, string, error) {
	if src.Override != "" {
		tbl, err := loadLocation(ctx, src.Override, src.Client)
		return tbl, src.Override, err
	}

	if src.Store != nil {
		tbl, err := src.Store.RateTable()
		switch {
		case err == nil:
			if tbl.HasSheet(src.RatesDate) {
				return tbl, "database", nil
			}
			if log != nil {
				log.WithField("rates_date", src.RatesDate.String()).Debug("no stored sheet effective on rates date")
			}
		case errors.Is(err, store.ErrNoRates):
		default:
			return nil, "", fmt.Errorf("reading stored rates: %w", err)
		}
	}

	if src.File != "" {
		tbl, err := rates.LoadCSV(src.File)
		return tbl, src.File, err
	}
	if src.URL != "" {
		tbl, err := rates.Fetch(ctx, src.Client, src.URL)
		return tbl, src.URL, err
	}
	return nil, "", ErrNoRateSource
}

func loadLocation(ctx context.Context, loc string, client *http.Client) (*rates.Table, error) {
	if IsURL(loc) {
		return rates.Fetch(ctx, client, loc)
	}
	return rates.LoadCSV(loc)
}

// IsURL reports whether loc names an http(s) resource rather than a file.
func IsURL(loc string) bool {
	return strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://")
}
