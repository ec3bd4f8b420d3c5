package rates

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// firstRateColumn is where effective dates start in the header row. The
// columns before it are dLinf, dLsup, label and unit.
const firstRateColumn = 4

// MaxBucketDays bounds the duration columns of a sheet, about a century of
// financial days.
const MaxBucketDays = 36000

// ErrMalformedSheet is returned for a rate sheet that cannot be parsed.
var ErrMalformedSheet = errors.New("rates: malformed rate sheet")

// LoadCSV reads a rate sheet from disk.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from config or flags
	if err != nil {
		return nil, fmt.Errorf("opening rate sheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	t, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ParseCSV reads a rate sheet. The header holds one effective date per column
// from the fifth column on; each row holds a duration range, a label, a unit
// and one rate per effective date. Blank rate cells are skipped.
func ParseCSV(r io.Reader) (*Table, error) {
	buckets, err := parseBuckets(r)
	if err != nil {
		return nil, err
	}
	return NewTable(buckets), nil
}

func parseBuckets(r io.Reader) ([]Bucket, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrMalformedSheet)
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) <= firstRateColumn {
		return nil, fmt.Errorf("%w: header has no effective dates", ErrMalformedSheet)
	}

	dates := make([]civil.Date, len(header))
	for i := firstRateColumn; i < len(header); i++ {
		d, err := ParseDate(header[i])
		if err != nil {
			return nil, fmt.Errorf("%w: header column %d: %v", ErrMalformedSheet, i+1, err)
		}
		dates[i] = d
	}

	var buckets []Bucket
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}
		if blankRecord(rec) {
			continue
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("%w: line %d has no duration range", ErrMalformedSheet, line)
		}

		lo, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: dLinf: %v", ErrMalformedSheet, line, err)
		}
		hi, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: dLsup: %v", ErrMalformedSheet, line, err)
		}
		if lo > hi {
			return nil, fmt.Errorf("%w: line %d: range %d-%d is reversed", ErrMalformedSheet, line, lo, hi)
		}
		if lo < 0 || hi > MaxBucketDays {
			return nil, fmt.Errorf("%w: line %d: range %d-%d outside 0-%d days", ErrMalformedSheet, line, lo, hi, MaxBucketDays)
		}

		label, unit := field(rec, 2), field(rec, 3)
		for i := firstRateColumn; i < len(rec) && i < len(dates); i++ {
			cell := strings.TrimSpace(rec[i])
			if cell == "" {
				continue
			}
			rate, err := ParseRate(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %d: %v", ErrMalformedSheet, line, i+1, err)
			}
			buckets = append(buckets, Bucket{
				MinDays:   lo,
				MaxDays:   hi,
				Label:     label,
				Unit:      unit,
				Effective: dates[i],
				Rate:      rate,
			})
		}
	}

	if len(buckets) == 0 {
		return nil, fmt.Errorf("%w: no rates", ErrMalformedSheet)
	}
	return buckets, nil
}

// ParseDate accepts M/D/YYYY as published by the bank, or ISO YYYY-MM-DD.
func ParseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if d, err := civil.ParseDate(s); err == nil {
		return d, nil
	}
	t, err := time.Parse("1/2/2006", s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("unrecognised date %q", s)
	}
	return civil.DateOf(t), nil
}

// ParseRate reads a fraction such as 0.105, or a percentage such as 10.5%.
func ParseRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err != nil {
			return 0, err
		}
		return v / 100, nil
	}
	return strconv.ParseFloat(s, 64)
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return strings.TrimSpace(rec[i])
	}
	return ""
}

func blankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
