// Package rates resolves the bank's term-deposit rate for a duration and an
// effective date.
package rates

import (
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
)

// ErrNoRate is returned when no bucket covers a duration at a date.
var ErrNoRate = errors.New("rates: no rate")

// Source looks up the yearly rate, as a fraction, for a deposit of duration
// financial days under the rate sheet in effect at date.
type Source interface {
	Rate(date civil.Date, duration int) (float64, error)
}

// Bucket is one row of a rate sheet for one effective date: every duration in
// [MinDays, MaxDays] earns Rate.
type Bucket struct {
	MinDays   int
	MaxDays   int
	Label     string
	Unit      string
	Effective civil.Date
	Rate      float64
}

// Table is an in-memory rate sheet. A lookup only uses the sheet whose
// effective date is exactly the requested date.
type Table struct {
	buckets []Bucket
	dates   []civil.Date // ascending, distinct
	sheets  map[civil.Date][]Bucket
	maxDays int
}

// NewTable groups buckets by effective date. Later buckets win when ranges
// overlap for the same effective date.
func NewTable(buckets []Bucket) *Table {
	t := &Table{
		buckets: buckets,
		sheets:  make(map[civil.Date][]Bucket),
	}

	for _, b := range buckets {
		if _, ok := t.sheets[b.Effective]; !ok {
			t.dates = append(t.dates, b.Effective)
		}
		t.sheets[b.Effective] = append(t.sheets[b.Effective], b)
		if b.MaxDays > t.maxDays {
			t.maxDays = b.MaxDays
		}
	}

	sort.Slice(t.dates, func(i, j int) bool { return t.dates[i].Before(t.dates[j]) })
	return t
}

// Rate implements Source. There is no fallback to an earlier sheet: a date
// without its own sheet is ErrNoRate.
func (t *Table) Rate(date civil.Date, duration int) (float64, error) {
	sheet, ok := t.sheets[date]
	if !ok {
		if eff, ok := t.EffectiveDate(date); ok {
			return 0, fmt.Errorf("%w: no rate sheet effective %s (latest earlier sheet is %s)", ErrNoRate, date, eff)
		}
		return 0, fmt.Errorf("%w: no rate sheet effective %s", ErrNoRate, date)
	}
	for i := len(sheet) - 1; i >= 0; i-- {
		if b := sheet[i]; duration >= b.MinDays && duration <= b.MaxDays {
			return b.Rate, nil
		}
	}
	return 0, fmt.Errorf("%w: %d days under the %s sheet", ErrNoRate, duration, date)
}

// HasSheet reports whether a sheet takes effect exactly on date.
func (t *Table) HasSheet(date civil.Date) bool {
	_, ok := t.sheets[date]
	return ok
}

// EffectiveDate returns the latest sheet date on or before date. Rate never
// uses it; it is for suggesting a rates date and for display.
func (t *Table) EffectiveDate(date civil.Date) (civil.Date, bool) {
	i := sort.Search(len(t.dates), func(i int) bool { return t.dates[i].After(date) })
	if i == 0 {
		return civil.Date{}, false
	}
	return t.dates[i-1], true
}

// MaxDuration returns the longest duration any bucket covers.
func (t *Table) MaxDuration() int { return t.maxDays }

// Dates returns the effective dates in ascending order.
func (t *Table) Dates() []civil.Date { return t.dates }

// Buckets returns the buckets in load order.
func (t *Table) Buckets() []Bucket { return t.buckets }

// Len returns the number of buckets.
func (t *Table) Len() int { return len(t.buckets) }
