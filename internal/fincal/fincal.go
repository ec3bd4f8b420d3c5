// Package fincal implements the bank's financial day count: months hold at most
// 30 financial days, the 31st is never counted, and February is topped up to 30
// days once a window runs past it.
package fincal

import (
	"time"

	"cloud.google.com/go/civil"
)

// MinInvestmentDays is the shortest term, in financial days, the bank accepts
// for a fixed-term deposit.
const MinInvestmentDays = 30

// DaysBetween returns the number of financial days from a to b.
//
// The count is the calendar distance minus every 31st in [a, b]. When b lies
// after February of its own year, each February in the range adds back the
// days it lacks against a 30-day month (2 for 28 days, 1 for 29). The
// correction is not applied when b falls in January or February, even if an
// earlier February is inside the window.
func DaysBetween(a, b civil.Date) int {
	if a == b {
		return 0
	}

	total := b.DaysSince(a)
	total -= count31sts(a, b)
	if afterFebruary(b) {
		total += missingFebruaryDays(a, b)
	}
	return total
}

// AddDays advances start by n financial days.
//
// Outside February every step counts one day, except that from the 30th (or
// 31st) of a 31-day month the walk jumps two calendar days so the 31st is
// never counted. Inside February each day counts one, and stepping off the
// last day of February counts two. The walk stops once n is reached or
// passed, so the result may overshoot by one around February.
func AddDays(start civil.Date, n int) civil.Date {
	d := start
	for counted := 0; counted < n; {
		switch {
		case d.Month == time.February:
			if d.Day < DaysInMonth(d.Year, d.Month) {
				counted++
			} else {
				counted += 2
			}
			d = d.AddDays(1)
		case d.Day < 30:
			d = d.AddDays(1)
			counted++
		case DaysInMonth(d.Year, d.Month) == 31:
			d = d.AddDays(2)
			counted++
		default:
			d = d.AddDays(1)
			counted++
		}
	}
	return d
}

// LastDayToInvest returns the latest date from which a MinInvestmentDays
// deposit still matures on or before end.
func LastDayToInvest(end civil.Date) civil.Date {
	d := end
	for DaysBetween(d, end) < MinInvestmentDays {
		d = d.AddDays(-1)
	}
	return d
}

// DaysInMonth returns the calendar length of the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// count31sts counts the dates in [a, b] whose day of month is 31.
func count31sts(a, b civil.Date) int {
	n := 0
	forEachMonth(a, b, func(year int, month time.Month) {
		if DaysInMonth(year, month) != 31 {
			return
		}
		d := civil.Date{Year: year, Month: month, Day: 31}
		if !d.Before(a) && !d.After(b) {
			n++
		}
	})
	return n
}

// missingFebruaryDays sums the shortfall of every February in [a, b].
func missingFebruaryDays(a, b civil.Date) int {
	n := 0
	forEachMonth(a, b, func(year int, month time.Month) {
		if month != time.February {
			return
		}
		switch DaysInMonth(year, month) {
		case 28:
			n += 2
		case 29:
			n++
		}
	})
	return n
}

func afterFebruary(d civil.Date) bool {
	return d.Month > time.February
}

// forEachMonth calls fn for every month touched by [a, b], in order.
func forEachMonth(a, b civil.Date, fn func(year int, month time.Month)) {
	year, month := a.Year, a.Month
	for year < b.Year || (year == b.Year && month <= b.Month) {
		fn(year, month)
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
}
