// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// FormatMoney rounds to cents and adds comma separators.
// e.g., 1234567.891 -> "1,234,567.89", -400 -> "-400.00"
func FormatMoney(v float64) string {
	s := decimal.NewFromFloat(v).Round(2).StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return sign + s
	}
	if sign == "-" && n == 0 && strings.Trim(frac, "0") == "" {
		sign = ""
	}
	return sign + FormatNumber(n) + "." + frac
}

// FormatMoneyShort formats an amount with K/M suffixes for narrow columns.
// e.g., 1250 -> "1.3K", 13000000 -> "13.0M"
func FormatMoneyShort(v float64) string {
	abs := v
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fK", v/1_000)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatRate formats a yearly rate fraction as a percentage.
// e.g., 0.0850 -> "8.50%"
func FormatRate(r float64) string {
	return fmt.Sprintf("%.2f%%", r*100)
}

// FormatFactor formats a growth factor with enough digits to tell short
// deposits apart.
func FormatFactor(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}

// FormatDate formats a calendar date as "Mon 2006-01-02".
func FormatDate(d civil.Date) string {
	return d.In(time.UTC).Format("Mon 2006-01-02")
}

// FormatDuration formats an elapsed time for solver reports.
// e.g., 3725s -> "1h 2m", 125s -> "2m 5s", 1.5s -> "1.5s", 850ms -> "850ms"
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return strconv.FormatFloat(d.Seconds(), 'f', 1, 64) + "s"
	}

	secs := int64(d.Seconds())
	hours := secs / 3600
	mins := (secs % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm %ds", mins, secs%60)
}

// FormatSigned formats a net flow with an explicit sign.
// e.g., 18750 -> "+18,750.00", -400 -> "-400.00", 0 -> "0.00"
func FormatSigned(v float64) string {
	s := FormatMoney(v)
	if v > 0 && s != "0.00" {
		return "+" + s
	}
	return s
}
